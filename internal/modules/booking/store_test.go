package booking

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreAppendAndList(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	first := &PhaseEvent{SessionID: "s1", FromPhase: PhaseSearch, ToPhase: PhaseSelectRide, CreatedAt: t0}
	second := &PhaseEvent{SessionID: "s1", RideID: "r1", FromPhase: PhaseSelectRide, ToPhase: PhaseFindingDriver, CreatedAt: t0.Add(time.Second)}
	require.NoError(t, store.AppendEvent(ctx, first))
	require.NoError(t, store.AppendEvent(ctx, second))
	require.NoError(t, store.AppendEvent(ctx, &PhaseEvent{SessionID: "other", FromPhase: PhaseSearch, ToPhase: PhaseSelectRide, CreatedAt: t0}))
	assert.NotZero(t, first.ID)

	events, err := store.ListEvents(ctx, "s1", 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, PhaseFindingDriver, events[0].ToPhase)
	assert.Equal(t, "r1", string(events[0].RideID))
	assert.Empty(t, events[1].RideID)
}

func setupTestStore(t *testing.T) *Store {
	t.Helper()

	dsn := os.Getenv("RIDEFLOW_TEST_DSN")
	if dsn == "" {
		t.Skip("RIDEFLOW_TEST_DSN not set; skipping DB-backed journal tests")
	}

	ctx := context.Background()
	db, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, applyMigration(ctx, db))
	_, err = db.Exec(ctx, "TRUNCATE TABLE booking_phase_events")
	require.NoError(t, err)
	return NewStore(db)
}

func applyMigration(ctx context.Context, db *pgxpool.Pool) error {
	root, err := repoRoot()
	if err != nil {
		return err
	}
	content, err := os.ReadFile(filepath.Join(root, "migrations", "0001_init.sql"))
	if err != nil {
		return err
	}
	for _, stmt := range splitSQL(stripSQLComments(string(content))) {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func repoRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for i := 0; i < 6; i++ {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", os.ErrNotExist
}

func stripSQLComments(input string) string {
	var b strings.Builder
	scanner := bufio.NewScanner(strings.NewReader(input))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		b.WriteString(scanner.Text())
		b.WriteString("\n")
	}
	return b.String()
}

func splitSQL(input string) []string {
	var out []string
	for _, p := range strings.Split(input, ";") {
		if stmt := strings.TrimSpace(p); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}
