// README: Phase journal backed by PostgreSQL.
package booking

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"rideflow/internal/types"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) AppendEvent(ctx context.Context, e *PhaseEvent) error {
	return s.db.QueryRow(ctx, `
        INSERT INTO booking_phase_events (
            session_id, ride_id, from_phase, to_phase, created_at
        ) VALUES ($1, $2, $3, $4, $5)
        RETURNING id`,
		e.SessionID,
		toStringPtr(e.RideID),
		string(e.FromPhase),
		string(e.ToPhase),
		e.CreatedAt,
	).Scan(&e.ID)
}

// ListEvents returns a session's most recent transitions, newest first.
func (s *Store) ListEvents(ctx context.Context, sessionID string, limit int) ([]PhaseEvent, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := s.db.Query(ctx, `
        SELECT id, session_id, COALESCE(ride_id, ''), from_phase, to_phase, created_at
        FROM booking_phase_events
        WHERE session_id = $1
        ORDER BY created_at DESC, id DESC
        LIMIT $2`, sessionID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PhaseEvent
	for rows.Next() {
		var e PhaseEvent
		var rideID, from, to string
		if err := rows.Scan(&e.ID, &e.SessionID, &rideID, &from, &to, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.RideID = types.ID(rideID)
		e.FromPhase = Phase(from)
		e.ToPhase = Phase(to)
		out = append(out, e)
	}
	return out, rows.Err()
}

func toStringPtr(id types.ID) *string {
	if id == "" {
		return nil
	}
	v := string(id)
	return &v
}
