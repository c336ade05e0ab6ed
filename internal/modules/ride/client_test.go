package ride

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rideflow/internal/backend"
	"rideflow/internal/modules/location"
	"rideflow/internal/types"
)

type recordedCall struct {
	Method string
	Path   string
	Body   map[string]any
}

func newBackend(t *testing.T, respond func(w http.ResponseWriter, r *http.Request)) (*Client, *[]recordedCall) {
	t.Helper()
	var mu sync.Mutex
	calls := []recordedCall{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var body map[string]any
		_ = json.Unmarshal(raw, &body)
		mu.Lock()
		calls = append(calls, recordedCall{Method: r.Method, Path: r.URL.Path, Body: body})
		mu.Unlock()
		respond(w, r)
	}))
	t.Cleanup(srv.Close)
	return NewClient(backend.New(srv.URL, time.Second)), &calls
}

func TestCreateRide(t *testing.T) {
	c, calls := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"success":true,"data":{"rideId":"ride-77"}}`))
	})
	id, err := c.CreateRide(context.Background(), CreateCommand{
		Pickup:   location.Location{Name: "Gulshan", Address: "Gulshan, Dhaka", Coordinates: types.Point{Lat: 23.8103, Lng: 90.4125}},
		Dropoff:  location.Location{Name: "Dhanmondi", Address: "Dhanmondi, Dhaka", Coordinates: types.Point{Lat: 23.7461, Lng: 90.3742}},
		Notes:    " gate 2 ",
		RideType: "regular",
	})
	require.NoError(t, err)
	assert.Equal(t, types.ID("ride-77"), id)

	require.Len(t, *calls, 1)
	call := (*calls)[0]
	assert.Equal(t, http.MethodPost, call.Method)
	assert.Equal(t, "/rides", call.Path)
	assert.Equal(t, "gate 2", call.Body["notes"])
	assert.Equal(t, "regular", call.Body["rideType"])
	pickup := call.Body["pickupLocation"].(map[string]any)
	assert.Equal(t, []any{90.4125, 23.8103}, pickup["coordinates"])
}

func TestCreateRideWithoutIDIsRemoteFailure(t *testing.T) {
	c, _ := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true}`))
	})
	_, err := c.CreateRide(context.Background(), CreateCommand{})
	assert.ErrorIs(t, err, backend.ErrRemote)
	assert.ErrorIs(t, err, ErrNoRideID)
}

func TestMutatingCalls(t *testing.T) {
	c, calls := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true}`))
	})
	ctx := context.Background()
	require.NoError(t, c.CancelRide(ctx, "r1", "Cancelled by rider"))
	require.NoError(t, c.RateRide(ctx, "r1", 5, "Great ride"))
	require.NoError(t, c.ConfirmPayment(ctx, "r1"))

	require.Len(t, *calls, 3)
	assert.Equal(t, recordedCall{Method: http.MethodPatch, Path: "/rides/r1/cancel", Body: map[string]any{"reason": "Cancelled by rider"}}, (*calls)[0])
	assert.Equal(t, "/rides/r1/rate", (*calls)[1].Path)
	assert.Equal(t, float64(5), (*calls)[1].Body["rating"])
	assert.Equal(t, "Great ride", (*calls)[1].Body["feedback"])
	assert.Equal(t, http.MethodPost, (*calls)[2].Method)
	assert.Equal(t, "/rides/r1/confirm-payment", (*calls)[2].Path)
}

func TestInputValidationBeforeNetwork(t *testing.T) {
	c, calls := newBackend(t, func(w http.ResponseWriter, r *http.Request) {})
	ctx := context.Background()
	assert.ErrorIs(t, c.CancelRide(ctx, "undefined", "x"), ErrInvalidRideID)
	assert.ErrorIs(t, c.RateRide(ctx, "r1", 0, ""), ErrInvalidRating)
	assert.ErrorIs(t, c.RateRide(ctx, "r1", 6, ""), ErrInvalidRating)
	assert.ErrorIs(t, c.ConfirmPayment(ctx, ""), ErrInvalidRideID)
	assert.Empty(t, *calls)
}

type slowFetcher struct {
	calls   atomic.Int32
	release chan struct{}
	records []Record
	err     error
}

func (f *slowFetcher) ActiveRides(ctx context.Context) ([]Record, error) {
	f.calls.Add(1)
	if f.release != nil {
		<-f.release
	}
	return f.records, f.err
}

func TestQueryStartsLoading(t *testing.T) {
	q := NewQuery(&slowFetcher{}, types.RoleRider, time.Second, nil)
	res := q.Result()
	assert.Equal(t, QueryLoading, res.State)
	assert.False(t, res.HasData)
}

func TestQueryRefetchCollapsesConcurrentCalls(t *testing.T) {
	f := &slowFetcher{release: make(chan struct{}), records: []Record{{ID: "r1", Status: StatusAccepted}}}
	q := NewQuery(f, types.RoleRider, time.Second, nil)

	var wg sync.WaitGroup
	var started atomic.Int32
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			started.Add(1)
			assert.NoError(t, q.Refetch(context.Background()))
		}()
	}
	require.Eventually(t, func() bool { return started.Load() == 5 && f.calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(f.release)
	wg.Wait()

	assert.Equal(t, int32(1), f.calls.Load())
	res := q.Result()
	assert.Equal(t, QueryLoaded, res.State)
	require.NotNil(t, res.Record)
	assert.Equal(t, types.ID("r1"), res.Record.ID)
}

func TestQueryErrorKeepsLastRecord(t *testing.T) {
	f := &slowFetcher{records: []Record{{ID: "r1", Status: StatusAccepted}}}
	q := NewQuery(f, types.RoleRider, time.Second, nil)
	require.NoError(t, q.Refetch(context.Background()))

	f.err = backend.ErrRemote
	require.Error(t, q.Refetch(context.Background()))
	res := q.Result()
	assert.Equal(t, QueryError, res.State)
	assert.True(t, res.HasData)
	require.NotNil(t, res.Record)
	assert.Equal(t, uint64(2), res.Version)
}
