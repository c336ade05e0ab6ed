// README: Active-ride query. Explicit refetch only; concurrent refetches share one call.
package ride

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"rideflow/internal/types"
)

type QueryState string

const (
	QueryLoading QueryState = "loading"
	QueryLoaded  QueryState = "loaded"
	QueryError   QueryState = "error"
)

type Fetcher interface {
	ActiveRides(ctx context.Context) ([]Record, error)
}

// Result is a point-in-time view of the query. Record is the last successfully
// loaded active record and may be stale when State is QueryError.
type Result struct {
	State   QueryState
	Record  *Record
	Err     error
	HasData bool
	Version uint64
}

type Query struct {
	fetch   Fetcher
	role    types.Role
	timeout time.Duration
	now     func() time.Time
	group   singleflight.Group

	mu     sync.RWMutex
	result Result
}

func NewQuery(fetch Fetcher, role types.Role, timeout time.Duration, now func() time.Time) *Query {
	if now == nil {
		now = time.Now
	}
	return &Query{
		fetch:   fetch,
		role:    role,
		timeout: timeout,
		now:     now,
		result:  Result{State: QueryLoading},
	}
}

func (q *Query) Result() Result {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.result
}

// Refetch loads the active record. Calls that overlap an in-flight fetch wait
// for it and share its outcome.
func (q *Query) Refetch(ctx context.Context) error {
	_, err, _ := q.group.Do("active", func() (any, error) {
		fctx := ctx
		if q.timeout > 0 {
			var cancel context.CancelFunc
			fctx, cancel = context.WithTimeout(ctx, q.timeout)
			defer cancel()
		}
		records, err := q.fetch.ActiveRides(fctx)

		q.mu.Lock()
		defer q.mu.Unlock()
		q.result.Version++
		if err != nil {
			q.result.State = QueryError
			q.result.Err = err
			return nil, err
		}
		q.result.State = QueryLoaded
		q.result.Err = nil
		q.result.HasData = true
		q.result.Record = SelectActive(records, q.role, q.now())
		return nil, nil
	})
	return err
}
