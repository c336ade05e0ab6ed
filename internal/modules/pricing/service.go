// README: Fare estimator: remote quote first, local haversine estimate on any failure.
package pricing

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"rideflow/internal/modules/location"
	"rideflow/internal/observability"
	"rideflow/internal/types"
)

type Service struct {
	remote   Quoter
	timeout  time.Duration
	currency string
	log      logrus.FieldLogger
}

// NewService builds the estimator. remote may be nil to always use the local table.
func NewService(remote Quoter, timeout time.Duration, currency string, log logrus.FieldLogger) *Service {
	if currency == "" {
		currency = types.DefaultCurrency
	}
	return &Service{remote: remote, timeout: timeout, currency: currency, log: log}
}

// Estimate never fails on remote errors; only missing or invalid locations are rejected.
func (s *Service) Estimate(ctx context.Context, pickup, dropoff *location.Location, tier Tier) (Quote, error) {
	if pickup == nil || dropoff == nil {
		return Quote{}, ErrMissingLocation
	}
	if err := pickup.Validate(); err != nil {
		return Quote{}, err
	}
	if err := dropoff.Validate(); err != nil {
		return Quote{}, err
	}
	tier = ParseTier(string(tier))

	if s.remote != nil {
		q, err := s.quoteRemote(ctx, *pickup, *dropoff, tier)
		if err == nil {
			observability.FareQuotes.WithLabelValues(string(SourceServer)).Inc()
			return q, nil
		}
		s.log.WithError(err).WithField("tier", tier).Warn("fare quote failed, using local estimate")
	}
	observability.FareQuotes.WithLabelValues(string(SourceEstimated)).Inc()
	return s.Fallback(*pickup, *dropoff, tier), nil
}

func (s *Service) quoteRemote(ctx context.Context, pickup, dropoff location.Location, tier Tier) (Quote, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	rq, err := s.remote.Quote(ctx, QuoteRequest{Pickup: pickup, Dropoff: dropoff, Tier: tier})
	if err != nil {
		return Quote{}, err
	}
	return Quote{
		Fare:             types.Money{Amount: rq.Fare, Currency: s.currency},
		DistanceKm:       rq.DistanceKm,
		EstimatedMinutes: rq.EstimatedMinutes,
		Source:           SourceServer,
		Tier:             tier,
	}, nil
}

// Fallback computes the deterministic local estimate: two minutes per km and
// the tier's base fare plus its per-km rate.
func (s *Service) Fallback(pickup, dropoff location.Location, tier Tier) Quote {
	km := location.DistanceKm(pickup, dropoff)
	rate := RateFor(ParseTier(string(tier)))
	return Quote{
		Fare:             types.Money{Amount: rate.BaseFare + km*rate.PerKm, Currency: s.currency},
		DistanceKm:       km,
		EstimatedMinutes: km * 2,
		Source:           SourceEstimated,
		Notice:           EstimatedNotice,
		Tier:             rate.Tier,
	}
}
