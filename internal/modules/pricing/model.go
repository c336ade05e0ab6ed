// README: Ride tiers, the canonical rate table and fare quotes.
package pricing

import (
	"errors"
	"strings"

	"rideflow/internal/types"
)

var ErrMissingLocation = errors.New("pickup and dropoff are required")

type Tier string

const (
	TierRegular Tier = "regular"
	TierPremium Tier = "premium"
	TierLuxury  Tier = "luxury"
)

// ParseTier resolves tier names and their legacy aliases. Unknown names price as regular.
func ParseTier(v string) Tier {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "premium":
		return TierPremium
	case "luxury", "business":
		return TierLuxury
	default:
		return TierRegular
	}
}

type Rate struct {
	Tier     Tier
	BaseFare float64
	PerKm    float64
}

var rates = map[Tier]Rate{
	TierRegular: {Tier: TierRegular, BaseFare: 150, PerKm: 50},
	TierPremium: {Tier: TierPremium, BaseFare: 80, PerKm: 45},
	TierLuxury:  {Tier: TierLuxury, BaseFare: 120, PerKm: 70},
}

func RateFor(t Tier) Rate {
	if r, ok := rates[t]; ok {
		return r
	}
	return rates[TierRegular]
}

type Source string

const (
	SourceServer    Source = "server"
	SourceEstimated Source = "estimated"
)

const EstimatedNotice = "Using an estimated fare. The final fare may differ."

// Quote is an ephemeral fare for a pickup, dropoff and tier.
type Quote struct {
	Fare             types.Money `json:"fare"`
	DistanceKm       float64     `json:"distance"`
	EstimatedMinutes float64     `json:"estimatedTime"`
	Source           Source      `json:"source"`
	Notice           string      `json:"notice,omitempty"`
	Tier             Tier        `json:"tier"`
}

// Estimated reports whether the quote came from the local fallback.
func (q Quote) Estimated() bool { return q.Source == SourceEstimated }
