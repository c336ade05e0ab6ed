// README: Common money value object used across modules.
package types

import "math"

const DefaultCurrency = "BDT"

type Money struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// Rounded returns the amount rounded to whole currency units, the way fares are shown.
func (m Money) Rounded() int64 {
	return int64(math.Round(m.Amount))
}
