// Package currency converts submitted expense amounts into a company's
// reporting currency.
package currency

import (
	"context"
	"errors"
)

var (
	// ErrRateUnavailable is returned when neither the live provider nor the
	// static fallback table can produce a rate for the requested pair.
	// Callers treat it as an upstream failure; amounts are never passed
	// through unconverted because routing thresholds depend on them.
	ErrRateUnavailable = errors.New("exchange rate unavailable")

	ErrInvalidCurrency = errors.New("invalid currency code")
)

// Converter resolves a conversion of amount from one currency into another.
type Converter interface {
	Convert(ctx context.Context, amount float64, from, to string) (float64, error)
}

// RateProvider fetches live rates keyed by a base currency.
type RateProvider interface {
	Rates(ctx context.Context, base string) (map[string]float64, error)
}
