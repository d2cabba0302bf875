package numerator

import (
	"context"
	"time"
)

// Generator produces sequential document numbers.
// The implementation lives in infrastructure/numerator.
type Generator interface {
	// GetNextNumber generates the next number for cfg within period.
	GetNextNumber(ctx context.Context, cfg Config, opts *Options, period time.Time) (string, error)

	// SetNextNumber moves the counter (used when importing legacy numbers).
	SetNextNumber(ctx context.Context, cfg Config, period time.Time, value int64) error
}
