// Package numerator provides domain contracts for human-readable document numbers.
package numerator

// Strategy defines the numbering generation strategy.
type Strategy int

const (
	// StrategyStrict hits the sequence table for every number.
	// Sequential numbers without gaps; used for payments.
	StrategyStrict Strategy = iota

	// StrategyCached reserves ranges of numbers in memory.
	// May leave gaps after a restart; fine for orders and returns.
	StrategyCached
)

// Options configuration for number generation.
type Options struct {
	Strategy Strategy
	// RangeSize is the number of values reserved at once by StrategyCached.
	// Default is 50.
	RangeSize int64
}

// DefaultOptions returns standard options (Strict).
func DefaultOptions() *Options {
	return &Options{Strategy: StrategyStrict}
}

// YearPlacement controls where the year appears in a formatted number.
type YearPlacement int

const (
	YearNone   YearPlacement = iota
	YearPrefix               // PREFIX-YYYY-000001
	YearSuffix               // PREFIX-000001-YYYY
)

// Reset periods.
const (
	ResetNever = "never"
	ResetYear  = "year"
	ResetMonth = "month"
)

// Config holds numbering configuration.
type Config struct {
	// Prefix added to all numbers (e.g., "SUP", "RET", "PAY")
	Prefix string

	Year YearPlacement

	// PadWidth is the minimum width of the counter (default 6)
	PadWidth int

	// ResetPeriod: "year", "month", "never"
	ResetPeriod string
}

// DefaultConfig returns the PREFIX-000001-YYYY layout with a yearly reset.
func DefaultConfig(prefix string) Config {
	return Config{
		Prefix:      prefix,
		Year:        YearSuffix,
		PadWidth:    6,
		ResetPeriod: ResetYear,
	}
}
