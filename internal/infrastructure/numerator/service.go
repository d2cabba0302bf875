// Package numerator provides the PostgreSQL implementation of document numbering.
// It implements core/numerator.Generator over the sys_sequences table.
package numerator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	corenumerator "supplyhub/internal/core/numerator"
)

// Querier interface for database operations.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type cachedRange struct {
	current int64
	max     int64
}

// Service hands out sequential numbers.
//
// Strict numbers are taken through the caller's transaction, so a rolled
// back document releases its number and the sequence stays gapless.
// Cached ranges are reserved through the pool in their own statement: a
// range kept in memory must never depend on a transaction that may roll back.
type Service struct {
	txQuerier func(ctx context.Context) Querier
	pool      Querier

	cacheMu sync.Mutex
	ranges  map[string]*cachedRange
}

var _ corenumerator.Generator = (*Service)(nil)

// New creates the service. txQuerier returns the transaction carried by ctx
// (or the pool outside one); pool is used for range reservations.
func New(txQuerier func(ctx context.Context) Querier, pool Querier) *Service {
	return &Service{
		txQuerier: txQuerier,
		pool:      pool,
		ranges:    make(map[string]*cachedRange),
	}
}

// GetNextNumber generates the next document number, e.g. SUP-000042-2026.
func (s *Service) GetNextNumber(ctx context.Context, cfg corenumerator.Config, opts *corenumerator.Options, period time.Time) (string, error) {
	if s == nil {
		return "", errors.New("numerator service is not initialized")
	}
	if opts == nil {
		opts = corenumerator.DefaultOptions()
	}

	key := buildKey(cfg, period)

	var (
		num int64
		err error
	)
	switch opts.Strategy {
	case corenumerator.StrategyCached:
		num, err = s.getNextCached(ctx, key, opts.RangeSize)
	default:
		num, err = s.getNextStrict(ctx, key)
	}
	if err != nil {
		return "", err
	}

	return FormatNumber(cfg, period, num), nil
}

const upsertSequence = `
	INSERT INTO sys_sequences (key, current_val)
	VALUES ($1, $2)
	ON CONFLICT (key) DO UPDATE SET current_val = sys_sequences.current_val + $2, updated_at = NOW()
	RETURNING current_val`

// getNextStrict increments the counter row, which stays locked until the
// caller's transaction ends.
func (s *Service) getNextStrict(ctx context.Context, key string) (int64, error) {
	var num int64
	if err := s.txQuerier(ctx).QueryRow(ctx, upsertSequence, key, int64(1)).Scan(&num); err != nil {
		return 0, fmt.Errorf("strict next %s: %w", key, err)
	}
	return num, nil
}

// getNextCached serves from memory, reserving a new range when exhausted.
func (s *Service) getNextCached(ctx context.Context, key string, size int64) (int64, error) {
	if size <= 0 {
		size = 50
	}

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	rng, ok := s.ranges[key]
	if !ok {
		rng = &cachedRange{}
		s.ranges[key] = rng
	}

	if rng.current >= rng.max {
		var newMax int64
		if err := s.pool.QueryRow(ctx, upsertSequence, key, size).Scan(&newMax); err != nil {
			return 0, fmt.Errorf("reserve range %s: %w", key, err)
		}
		// The reserved range is (newMax-size, newMax].
		rng.current = newMax - size
		rng.max = newMax
	}

	rng.current++
	return rng.current, nil
}

// SetNextNumber makes value the next number issued for cfg in period.
func (s *Service) SetNextNumber(ctx context.Context, cfg corenumerator.Config, period time.Time, value int64) error {
	key := buildKey(cfg, period)

	var result int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO sys_sequences (key, current_val)
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET current_val = $2, updated_at = NOW()
		RETURNING current_val
	`, key, value-1).Scan(&result)

	s.cacheMu.Lock()
	delete(s.ranges, key)
	s.cacheMu.Unlock()

	if err != nil {
		return fmt.Errorf("set next %s: %w", key, err)
	}
	return nil
}

// buildKey creates the sequence key based on config and period.
func buildKey(cfg corenumerator.Config, period time.Time) string {
	switch cfg.ResetPeriod {
	case corenumerator.ResetMonth:
		return fmt.Sprintf("%s_%s", cfg.Prefix, period.Format("2006_01"))
	case corenumerator.ResetYear:
		return fmt.Sprintf("%s_%s", cfg.Prefix, period.Format("2006"))
	default:
		return cfg.Prefix
	}
}

// FormatNumber renders num according to cfg.
func FormatNumber(cfg corenumerator.Config, period time.Time, num int64) string {
	padWidth := cfg.PadWidth
	if padWidth <= 0 {
		padWidth = 6
	}

	switch cfg.Year {
	case corenumerator.YearPrefix:
		return fmt.Sprintf("%s-%s-%0*d", cfg.Prefix, period.Format("2006"), padWidth, num)
	case corenumerator.YearSuffix:
		return fmt.Sprintf("%s-%0*d-%s", cfg.Prefix, padWidth, num, period.Format("2006"))
	default:
		return fmt.Sprintf("%s-%0*d", cfg.Prefix, padWidth, num)
	}
}
