// Package numerator provides document auto-numbering service.
// Numbers are scoped per tenant and reset period, e.g. ADJ-2025-00042.
package numerator

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"lotline/internal/core/identity"
)

// Strategy defines the numbering generation strategy.
type Strategy int

const (
	// StrategyStrict uses UPSERT ... RETURNING for every number.
	// Guarantees sequential numbers without gaps.
	// Slower, suitable for accounting-relevant documents.
	StrategyStrict Strategy = iota

	// StrategyCached allocates ranges of numbers in memory.
	// Much faster, but may produce gaps if the application restarts.
	StrategyCached
)

// Options configuration for number generation.
type Options struct {
	// Strategy to use for number generation
	Strategy Strategy
	// RangeSize is the number of IDs to allocate at once in Cached strategy.
	// Default is 50.
	RangeSize int64
}

// DefaultOptions returns standard options (Strict).
func DefaultOptions() *Options {
	return &Options{
		Strategy: StrategyStrict,
	}
}

// Querier interface for database operations.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// QuerierProvider resolves the querier for the current request.
// When an ambient transaction is present in the context, the provider
// must return it so the allocated number commits or rolls back with
// the document it numbers.
type QuerierProvider func(ctx context.Context) Querier

type cachedRange struct {
	current int64
	max     int64
}

// Service provides document numbering functionality.
type Service struct {
	provider QuerierProvider

	cacheMu sync.Mutex
	// ranges keyed by "tenantID:PREFIX_2006" so a shared Service
	// instance never mixes tenants.
	ranges map[string]*cachedRange
}

// New creates a numerator service backed by a static querier.
// Use for single-connection or testing scenarios.
func New(querier Querier) *Service {
	return &Service{
		provider: func(context.Context) Querier { return querier },
		ranges:   make(map[string]*cachedRange),
	}
}

// NewWithProvider creates a numerator service that resolves the querier
// per call, joining the ambient transaction when one exists.
func NewWithProvider(provider QuerierProvider) *Service {
	return &Service{
		provider: provider,
		ranges:   make(map[string]*cachedRange),
	}
}

// Config holds numbering configuration.
type Config struct {
	// Prefix added to all numbers (e.g., "ADJ")
	Prefix string

	// IncludeYear adds year to the number
	IncludeYear bool

	// PadWidth is the minimum number width (default 5)
	PadWidth int

	// ResetPeriod: "year", "month", "never"
	ResetPeriod string
}

// DefaultConfig returns sensible defaults.
func DefaultConfig(prefix string) Config {
	return Config{
		Prefix:      prefix,
		IncludeYear: true,
		PadWidth:    5,
		ResetPeriod: "year",
	}
}

// GetNextNumber generates the next document number.
// Pattern: PREFIX-YEAR-XXXXX (e.g., ADJ-2025-00001)
//
// Supports Strict (DB-level) and Cached (Memory-level) strategies.
func (s *Service) GetNextNumber(ctx context.Context, cfg Config, opts *Options, period time.Time) (string, error) {
	if s == nil {
		return "", fmt.Errorf("numerator service is not initialized")
	}

	if opts == nil {
		opts = DefaultOptions()
	}

	tenantID := identity.GetTenantID(ctx)
	if tenantID == "" {
		return "", fmt.Errorf("numerator: no tenant in context")
	}

	key := s.buildKey(cfg, period)
	cacheKey := fmt.Sprintf("%s:%s", tenantID, key)

	var num int64
	var err error

	switch opts.Strategy {
	case StrategyCached:
		num, err = s.getNextCached(ctx, tenantID, key, cacheKey, opts)
	case StrategyStrict:
		fallthrough
	default:
		num, err = s.getNextStrict(ctx, tenantID, key, 1)
	}

	if err != nil {
		return "", err
	}

	return s.formatNumber(cfg, period, num), nil
}

// getNextStrict fetches the next number directly from DB using UPSERT + RETURNING.
// The UPDATE arm takes a row lock, so two concurrent callers within the
// same (tenant, key) serialize here and never see the same value.
func (s *Service) getNextStrict(ctx context.Context, tenantID, key string, increment int64) (int64, error) {
	querier := s.provider(ctx)
	var num int64

	err := querier.QueryRow(ctx, `
        INSERT INTO doc_sequences (tenant_id, sequence_key, current_val)
        VALUES ($1, $2, $3)
        ON CONFLICT (tenant_id, sequence_key)
        DO UPDATE SET current_val = doc_sequences.current_val + $3
        RETURNING current_val
	`, tenantID, key, increment).Scan(&num)

	if err != nil {
		return 0, fmt.Errorf("strict next: %w", err)
	}
	return num, nil
}

// getNextCached fetches next number from memory, refilling from DB if needed.
func (s *Service) getNextCached(ctx context.Context, tenantID, dbKey, cacheKey string, opts *Options) (int64, error) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	rng, exists := s.ranges[cacheKey]
	if !exists {
		rng = &cachedRange{}
		s.ranges[cacheKey] = rng
	}

	if rng.current >= rng.max {
		size := opts.RangeSize
		if size <= 0 {
			size = 50
		}

		// current_val in doc_sequences tracks the last allocated number,
		// so bumping by size reserves (old_val+1 .. old_val+size).
		newMax, err := s.getNextStrict(ctx, tenantID, dbKey, size)
		if err != nil {
			return 0, fmt.Errorf("reserve range: %w", err)
		}

		rng.current = newMax - size
		rng.max = newMax
	}

	rng.current++
	return rng.current, nil
}

// SetNextNumber sets the sequence value (for migration purposes).
func (s *Service) SetNextNumber(ctx context.Context, cfg Config, period time.Time, value int64) error {
	tenantID := identity.GetTenantID(ctx)
	if tenantID == "" {
		return fmt.Errorf("numerator: no tenant in context")
	}

	key := s.buildKey(cfg, period)
	querier := s.provider(ctx)

	var result int64
	err := querier.QueryRow(ctx, `
		INSERT INTO doc_sequences (tenant_id, sequence_key, current_val)
		VALUES ($1, $2, $3)
		ON CONFLICT (tenant_id, sequence_key) DO UPDATE SET current_val = $3
		RETURNING current_val
	`, tenantID, key, value).Scan(&result)

	s.cacheMu.Lock()
	delete(s.ranges, fmt.Sprintf("%s:%s", tenantID, key))
	s.cacheMu.Unlock()

	return err
}

// buildKey creates the sequence key based on config and period.
func (s *Service) buildKey(cfg Config, period time.Time) string {
	switch cfg.ResetPeriod {
	case "month":
		return fmt.Sprintf("%s_%s", cfg.Prefix, period.Format("2006_01"))
	case "year":
		return fmt.Sprintf("%s_%s", cfg.Prefix, period.Format("2006"))
	default:
		return cfg.Prefix
	}
}

// formatNumber creates the final number string.
func (s *Service) formatNumber(cfg Config, period time.Time, num int64) string {
	padWidth := cfg.PadWidth
	if padWidth == 0 {
		padWidth = 5
	}

	if cfg.IncludeYear {
		return fmt.Sprintf("%s-%s-%0*d", cfg.Prefix, period.Format("2006"), padWidth, num)
	}
	return fmt.Sprintf("%s-%0*d", cfg.Prefix, padWidth, num)
}

// ParseNumber extracts the numeric part from a formatted number
// (the segment after the last dash). Returns -1 if parsing fails.
func ParseNumber(formatted string) int64 {
	idx := strings.LastIndexByte(formatted, '-')
	if idx < 0 || idx == len(formatted)-1 {
		return -1
	}

	num, err := strconv.ParseInt(formatted[idx+1:], 10, 64)
	if err != nil || num < 0 {
		return -1
	}
	return num
}
