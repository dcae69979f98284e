package numerator

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"lotline/internal/core/identity"
)

// Mock objects
type mockRow struct {
	val int64
	err error
}

func (m *mockRow) Scan(dest ...any) error {
	if m.err != nil {
		return m.err
	}
	if len(dest) > 0 {
		if ptr, ok := dest[0].(*int64); ok {
			*ptr = m.val
		}
	}
	return nil
}

type mockQuerier struct {
	mu sync.Mutex
	// sequences simulates the doc_sequences table keyed by tenant:key
	sequences map[string]int64
	calls     int
}

func (m *mockQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sequences == nil {
		m.sequences = make(map[string]int64)
	}
	m.calls++

	// UPSERT args: (tenant_id, sequence_key, increment)
	tenantID, _ := args[0].(string)
	key, _ := args[1].(string)
	increment, _ := args[2].(int64)

	mapKey := fmt.Sprintf("%s:%s", tenantID, key)
	m.sequences[mapKey] += increment

	return &mockRow{val: m.sequences[mapKey]}
}

func testCtx(tenantID string) context.Context {
	return identity.WithIdentity(context.Background(), identity.Identity{
		TenantID: tenantID,
		ActorID:  "tester",
	})
}

func TestGetNextNumber_Strict(t *testing.T) {
	q := &mockQuerier{}
	svc := New(q)
	ctx := testCtx("t1")
	cfg := DefaultConfig("ADJ")
	period := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	num, err := svc.GetNextNumber(ctx, cfg, nil, period)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if num != "ADJ-2025-00001" {
		t.Errorf("expected ADJ-2025-00001, got %s", num)
	}

	num, err = svc.GetNextNumber(ctx, cfg, nil, period)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if num != "ADJ-2025-00002" {
		t.Errorf("expected ADJ-2025-00002, got %s", num)
	}
}

func TestGetNextNumber_TenantIsolation(t *testing.T) {
	q := &mockQuerier{}
	svc := New(q)
	cfg := DefaultConfig("ADJ")
	period := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	// Each tenant gets its own sequence starting at 1.
	num1, err := svc.GetNextNumber(testCtx("t1"), cfg, nil, period)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	num2, err := svc.GetNextNumber(testCtx("t2"), cfg, nil, period)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if num1 != "ADJ-2025-00001" {
		t.Errorf("expected ADJ-2025-00001 for t1, got %s", num1)
	}
	if num2 != "ADJ-2025-00001" {
		t.Errorf("expected ADJ-2025-00001 for t2, got %s", num2)
	}
}

func TestGetNextNumber_YearReset(t *testing.T) {
	q := &mockQuerier{}
	svc := New(q)
	ctx := testCtx("t1")
	cfg := DefaultConfig("ADJ")

	num, err := svc.GetNextNumber(ctx, cfg, nil, time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if num != "ADJ-2025-00001" {
		t.Errorf("expected ADJ-2025-00001, got %s", num)
	}

	// January of the next year uses a fresh sequence key.
	num, err = svc.GetNextNumber(ctx, cfg, nil, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if num != "ADJ-2026-00001" {
		t.Errorf("expected ADJ-2026-00001, got %s", num)
	}
}

func TestGetNextNumber_NoTenant(t *testing.T) {
	q := &mockQuerier{}
	svc := New(q)

	_, err := svc.GetNextNumber(context.Background(), DefaultConfig("ADJ"), nil, time.Now())
	if err == nil {
		t.Fatal("expected error when no tenant in context")
	}
}

func TestGetNextNumber_Cached(t *testing.T) {
	q := &mockQuerier{}
	svc := New(q)
	ctx := testCtx("t1")
	cfg := DefaultConfig("ORD")
	period := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	opts := &Options{
		Strategy:  StrategyCached,
		RangeSize: 10,
	}

	// First call allocates the range 1..10 with a single DB roundtrip.
	num, err := svc.GetNextNumber(ctx, cfg, opts, period)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if num != "ORD-2025-00001" {
		t.Errorf("expected ORD-2025-00001, got %s", num)
	}
	if q.calls != 1 {
		t.Errorf("expected 1 DB call, got %d", q.calls)
	}

	// Second call served from memory.
	num, err = svc.GetNextNumber(ctx, cfg, opts, period)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if num != "ORD-2025-00002" {
		t.Errorf("expected ORD-2025-00002, got %s", num)
	}
	if q.calls != 1 {
		t.Errorf("expected DB calls to stay 1, got %d", q.calls)
	}

	// Exhaust the range; the next call refills from DB.
	for i := 0; i < 8; i++ {
		_, _ = svc.GetNextNumber(ctx, cfg, opts, period)
	}
	num, err = svc.GetNextNumber(ctx, cfg, opts, period)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if num != "ORD-2025-00011" {
		t.Errorf("expected ORD-2025-00011, got %s", num)
	}
	if q.calls != 2 {
		t.Errorf("expected 2 DB calls, got %d", q.calls)
	}
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		formatted string
		want      int64
	}{
		{"ADJ-2025-00042", 42},
		{"ADJ-00007", 7},
		{"garbage", -1},
		{"ADJ-2025-", -1},
		{"ADJ-2025-x42", -1},
		{"", -1},
	}
	for _, tt := range tests {
		if got := ParseNumber(tt.formatted); got != tt.want {
			t.Errorf("ParseNumber(%q) = %d, expected %d", tt.formatted, got, tt.want)
		}
	}
}
