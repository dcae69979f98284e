package alerts

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lotline/internal/core/id"
)

func candidate(priority Priority, days int) Candidate {
	return Candidate{
		Type:        TypeExpiry,
		Priority:    priority,
		ReferenceID: id.New(),
		Message:     "test",
		TriggeredAt: time.Now(),
		Details: map[string]any{
			"days_to_expiry": days,
		},
	}
}

func TestNewFilter_RejectsInvalidExpressions(t *testing.T) {
	tests := []struct {
		name string
		expr string
	}{
		{"empty", ""},
		{"syntax error", "priority =="},
		{"unknown variable", "severity == 'high'"},
		{"non-boolean result", "message"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFilter(tt.expr)
			assert.Error(t, err)
		})
	}
}

func TestFilter_Match(t *testing.T) {
	filter, err := NewFilter(`type == "expiry" && details.days_to_expiry < 3`)
	require.NoError(t, err)

	keep, err := filter.Match(&Candidate{
		Type: TypeExpiry, Priority: PriorityHigh,
		Details: map[string]any{"days_to_expiry": 2},
	})
	require.NoError(t, err)
	assert.True(t, keep)

	keep, err = filter.Match(&Candidate{
		Type: TypeExpiry, Priority: PriorityLow,
		Details: map[string]any{"days_to_expiry": 10},
	})
	require.NoError(t, err)
	assert.False(t, keep)
}

func TestFilter_Apply(t *testing.T) {
	filter, err := NewFilter(`priority == "high"`)
	require.NoError(t, err)

	in := []Candidate{
		candidate(PriorityHigh, 1),
		candidate(PriorityLow, 12),
		candidate(PriorityHigh, 2),
	}
	out, err := filter.Apply(in)
	require.NoError(t, err)
	assert.Len(t, out, 2)
}

func TestFilter_NilKeepsEverything(t *testing.T) {
	var filter *Filter
	in := []Candidate{candidate(PriorityLow, 5)}
	out, err := filter.Apply(in)
	require.NoError(t, err)
	assert.Len(t, out, 1)
}
