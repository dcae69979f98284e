package reorder

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"lotline/internal/core/id"
	"lotline/internal/core/types"
)

func TestConfigValidate(t *testing.T) {
	leadTime := 5
	badLeadTime := -1

	valid := func() *Config {
		return &Config{
			TenantID:             "acme",
			ProductID:            id.New(),
			LocationID:           id.New(),
			ReorderPoint:         types.NewQuantityFromInt(100),
			MaximumStock:         types.NewQuantityFromInt(500),
			SafetyStock:          types.NewQuantityFromInt(20),
			SupplierLeadTimeDays: &leadTime,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"no lead time is fine", func(c *Config) { c.SupplierLeadTimeDays = nil }, ""},
		{"max equals reorder point", func(c *Config) { c.MaximumStock = c.ReorderPoint }, ""},
		{"missing tenant", func(c *Config) { c.TenantID = "" }, "tenant is required"},
		{"missing product", func(c *Config) { c.ProductID = id.ID{} }, "product is required"},
		{"negative reorder point", func(c *Config) { c.ReorderPoint = types.NewQuantityFromInt(-1) }, "must not be negative"},
		{"max below reorder point", func(c *Config) { c.MaximumStock = types.NewQuantityFromInt(50) }, "at or above the reorder point"},
		{"negative safety stock", func(c *Config) { c.SafetyStock = types.NewQuantityFromInt(-5) }, "safety stock"},
		{"negative lead time", func(c *Config) { c.SupplierLeadTimeDays = &badLeadTime }, "lead time"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
