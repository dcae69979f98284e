package alerts

// Config holds sweep thresholds, all in days.
type Config struct {
	// ExpiryEmitDays: lots with days-to-expiry at or below this emit a
	// candidate at all.
	ExpiryEmitDays int

	// ExpiryHighDays / ExpiryMediumDays derive expiry priority:
	// below High is high, below Medium is medium, otherwise low.
	// Expired lots are always critical.
	ExpiryHighDays   int
	ExpiryMediumDays int

	// StockHighDays / StockMediumDays derive low-stock priority from
	// estimated days of stock remaining.
	StockHighDays   int
	StockMediumDays int

	// UsageWindowDays is the trailing window for average daily usage.
	UsageWindowDays int
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{
		ExpiryEmitDays:   14,
		ExpiryHighDays:   3,
		ExpiryMediumDays: 7,
		StockHighDays:    3,
		StockMediumDays:  7,
		UsageWindowDays:  30,
	}
}

func (c Config) normalized() Config {
	d := DefaultConfig()
	if c.ExpiryEmitDays <= 0 {
		c.ExpiryEmitDays = d.ExpiryEmitDays
	}
	if c.ExpiryHighDays <= 0 {
		c.ExpiryHighDays = d.ExpiryHighDays
	}
	if c.ExpiryMediumDays <= c.ExpiryHighDays {
		c.ExpiryMediumDays = d.ExpiryMediumDays
	}
	if c.StockHighDays <= 0 {
		c.StockHighDays = d.StockHighDays
	}
	if c.StockMediumDays <= c.StockHighDays {
		c.StockMediumDays = d.StockMediumDays
	}
	if c.UsageWindowDays <= 0 {
		c.UsageWindowDays = d.UsageWindowDays
	}
	return c
}
