package allocation

// Config holds the expiry classification thresholds, in days.
// The defaults mirror the alerting thresholds so a lot classified
// expiring_soon here is the same lot the expiry sweep escalates.
type Config struct {
	// ExpiringSoonDays: days-to-expiry below this is expiring_soon.
	ExpiringSoonDays int

	// ApproachingExpiryDays: days-to-expiry below this (and at or above
	// ExpiringSoonDays) is approaching_expiry. At or above is fresh.
	ApproachingExpiryDays int
}

// DefaultConfig returns the standard thresholds (7 / 30 days).
func DefaultConfig() Config {
	return Config{
		ExpiringSoonDays:      7,
		ApproachingExpiryDays: 30,
	}
}

func (c Config) normalized() Config {
	if c.ExpiringSoonDays <= 0 {
		c.ExpiringSoonDays = 7
	}
	if c.ApproachingExpiryDays <= c.ExpiringSoonDays {
		c.ApproachingExpiryDays = 30
	}
	return c
}
