package config

// Dunning bounds.
const (
	DefaultOverdueDays           = 3
	DefaultReminderIntervalHours = 24
	DefaultMaxReminders          = 3
	DefaultBatchSize             = 25
	MaxBatchSize                 = 200
)

// DunningConfig holds the process-wide reminder thresholds.
type DunningConfig struct {
	OverdueDays           int `yaml:"overdue_days"`
	ReminderIntervalHours int `yaml:"reminder_interval_hours"`
	MaxReminders          int `yaml:"max_reminders"`
	BatchSize             int `yaml:"batch_size"`
	// Schedule is a cron spec with seconds, used by `billingctl dunning schedule`.
	Schedule string `yaml:"schedule"`
}

// Normalize fills zero values with defaults and clamps every threshold.
func (c DunningConfig) Normalize() DunningConfig {
	c.OverdueDays = clamp(c.OverdueDays, DefaultOverdueDays, 1, 30)
	c.ReminderIntervalHours = clamp(c.ReminderIntervalHours, DefaultReminderIntervalHours, 1, 168)
	c.MaxReminders = clamp(c.MaxReminders, DefaultMaxReminders, 1, 10)
	c.BatchSize = clamp(c.BatchSize, DefaultBatchSize, 1, MaxBatchSize)
	if c.Schedule == "" {
		c.Schedule = "0 0 * * * *"
	}
	return c
}

func clamp(value, fallback, min, max int) int {
	if value == 0 {
		value = fallback
	}
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
