package entity

import "time"

// DunningSummary reports one dunning batch.
type DunningSummary struct {
	Evaluated             int                 `json:"evaluated"`
	RemindersSent         int                 `json:"reminders_sent"`
	DryRun                bool                `json:"dry_run"`
	OverdueDays           int                 `json:"overdue_days"`
	ReminderIntervalHours int                 `json:"reminder_interval_hours"`
	MaxReminders          int                 `json:"max_reminders"`
	Entries               []DunningOrderEntry `json:"entries"`
}

// DunningOrderEntry is one reminded order.
type DunningOrderEntry struct {
	OrderID        string    `json:"order_id"`
	ReminderCount  int       `json:"reminder_count"`
	LastReminderAt time.Time `json:"last_reminder_at"`
}
