package model

import "time"

// OrderMetadata is the typed metadata stored on an order. Each log keeps
// its own last LogCap entries.
type OrderMetadata struct {
	Provider             string            `json:"provider,omitempty"`
	CourseID             string            `json:"courseId,omitempty"`
	CohortCode           string            `json:"cohortCode,omitempty"`
	SubscriptionPlanID   string            `json:"subscriptionPlanId,omitempty"`
	SubscriptionInterval *Interval         `json:"subscriptionInterval,omitempty"`
	TrialDays            int               `json:"trialDays,omitempty"`
	Locale               string            `json:"locale,omitempty"`
	Extra                map[string]string `json:"extra,omitempty"`

	Reminders      ReminderState                `json:"reminders"`
	DunningLog     BoundedLog[DunningEntry]     `json:"dunningLog"`
	SelfServiceLog BoundedLog[SelfServiceEntry] `json:"selfServiceLog"`
	PaymentLinks   BoundedLog[PaymentLinkEntry] `json:"paymentLinks"`
	Refunds        BoundedLog[RefundEntry]      `json:"refunds"`
	Anomalies      BoundedLog[AnomalyEntry]     `json:"anomalies"`
}

// ReminderState is the dunning counter.
type ReminderState struct {
	Count      int        `json:"count"`
	LastSentAt *time.Time `json:"lastSentAt,omitempty"`
}

type DunningMode string

const (
	DunningModeAuto   DunningMode = "auto"
	DunningModeDryRun DunningMode = "dry-run"
)

// Dunning next steps.
const (
	DunningNextFollowUp = "follow-up"
	DunningNextHandoff  = "handoff"
)

// DunningEntry records one reminder.
type DunningEntry struct {
	SentAt      time.Time   `json:"sentAt"`
	Mode        DunningMode `json:"mode"`
	Count       int         `json:"count"`
	OrderStatus OrderStatus `json:"orderStatus"`
	NextStep    string      `json:"nextStep"`
}

type SelfServiceAction string

const (
	SelfServiceCancel SelfServiceAction = "cancel"
	SelfServiceRefund SelfServiceAction = "refund"
)

type SelfServiceStatus string

const (
	SelfServiceSubmitted SelfServiceStatus = "submitted"
	SelfServiceScheduled SelfServiceStatus = "scheduled"
	SelfServiceProcessed SelfServiceStatus = "processed"
)

// SelfServiceEntry records one customer-initiated cancel or refund.
type SelfServiceEntry struct {
	ID          string            `json:"id"`
	Action      SelfServiceAction `json:"action"`
	Channel     string            `json:"channel"`
	Reason      string            `json:"reason,omitempty"`
	RequestedAt time.Time         `json:"requestedAt"`
	Status      SelfServiceStatus `json:"status"`
	EffectiveAt *time.Time        `json:"effectiveAt,omitempty"`
}

// PaymentLinkEntry records a payment link issued for an existing order.
type PaymentLinkEntry struct {
	ID          string       `json:"id"`
	URL         string       `json:"url"`
	Provider    ProviderType `json:"provider"`
	Locale      string       `json:"locale"`
	CreatedAt   time.Time    `json:"createdAt"`
	PaymentID   string       `json:"paymentId,omitempty"`
	ProviderRef string       `json:"providerRef,omitempty"`
	Simulated   bool         `json:"simulated"`
}

type RefundSource string

const (
	RefundSourceOperator    RefundSource = "operator"
	RefundSourceSelfService RefundSource = "self-service"
	RefundSourceProvider    RefundSource = "provider"
)

// RefundEntry records a refund applied to the order.
type RefundEntry struct {
	PaymentIDs  []string     `json:"paymentIds"`
	Reason      string       `json:"reason,omitempty"`
	Source      RefundSource `json:"source"`
	ProcessedAt time.Time    `json:"processedAt"`
}

// Anomaly kinds.
const (
	AnomalyDuplicateSettlement = "duplicate_settlement"
	AnomalyRejectedTransition  = "rejected_transition"
)

// AnomalyEntry flags payment events the order state could not absorb.
type AnomalyEntry struct {
	Kind        string        `json:"kind"`
	PaymentID   string        `json:"paymentId,omitempty"`
	ProviderRef string        `json:"providerRef,omitempty"`
	Status      PaymentStatus `json:"status,omitempty"`
	OrderStatus OrderStatus   `json:"orderStatus"`
	DetectedAt  time.Time     `json:"detectedAt"`
}
