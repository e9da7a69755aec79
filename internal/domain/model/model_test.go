package model

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoundedLog_KeepsLastEntries(t *testing.T) {
	var log BoundedLog[int]
	for i := 1; i <= LogCap+5; i++ {
		log.Append(i)
	}

	entries := log.Entries()
	assert.Len(t, entries, LogCap)
	assert.Equal(t, 6, entries[0])
	last, ok := log.Last()
	assert.True(t, ok)
	assert.Equal(t, LogCap+5, last)
}

func TestBoundedLog_UnmarshalTrims(t *testing.T) {
	raw := make([]string, 0, 30)
	for i := 0; i < 30; i++ {
		raw = append(raw, fmt.Sprintf("e%d", i))
	}
	data, err := json.Marshal(raw)
	require.NoError(t, err)

	var log BoundedLog[string]
	require.NoError(t, json.Unmarshal(data, &log))
	assert.Equal(t, LogCap, log.Len())
	assert.Equal(t, "e10", log.Entries()[0])

	empty, err := json.Marshal(BoundedLog[string]{})
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(empty))
}

func TestBoundedLog_AppendDoesNotAlias(t *testing.T) {
	base := NewBoundedLog(1, 2)
	copied := base
	copied.Append(3)

	assert.Equal(t, 2, base.Len())
	assert.Equal(t, 3, copied.Len())
}

func TestOrderStatus_Transitions(t *testing.T) {
	all := []OrderStatus{
		OrderStatusPending, OrderStatusRequiresAction, OrderStatusCompleted,
		OrderStatusCanceled, OrderStatusRefunded,
	}

	for _, from := range []OrderStatus{OrderStatusCompleted, OrderStatusCanceled, OrderStatusRefunded} {
		assert.False(t, from.CanTransitionTo(OrderStatusPending), from)
		assert.False(t, from.CanTransitionTo(OrderStatusRequiresAction), from)
	}
	assert.False(t, OrderStatusRefunded.CanTransitionTo(OrderStatusCompleted))
	assert.False(t, OrderStatusCanceled.CanTransitionTo(OrderStatusCompleted))
	assert.True(t, OrderStatusPending.CanTransitionTo(OrderStatusCompleted))
	assert.True(t, OrderStatusRequiresAction.CanTransitionTo(OrderStatusCompleted))
	assert.True(t, OrderStatusCompleted.CanTransitionTo(OrderStatusRefunded))

	for _, s := range all {
		assert.False(t, s.CanTransitionTo(s), "self transition %s", s)
	}
}

func TestPaymentStatus_CanBecome(t *testing.T) {
	tests := []struct {
		from, to PaymentStatus
		want     bool
	}{
		{PaymentStatusPending, PaymentStatusSucceeded, true},
		{PaymentStatusPending, PaymentStatusFailed, true},
		{PaymentStatusFailed, PaymentStatusSucceeded, true},
		{PaymentStatusFailed, PaymentStatusPending, true},
		{PaymentStatusSucceeded, PaymentStatusRefunded, true},
		{PaymentStatusSucceeded, PaymentStatusPending, false},
		{PaymentStatusSucceeded, PaymentStatusFailed, false},
		{PaymentStatusRefunded, PaymentStatusSucceeded, false},
		{PaymentStatusPending, PaymentStatusPending, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanBecome(tt.to))
		})
	}
}

func TestInterval_AddTo(t *testing.T) {
	tests := []struct {
		name     string
		interval Interval
		start    time.Time
		want     time.Time
	}{
		{
			name:     "month end clamps to february",
			interval: Interval{Unit: IntervalMonth, Count: 1},
			start:    time.Date(2025, 1, 31, 10, 0, 0, 0, time.UTC),
			want:     time.Date(2025, 2, 28, 10, 0, 0, 0, time.UTC),
		},
		{
			name:     "leap year february",
			interval: Interval{Unit: IntervalMonth, Count: 1},
			start:    time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
			want:     time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "three months across year",
			interval: Interval{Unit: IntervalMonth, Count: 3},
			start:    time.Date(2025, 11, 15, 0, 0, 0, 0, time.UTC),
			want:     time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "yearly keeps month and day",
			interval: Interval{Unit: IntervalYear, Count: 1},
			start:    time.Date(2025, 3, 14, 8, 30, 0, 0, time.UTC),
			want:     time.Date(2026, 3, 14, 8, 30, 0, 0, time.UTC),
		},
		{
			name:     "zero count means one",
			interval: Interval{Unit: IntervalMonth},
			start:    time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
			want:     time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.interval.AddTo(tt.start)
			assert.True(t, tt.want.Equal(got), "want %s got %s", tt.want, got)
			assert.False(t, got.Before(tt.start))
		})
	}
}

func TestOrder_UpdateMeta(t *testing.T) {
	var order Order
	order.UpdateMeta(func(m *OrderMetadata) {
		m.Provider = "stripe"
		m.Reminders.Count = 2
	})

	meta := order.Meta()
	assert.Equal(t, "stripe", meta.Provider)
	assert.Equal(t, 2, meta.Reminders.Count)

	data, err := json.Marshal(order.Metadata)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"dunningLog":[]`)
}
