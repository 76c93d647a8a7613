package enums

import "fmt"

// PayoutEventType maps to the payout_event_type enum in Postgres.
type PayoutEventType string

const (
	PayoutEventCreated        PayoutEventType = "created"
	PayoutEventClaimed        PayoutEventType = "claimed"
	PayoutEventReleased       PayoutEventType = "released"
	PayoutEventRetryScheduled PayoutEventType = "retry_scheduled"
	PayoutEventCancelled      PayoutEventType = "cancelled"
	PayoutEventBlocked        PayoutEventType = "blocked"
	PayoutEventUnblocked      PayoutEventType = "unblocked"
	PayoutEventReclaimed      PayoutEventType = "reclaimed"
	PayoutEventEscalated      PayoutEventType = "escalated"
)

var validPayoutEventTypes = []PayoutEventType{
	PayoutEventCreated,
	PayoutEventClaimed,
	PayoutEventReleased,
	PayoutEventRetryScheduled,
	PayoutEventCancelled,
	PayoutEventBlocked,
	PayoutEventUnblocked,
	PayoutEventReclaimed,
	PayoutEventEscalated,
}

// IsValid reports whether the value matches the canonical payout event enum.
func (t PayoutEventType) IsValid() bool {
	for _, candidate := range validPayoutEventTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParsePayoutEventType converts raw input into PayoutEventType.
func ParsePayoutEventType(value string) (PayoutEventType, error) {
	for _, candidate := range validPayoutEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payout event type %q", value)
}
