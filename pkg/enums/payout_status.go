package enums

import "fmt"

// PayoutStatus maps to the payout_status enum in Postgres.
type PayoutStatus string

const (
	PayoutStatusHeld      PayoutStatus = "HELD"
	PayoutStatusReleasing PayoutStatus = "RELEASING"
	PayoutStatusReleased  PayoutStatus = "RELEASED"
	PayoutStatusBlocked   PayoutStatus = "BLOCKED"
	PayoutStatusCancelled PayoutStatus = "CANCELLED"
)

var validPayoutStatuses = []PayoutStatus{
	PayoutStatusHeld,
	PayoutStatusReleasing,
	PayoutStatusReleased,
	PayoutStatusBlocked,
	PayoutStatusCancelled,
}

// String implements fmt.Stringer.
func (s PayoutStatus) String() string {
	return string(s)
}

// IsValid reports whether the value matches the canonical payout status enum.
func (s PayoutStatus) IsValid() bool {
	for _, candidate := range validPayoutStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the payout can no longer be mutated by the release worker.
func (s PayoutStatus) IsTerminal() bool {
	return s == PayoutStatusReleased || s == PayoutStatusCancelled
}

// ParsePayoutStatus converts raw input into PayoutStatus.
func ParsePayoutStatus(value string) (PayoutStatus, error) {
	for _, candidate := range validPayoutStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payout status %q", value)
}
