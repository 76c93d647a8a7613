package payouts

import "github.com/google/uuid"

// Outcome is the coarse result of a release attempt.
type Outcome string

const (
	OutcomeReleased Outcome = "RELEASED"
	OutcomeSkipped  Outcome = "SKIPPED"
	OutcomeFailed   Outcome = "FAILED"
)

// Machine-readable reasons carried in Result.Error.
const (
	ReasonClaimFailed              = "CLAIM_FAILED"
	ReasonNotDue                   = "NOT_DUE"
	ReasonRetryScheduled           = "RETRY_SCHEDULED"
	ReasonNotFound                 = "NOT_FOUND"
	ReasonInvalidRecipientOrAmount = "INVALID_RECIPIENT_OR_AMOUNT"
	ReasonOnboardingIncomplete     = "CONNECT_ONBOARDING_INCOMPLETE"
	ReasonInsufficientBalance      = "INSUFFICIENT_BALANCE"
	ReasonGatewayError             = "GATEWAY_ERROR"
	ReasonClaimLost                = "CLAIM_LOST"
	ReasonStoreError               = "STORE_ERROR"
	ReasonInternalError            = "INTERNAL_ERROR"
	ReasonReleasingTimeout         = "RELEASING_TIMEOUT"
)

// Result reports what happened to a single payout.
type Result struct {
	PayoutID   uuid.UUID `json:"id"`
	Status     Outcome   `json:"status"`
	TransferID string    `json:"transferId,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// ReleaseOptions tunes a manual release.
type ReleaseOptions struct {
	// Force allows BLOCKED payouts and ignores holdUntil/nextAttemptAt.
	Force bool `json:"force"`
}

func released(id uuid.UUID, transferID string) Result {
	return Result{PayoutID: id, Status: OutcomeReleased, TransferID: transferID}
}

func skipped(id uuid.UUID, reason string) Result {
	return Result{PayoutID: id, Status: OutcomeSkipped, Error: reason}
}

func failed(id uuid.UUID, reason string) Result {
	return Result{PayoutID: id, Status: OutcomeFailed, Error: reason}
}
