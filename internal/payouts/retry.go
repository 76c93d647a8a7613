package payouts

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/stripe/stripe-go/v84"

	pkgstripe "github.com/angelmondragon/payouts-backend/pkg/stripe"
)

// ActionRequiredPrefix marks blocked reasons that need the recipient to act.
const ActionRequiredPrefix = "ACTION_REQUIRED"

const maxReasonLength = 180

// FailureClass buckets release failures by how long to wait before retrying.
type FailureClass string

const (
	FailureAccountNotReady     FailureClass = ReasonOnboardingIncomplete
	FailureInsufficientBalance FailureClass = ReasonInsufficientBalance
	FailureGateway             FailureClass = ReasonGatewayError
)

var backoffByClass = map[FailureClass]time.Duration{
	FailureInsufficientBalance: 60 * time.Minute,
	FailureGateway:             10 * time.Minute,
	FailureAccountNotReady:     360 * time.Minute,
}

var insufficientBalanceCodes = map[string]struct{}{
	string(stripe.ErrorCodeBalanceInsufficient): {},
	"insufficient_balance":                      {},
	"insufficient_funds":                        {},
}

// Backoff returns the delay before the next attempt for class.
func (c FailureClass) Backoff() time.Duration {
	if d, ok := backoffByClass[c]; ok {
		return d
	}
	return backoffByClass[FailureGateway]
}

// RetryPlan is the next scheduled attempt for a failed release.
type RetryPlan struct {
	Class         FailureClass
	NextAttemptAt time.Time
	RetryCount    int
	Reason        string
}

// PlanRetry computes the next attempt from the current retry count.
func PlanRetry(class FailureClass, detail string, currentRetryCount int, now time.Time) RetryPlan {
	return RetryPlan{
		Class:         class,
		NextAttemptAt: now.Add(class.Backoff()),
		RetryCount:    currentRetryCount + 1,
		Reason:        blockedReason(class, detail),
	}
}

func blockedReason(class FailureClass, detail string) string {
	reason := string(class)
	if class == FailureAccountNotReady {
		reason = ActionRequiredPrefix + ":" + reason
	}
	if detail != "" {
		reason = fmt.Sprintf("%s: %s", reason, detail)
	}
	return truncateReason(reason)
}

func truncateReason(reason string) string {
	if len(reason) <= maxReasonLength {
		return reason
	}
	cut := maxReasonLength
	for cut > 0 && !utf8.RuneStart(reason[cut]) {
		cut--
	}
	return reason[:cut]
}

// ClassifyTransferError maps a gateway error to a failure class and a short detail.
func ClassifyTransferError(err error) (FailureClass, string) {
	if err == nil {
		return FailureGateway, ""
	}

	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		code := string(stripeErr.Code)
		if _, ok := insufficientBalanceCodes[code]; ok {
			return FailureInsufficientBalance, code
		}
		switch {
		case code != "":
			return FailureGateway, code
		case stripeErr.Type != "":
			return FailureGateway, string(stripeErr.Type)
		default:
			return FailureGateway, stripeErr.Msg
		}
	}

	switch {
	case errors.Is(err, pkgstripe.ErrGatewayUnavailable):
		return FailureGateway, "circuit_open"
	case errors.Is(err, context.DeadlineExceeded):
		return FailureGateway, "timeout"
	default:
		return FailureGateway, err.Error()
	}
}
