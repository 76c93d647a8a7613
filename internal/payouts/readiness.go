package payouts

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v84"
)

// Ready reports whether the account can receive a transfer right now.
// An unreported transfers capability does not block.
func (s AccountStatus) Ready() bool {
	if !s.PayoutsEnabled || !s.DetailsSubmitted || len(s.RequirementsDue) > 0 {
		return false
	}
	return s.TransfersCapability == "" || s.TransfersCapability == string(stripe.AccountCapabilityStatusActive)
}

// Missing lists what keeps the account from being ready, for logs and reasons.
func (s AccountStatus) Missing() string {
	var missing []string
	if !s.PayoutsEnabled {
		missing = append(missing, "payouts_disabled")
	}
	if !s.DetailsSubmitted {
		missing = append(missing, "details_missing")
	}
	if n := len(s.RequirementsDue); n > 0 {
		missing = append(missing, fmt.Sprintf("requirements_due=%d", n))
	}
	if s.TransfersCapability != "" && s.TransfersCapability != string(stripe.AccountCapabilityStatusActive) {
		missing = append(missing, "transfers_"+s.TransfersCapability)
	}
	return strings.Join(missing, ",")
}

// ReadinessChecker decides whether a connected account can receive funds.
type ReadinessChecker struct {
	reader  AccountReader
	timeout time.Duration
}

func NewReadinessChecker(reader AccountReader, timeout time.Duration) *ReadinessChecker {
	return &ReadinessChecker{reader: reader, timeout: timeout}
}

// Check fetches the current account status.
func (c *ReadinessChecker) Check(ctx context.Context, accountID string) (AccountStatus, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	return c.reader.GetAccountStatus(ctx, accountID)
}

// IsAccountReady reports whether accountID passes every readiness rule.
func (c *ReadinessChecker) IsAccountReady(ctx context.Context, accountID string) (bool, error) {
	status, err := c.Check(ctx, accountID)
	if err != nil {
		return false, err
	}
	return status.Ready(), nil
}
