package payouts

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/payouts-backend/pkg/db/models"
)

// TransferRequest is what the gateway needs to move a payout's funds.
type TransferRequest struct {
	AmountCents          int64
	Currency             string
	DestinationAccountID string
	IdempotencyKey       string
	TransferGroup        string
	Metadata             map[string]string
}

// IdempotencyKey is stable per payout so repeated attempts never double-pay.
func IdempotencyKey(payoutID uuid.UUID) string {
	return "payout_" + payoutID.String()
}

// TransferExecutor issues the gateway transfer for a claimed payout.
type TransferExecutor struct {
	creator TransferCreator
	timeout time.Duration
}

func NewTransferExecutor(creator TransferCreator, timeout time.Duration) *TransferExecutor {
	return &TransferExecutor{creator: creator, timeout: timeout}
}

// Execute returns the gateway transfer id. Gateway errors are returned unchanged.
func (e *TransferExecutor) Execute(ctx context.Context, payout models.PendingPayout) (string, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	return e.creator.CreateTransfer(ctx, buildTransferRequest(payout))
}

func buildTransferRequest(payout models.PendingPayout) TransferRequest {
	req := TransferRequest{
		AmountCents:          payout.AmountCents,
		Currency:             strings.ToLower(payout.Currency),
		DestinationAccountID: payout.Recipient(),
		IdempotencyKey:       IdempotencyKey(payout.ID),
		Metadata:             map[string]string{"payoutId": payout.ID.String()},
	}
	if payout.SourcePaymentReference != nil && *payout.SourcePaymentReference != "" {
		req.TransferGroup = *payout.SourcePaymentReference
		req.Metadata["sourcePaymentReference"] = *payout.SourcePaymentReference
	}
	return req
}
