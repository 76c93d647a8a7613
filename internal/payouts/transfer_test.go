package payouts

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/payouts-backend/pkg/db/models"
)

func TestIdempotencyKeyIsStable(t *testing.T) {
	id := uuid.MustParse("6f1c2b7e-3f0a-4d7e-9c55-1a2b3c4d5e6f")
	first := IdempotencyKey(id)
	if first != "payout_6f1c2b7e-3f0a-4d7e-9c55-1a2b3c4d5e6f" {
		t.Fatalf("unexpected key %q", first)
	}
	if IdempotencyKey(id) != first {
		t.Fatal("key must be deterministic")
	}
}

func TestTransferExecutorSendsSameKeyOnEveryAttempt(t *testing.T) {
	gateway := newFakeGateway()
	executor := NewTransferExecutor(gateway, time.Second)
	account := "acct_ready"
	ref := "pi_123"
	payout := models.PendingPayout{
		ID:                     uuid.New(),
		AmountCents:            4200,
		Currency:               "EUR",
		RecipientAccountID:     &account,
		SourcePaymentReference: &ref,
	}

	for i := 0; i < 2; i++ {
		if _, err := executor.Execute(context.Background(), payout); err != nil {
			t.Fatalf("execute: %v", err)
		}
	}
	if len(gateway.transfers) != 2 {
		t.Fatalf("expected two attempts, got %d", len(gateway.transfers))
	}
	first, second := gateway.transfers[0], gateway.transfers[1]
	if first.IdempotencyKey != second.IdempotencyKey || first.IdempotencyKey != IdempotencyKey(payout.ID) {
		t.Fatalf("keys differ: %q vs %q", first.IdempotencyKey, second.IdempotencyKey)
	}
	if first.Currency != "eur" || first.TransferGroup != "pi_123" || first.DestinationAccountID != "acct_ready" {
		t.Fatalf("unexpected request %+v", first)
	}
	if first.Metadata["payoutId"] != payout.ID.String() {
		t.Fatalf("missing payout metadata %+v", first.Metadata)
	}
}

func TestBuildTransferRequestWithoutSourceReference(t *testing.T) {
	account := "acct_ready"
	req := buildTransferRequest(models.PendingPayout{ID: uuid.New(), AmountCents: 1, Currency: "usd", RecipientAccountID: &account})
	if req.TransferGroup != "" {
		t.Fatalf("expected empty transfer group, got %q", req.TransferGroup)
	}
	if _, ok := req.Metadata["sourcePaymentReference"]; ok {
		t.Fatal("unexpected source reference metadata")
	}
}
