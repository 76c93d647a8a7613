package payouts

import (
	"context"
	"errors"
	"testing"

	"github.com/stripe/stripe-go/v84"
)

func TestAccountStatusReady(t *testing.T) {
	ready := AccountStatus{PayoutsEnabled: true, DetailsSubmitted: true}
	cases := []struct {
		name   string
		status AccountStatus
		want   bool
	}{
		{"all clear without transfers capability", ready, true},
		{"active transfers", AccountStatus{PayoutsEnabled: true, DetailsSubmitted: true, TransfersCapability: "active"}, true},
		{"payouts disabled", AccountStatus{DetailsSubmitted: true}, false},
		{"details missing", AccountStatus{PayoutsEnabled: true}, false},
		{"requirements due", AccountStatus{PayoutsEnabled: true, DetailsSubmitted: true, RequirementsDue: []string{"individual.dob"}}, false},
		{"inactive transfers", AccountStatus{PayoutsEnabled: true, DetailsSubmitted: true, TransfersCapability: "inactive"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.status.Ready(); got != tc.want {
				t.Fatalf("Ready()=%v want %v (missing=%q)", got, tc.want, tc.status.Missing())
			}
		})
	}
}

func TestAccountStatusMissing(t *testing.T) {
	status := AccountStatus{RequirementsDue: []string{"a", "b"}, TransfersCapability: "pending"}
	want := "payouts_disabled,details_missing,requirements_due=2,transfers_pending"
	if got := status.Missing(); got != want {
		t.Fatalf("Missing()=%q want %q", got, want)
	}
}

func TestReadinessCheckerIsAccountReady(t *testing.T) {
	gateway := newFakeGateway()
	gateway.statuses["acct_new"] = AccountStatus{DetailsSubmitted: true}
	checker := NewReadinessChecker(gateway, 0)

	ok, err := checker.IsAccountReady(context.Background(), "acct_ready")
	if err != nil || !ok {
		t.Fatalf("expected ready account, got %v %v", ok, err)
	}
	ok, err = checker.IsAccountReady(context.Background(), "acct_new")
	if err != nil || ok {
		t.Fatalf("expected not ready account, got %v %v", ok, err)
	}

	gateway.accountErr = errors.New("boom")
	if _, err := checker.IsAccountReady(context.Background(), "acct_ready"); err == nil {
		t.Fatal("expected gateway error to propagate")
	}
}

func TestAccountStatusFromStripe(t *testing.T) {
	acct := &stripe.Account{
		PayoutsEnabled:   true,
		DetailsSubmitted: true,
		Requirements: &stripe.AccountRequirements{
			CurrentlyDue: []string{"external_account"},
			PastDue:      []string{"tos_acceptance.date"},
		},
		Capabilities: &stripe.AccountCapabilities{Transfers: stripe.AccountCapabilityStatusActive},
	}
	status := accountStatusFromStripe(acct)
	if len(status.RequirementsDue) != 2 || status.TransfersCapability != "active" {
		t.Fatalf("unexpected status %+v", status)
	}
	if status.Ready() {
		t.Fatal("requirements due must block readiness")
	}
	if got := accountStatusFromStripe(nil); got.Ready() {
		t.Fatal("nil account must not be ready")
	}
}
