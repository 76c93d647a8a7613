package payouts

import (
	"context"

	"github.com/stripe/stripe-go/v84"

	pkgstripe "github.com/angelmondragon/payouts-backend/pkg/stripe"
)

// AccountStatus is the subset of connected-account state that gates a transfer.
type AccountStatus struct {
	PayoutsEnabled      bool
	DetailsSubmitted    bool
	RequirementsDue     []string
	TransfersCapability string
}

// AccountReader fetches connected-account capabilities.
type AccountReader interface {
	GetAccountStatus(ctx context.Context, accountID string) (AccountStatus, error)
}

// TransferCreator moves funds to a connected account and returns the transfer id.
type TransferCreator interface {
	CreateTransfer(ctx context.Context, req TransferRequest) (string, error)
}

// Gateway is the payment provider surface used by the release flow.
type Gateway interface {
	AccountReader
	TransferCreator
}

type stripeGateway struct {
	client *pkgstripe.Client
}

// NewStripeGateway adapts the Stripe client to the release flow.
func NewStripeGateway(client *pkgstripe.Client) Gateway {
	return &stripeGateway{client: client}
}

func (g *stripeGateway) GetAccountStatus(ctx context.Context, accountID string) (AccountStatus, error) {
	acct, err := g.client.GetAccount(ctx, accountID)
	if err != nil {
		return AccountStatus{}, err
	}
	return accountStatusFromStripe(acct), nil
}

func (g *stripeGateway) CreateTransfer(ctx context.Context, req TransferRequest) (string, error) {
	tr, err := g.client.CreateTransfer(ctx, pkgstripe.TransferInput{
		AmountCents:    req.AmountCents,
		Currency:       req.Currency,
		Destination:    req.DestinationAccountID,
		TransferGroup:  req.TransferGroup,
		IdempotencyKey: req.IdempotencyKey,
		Metadata:       req.Metadata,
	})
	if err != nil {
		return "", err
	}
	return tr.ID, nil
}

func accountStatusFromStripe(acct *stripe.Account) AccountStatus {
	if acct == nil {
		return AccountStatus{}
	}
	status := AccountStatus{
		PayoutsEnabled:   acct.PayoutsEnabled,
		DetailsSubmitted: acct.DetailsSubmitted,
	}
	if acct.Requirements != nil {
		status.RequirementsDue = append(status.RequirementsDue, acct.Requirements.CurrentlyDue...)
		status.RequirementsDue = append(status.RequirementsDue, acct.Requirements.PastDue...)
	}
	if acct.Capabilities != nil {
		status.TransfersCapability = string(acct.Capabilities.Transfers)
	}
	return status
}
