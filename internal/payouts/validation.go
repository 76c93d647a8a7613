package payouts

import (
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/angelmondragon/payouts-backend/pkg/db/models"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type releasableShape struct {
	RecipientAccountID string `validate:"required"`
	AmountCents        int64  `validate:"gt=0"`
}

// hasReleasableShape reports whether the payout has a recipient and a positive amount.
func hasReleasableShape(p models.PendingPayout) bool {
	return validate.Struct(releasableShape{
		RecipientAccountID: strings.TrimSpace(p.Recipient()),
		AmountCents:        p.AmountCents,
	}) == nil
}
