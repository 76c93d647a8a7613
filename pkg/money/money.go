package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

var symbols = map[string]string{
	"eur": "€",
	"usd": "$",
	"gbp": "£",
	"brl": "R$",
}

// FromCents converts an integer minor-unit amount into a decimal major-unit value.
func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// FormatCents renders cents for human-facing messages, e.g. "€12.34" or "12.34 CHF".
func FormatCents(cents int64, currency string) string {
	amount := FromCents(cents).StringFixed(2)
	code := strings.ToLower(strings.TrimSpace(currency))
	if symbol, ok := symbols[code]; ok {
		if strings.HasPrefix(amount, "-") {
			return "-" + symbol + strings.TrimPrefix(amount, "-")
		}
		return symbol + amount
	}
	if code == "" {
		return amount
	}
	return amount + " " + strings.ToUpper(code)
}
