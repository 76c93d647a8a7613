package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatCents(t *testing.T) {
	cases := []struct {
		cents    int64
		currency string
		want     string
	}{
		{cents: 1234, currency: "eur", want: "€12.34"},
		{cents: 5, currency: "USD", want: "$0.05"},
		{cents: -250, currency: "gbp", want: "-£2.50"},
		{cents: 100000, currency: "chf", want: "1000.00 CHF"},
		{cents: 99, currency: "", want: "0.99"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, FormatCents(tc.cents, tc.currency))
	}
}

func TestFromCents(t *testing.T) {
	assert.Equal(t, "12.3", FromCents(1230).String())
}
