package merchant

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/runway/internal/model"
)

var sampleDescriptions = []string{
	"PwP MERCHANT NETFLIX PAYMENT",
	"NETFLIX.COM",
	"Netflix Netflix",
	"SQ *BLUE BOTTLE COFFEE",
	"AMZN Mktp US*2K4LL1QX0",
	"PURCHASE AUTHORIZED ON 01/15 CHIPOTLE 1234",
	"COB UTIL BILL PAYMENT 0412",
	"Recurring Debit Card HULU LLC",
	"PAYPAL *SPOTIFY",
	"GEICO AUTO PAYMENT",
	"ONLINE PAYMENT",
	"payment",
	"ACH DEBIT PLANET FIT CLUB 000123",
	"Spotify.com/ny",
	"   ",
	"",
	"TST* JOE'S PIZZA #22",
	"APPLE.COM/BILL",
	"VZWRLS*APOCC VISB",
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name        string
		description string
		want        string
	}{
		{name: "processor prefix and payment suffix", description: "PwP MERCHANT NETFLIX PAYMENT", want: "netflix"},
		{name: "domain tail", description: "NETFLIX.COM", want: "netflix"},
		{name: "duplicated merchant", description: "Netflix Netflix", want: "netflix"},
		{name: "square prefix", description: "SQ *BLUE BOTTLE COFFEE", want: "blue bottle coffee"},
		{name: "authorization code", description: "AMZN Mktp US*2K4LL1QX0", want: "amazon"},
		{name: "authorized-on date prefix", description: "PURCHASE AUTHORIZED ON 01/15 CHIPOTLE 1234", want: "chipotle"},
		{name: "municipal billing code", description: "COB UTIL BILL PAYMENT 0412", want: "city of boston utilities"},
		{name: "recurring prefix", description: "Recurring Debit Card HULU LLC", want: "hulu"},
		{name: "paypal prefix", description: "PAYPAL *SPOTIFY", want: "spotify"},
		{name: "lookup runs after suffix stripping", description: "GEICO AUTO PAYMENT", want: "geico"},
		{name: "whitespace collapsed", description: "  Blue   Apron  ", want: "blue apron"},
		{name: "single noise word kept", description: "PAYMENT", want: "payment"},
		{name: "empty input", description: "", want: ""},
		{name: "blank input", description: "   ", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.description))
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	for _, desc := range sampleDescriptions {
		once := Normalize(desc)
		assert.Equal(t, once, Normalize(once), "description %q", desc)
	}

	for code, label := range knownMerchants {
		assert.Equal(t, label, Normalize(label), "label for %q is not a fixed point", code)
	}
}

func TestNormalize_MergesCosmeticVariants(t *testing.T) {
	pairs := [][2]string{
		{"PwP MERCHANT NETFLIX PAYMENT", "NETFLIX.COM"},
		{"SQ *BLUE BOTTLE COFFEE", "Blue Bottle Coffee"},
		{"AMZN Mktp US*2K4LL1QX0", "AMZN MKTP US*9Z8YX7W6"},
		{"Recurring Debit Card HULU LLC", "HULU LLC"},
		{"PAYPAL *SPOTIFY", "Spotify USA"},
	}

	for _, pair := range pairs {
		assert.Equal(t, Normalize(pair[0]), Normalize(pair[1]), "%q vs %q", pair[0], pair[1])
	}
}

func TestNormalizeAll(t *testing.T) {
	txns := []model.Transaction{
		{
			PostingDate: time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
			Description: "NETFLIX.COM",
			Amount:      decimal.RequireFromString("-15.99"),
		},
		{
			PostingDate: time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC),
			Description: "PAYROLL ACME CORP",
			Amount:      decimal.RequireFromString("2500.00"),
		},
	}

	normalized := NormalizeAll(txns)
	require.Len(t, normalized, 2)
	assert.Equal(t, "netflix", normalized[0].MerchantKey)
	assert.Equal(t, "NETFLIX.COM", normalized[0].Description)
	assert.True(t, normalized[0].Amount.Equal(decimal.RequireFromString("-15.99")))
	assert.Equal(t, "payroll acme corp", normalized[1].MerchantKey)
}
