package referrals

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCalculateCommission(t *testing.T) {
	cases := []struct {
		amount, pct, want string
	}{
		{"500", "15", "75"},
		{"0", "15", "0"},
		{"299.99", "10", "30"},
		{"1000", "12.5", "125"},
		{"-5", "10", "0"},
	}
	for _, tc := range cases {
		got := CalculateCommission(decimal.RequireFromString(tc.amount), decimal.RequireFromString(tc.pct))
		assert.True(t, got.Equal(decimal.RequireFromString(tc.want)), "%s * %s%% = %s", tc.amount, tc.pct, got)
	}
}

func TestSummarizeNeverGoesNegative(t *testing.T) {
	summary := summarize(
		[]statusTotal{{Status: "approved", Count: 1, Total: decimal.NewFromInt(10)}},
		[]statusTotal{{Status: "processing", Count: 1, Total: decimal.NewFromInt(25)}},
		decimal.Zero,
	)
	assert.True(t, summary.AvailableBalance.IsZero())
	assert.True(t, summary.ReservedAmount.Equal(decimal.NewFromInt(25)))
}

func TestSummarizeExcludesDirectlyPaidCommissions(t *testing.T) {
	commissions := []statusTotal{
		{Status: "approved", Count: 2, Total: decimal.NewFromInt(200)},
		{Status: "paid", Count: 2, Total: decimal.NewFromInt(150)},
	}
	payouts := []statusTotal{{Status: "completed", Count: 1, Total: decimal.NewFromInt(120)}}

	// 100 of the paid commissions were settled by the completed payout, so
	// 20 of it still nets against what is approved.
	summary := summarize(commissions, payouts, decimal.NewFromInt(100))
	assert.True(t, summary.AvailableBalance.Equal(decimal.NewFromInt(180)), summary.AvailableBalance.String())
	assert.True(t, summary.PaidAmount.Equal(decimal.NewFromInt(150)))

	fullySettled := summarize(commissions, payouts, decimal.NewFromInt(150))
	assert.True(t, fullySettled.AvailableBalance.Equal(decimal.NewFromInt(200)), fullySettled.AvailableBalance.String())
}
