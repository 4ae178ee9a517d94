package referrals

import (
	"github.com/shopspring/decimal"

	"github.com/clubpataamiga/pataamiga-backend/pkg/enums"
)

var hundred = decimal.NewFromInt(100)

// CalculateCommission returns amount * percentage / 100 rounded to cents.
func CalculateCommission(amount, percentage decimal.Decimal) decimal.Decimal {
	if amount.IsNegative() || percentage.IsNegative() {
		return decimal.Zero
	}
	return amount.Mul(percentage).Div(hundred).Round(2)
}

// summarize builds the earnings rollup. Commissions paid directly by an admin
// never count as withdrawable. Completed payouts are netted against approved
// commissions only for the part they have not settled yet.
func summarize(commissions, payouts []statusTotal, settled decimal.Decimal) Summary {
	summary := Summary{
		PendingAmount:    decimal.Zero,
		ApprovedAmount:   decimal.Zero,
		PaidAmount:       decimal.Zero,
		WithdrawnAmount:  decimal.Zero,
		ReservedAmount:   decimal.Zero,
		AvailableBalance: decimal.Zero,
	}
	for _, row := range commissions {
		summary.TotalReferrals += row.Count
		switch enums.CommissionStatus(row.Status) {
		case enums.CommissionStatusPending:
			summary.PendingReferrals = row.Count
			summary.PendingAmount = row.Total
		case enums.CommissionStatusApproved:
			summary.ApprovedReferrals = row.Count
			summary.ApprovedAmount = row.Total
		case enums.CommissionStatusPaid:
			summary.PaidReferrals = row.Count
			summary.PaidAmount = row.Total
		}
	}
	for _, row := range payouts {
		status := enums.PayoutStatus(row.Status)
		switch {
		case status == enums.PayoutStatusCompleted:
			summary.WithdrawnAmount = summary.WithdrawnAmount.Add(row.Total)
		case status.IsOpen():
			summary.ReservedAmount = summary.ReservedAmount.Add(row.Total)
		}
	}

	unsettled := decimal.Max(summary.WithdrawnAmount.Sub(settled), decimal.Zero)
	available := summary.ApprovedAmount.Sub(unsettled).Sub(summary.ReservedAmount)
	if available.IsPositive() {
		summary.AvailableBalance = available.Round(2)
	}
	return summary
}
