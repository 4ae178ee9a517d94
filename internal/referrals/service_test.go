package referrals

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/clubpataamiga/pataamiga-backend/pkg/db/dbtest"
	"github.com/clubpataamiga/pataamiga-backend/pkg/db/models"
	"github.com/clubpataamiga/pataamiga-backend/pkg/enums"
	pkgerrors "github.com/clubpataamiga/pataamiga-backend/pkg/errors"
	"github.com/clubpataamiga/pataamiga-backend/pkg/outbox"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	client, conn := dbtest.OpenClient(t)
	svc, err := NewService(NewRepository(conn), client, outbox.NewService(outbox.NewRepository(conn), nil))
	require.NoError(t, err)
	return svc, conn
}

func seedAmbassador(t *testing.T, conn *gorm.DB, code string, status enums.AmbassadorStatus, pct string) *models.Ambassador {
	t.Helper()
	ambassador := &models.Ambassador{
		FirstName:            "Ana",
		PaternalSurname:      "García",
		Email:                uuid.NewString() + "@example.com",
		Phone:                "5512345678",
		CURP:                 uuid.NewString(),
		Status:               status,
		ReferralCode:         &code,
		CommissionPercentage: decimal.RequireFromString(pct),
	}
	require.NoError(t, conn.Create(ambassador).Error)
	return ambassador
}

func seedMember(t *testing.T, conn *gorm.DB) *models.Member {
	t.Helper()
	member := &models.Member{MemberstackID: uuid.NewString(), Email: "socio@example.com"}
	require.NoError(t, conn.Create(member).Error)
	return member
}

func TestRecordResolvesCodeCaseInsensitively(t *testing.T) {
	svc, conn := newTestService(t)
	ambassador := seedAmbassador(t, conn, "ANA1234", enums.AmbassadorStatusApproved, "15")
	member := seedMember(t, conn)

	referral, err := svc.Record(context.Background(), member.ID, RecordInput{Code: " ana1234 ", MembershipPlan: "anual"})
	require.NoError(t, err)
	assert.Equal(t, ambassador.ID, referral.AmbassadorID)
	assert.Equal(t, "ANA1234", referral.ReferralCode)
	assert.Equal(t, enums.CommissionStatusPending, referral.CommissionStatus)
	assert.True(t, referral.CommissionAmount.IsZero())

	var stored models.Member
	require.NoError(t, conn.First(&stored, "id = ?", member.ID).Error)
	require.NotNil(t, stored.ReferredByAmbassadorID)
	assert.Equal(t, ambassador.ID, *stored.ReferredByAmbassadorID)

	_, err = svc.Record(context.Background(), member.ID, RecordInput{Code: "ANA1234"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
}

func TestRecordRejectsUnknownOrInactiveCodes(t *testing.T) {
	svc, conn := newTestService(t)
	seedAmbassador(t, conn, "SUSP0001", enums.AmbassadorStatusSuspended, "10")
	member := seedMember(t, conn)

	for _, code := range []string{"NOPE", "SUSP0001", "  "} {
		_, err := svc.Record(context.Background(), member.ID, RecordInput{Code: code})
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), code)
	}
}

func TestApproveRecalculatesCommissionFromAmount(t *testing.T) {
	svc, conn := newTestService(t)
	seedAmbassador(t, conn, "LUIS0001", enums.AmbassadorStatusApproved, "15")
	member := seedMember(t, conn)
	ctx := context.Background()

	referral, err := svc.Record(ctx, member.ID, RecordInput{Code: "LUIS0001"})
	require.NoError(t, err)
	require.True(t, referral.MembershipAmount.IsZero())

	amount := decimal.NewFromInt(500)
	approved, err := svc.Approve(ctx, referral.ID, uuid.New(), &amount)
	require.NoError(t, err)
	assert.Equal(t, enums.CommissionStatusApproved, approved.CommissionStatus)
	assert.True(t, approved.MembershipAmount.Equal(decimal.NewFromInt(500)))
	assert.True(t, approved.CommissionAmount.Equal(decimal.NewFromInt(75)), approved.CommissionAmount.String())
	assert.NotNil(t, approved.ApprovedAt)

	paid, err := svc.MarkPaid(ctx, referral.ID, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, enums.CommissionStatusPaid, paid.CommissionStatus)
	assert.NotNil(t, paid.PaidAt)

	_, err = svc.Cancel(ctx, referral.ID, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	var events int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Where("event_type = ?", enums.EventReferralCommissionChanged).Count(&events).Error)
	assert.Equal(t, int64(2), events)
}

func TestApproveRejectsNegativeAmount(t *testing.T) {
	svc, _ := newTestService(t)
	negative := decimal.NewFromInt(-1)
	_, err := svc.Approve(context.Background(), uuid.New(), uuid.New(), &negative)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestSummaryNetsPayouts(t *testing.T) {
	svc, conn := newTestService(t)
	ambassador := seedAmbassador(t, conn, "EARN0001", enums.AmbassadorStatusApproved, "10")
	payouts := []models.AmbassadorPayout{
		{AmbassadorID: ambassador.ID, Amount: decimal.NewFromInt(40), Status: enums.PayoutStatusCompleted},
		{AmbassadorID: ambassador.ID, Amount: decimal.NewFromInt(20), Status: enums.PayoutStatusPending},
		{AmbassadorID: ambassador.ID, Amount: decimal.NewFromInt(500), Status: enums.PayoutStatusFailed},
	}
	for i := range payouts {
		require.NoError(t, conn.Create(&payouts[i]).Error)
	}
	settledBy := payouts[0].ID
	rows := []models.Referral{
		{CommissionStatus: enums.CommissionStatusPending, CommissionAmount: decimal.NewFromInt(30)},
		{CommissionStatus: enums.CommissionStatusApproved, CommissionAmount: decimal.NewFromInt(100)},
		{CommissionStatus: enums.CommissionStatusApproved, CommissionAmount: decimal.RequireFromString("50.50")},
		{CommissionStatus: enums.CommissionStatusPaid, CommissionAmount: decimal.NewFromInt(40), PayoutID: &settledBy},
		{CommissionStatus: enums.CommissionStatusPaid, CommissionAmount: decimal.NewFromInt(25)},
		{CommissionStatus: enums.CommissionStatusCancelled, CommissionAmount: decimal.NewFromInt(99)},
	}
	for i := range rows {
		rows[i].AmbassadorID = ambassador.ID
		rows[i].ReferredMemberID = uuid.New()
		rows[i].ReferralCode = "EARN0001"
		rows[i].MembershipAmount = decimal.Zero
		require.NoError(t, conn.Create(&rows[i]).Error)
	}

	summary, err := svc.Summary(context.Background(), ambassador.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(6), summary.TotalReferrals)
	assert.Equal(t, int64(2), summary.ApprovedReferrals)
	assert.True(t, summary.ApprovedAmount.Equal(decimal.RequireFromString("150.50")), summary.ApprovedAmount.String())
	assert.True(t, summary.WithdrawnAmount.Equal(decimal.NewFromInt(40)))
	assert.True(t, summary.ReservedAmount.Equal(decimal.NewFromInt(20)))
	assert.True(t, summary.AvailableBalance.Equal(decimal.RequireFromString("130.50")), summary.AvailableBalance.String())
}
