package payouts

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/clubpataamiga/pataamiga-backend/internal/referrals"
	"github.com/clubpataamiga/pataamiga-backend/pkg/db/dbtest"
	"github.com/clubpataamiga/pataamiga-backend/pkg/db/models"
	"github.com/clubpataamiga/pataamiga-backend/pkg/enums"
	pkgerrors "github.com/clubpataamiga/pataamiga-backend/pkg/errors"
	"github.com/clubpataamiga/pataamiga-backend/pkg/outbox"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	svc, _, conn := newTestServices(t)
	return svc, conn
}

func newTestServices(t *testing.T) (Service, referrals.Service, *gorm.DB) {
	t.Helper()
	client, conn := dbtest.OpenClient(t)
	publisher := outbox.NewService(outbox.NewRepository(conn), nil)
	refs, err := referrals.NewService(referrals.NewRepository(conn), client, publisher)
	require.NoError(t, err)
	svc, err := NewService(NewRepository(conn), client, publisher, refs)
	require.NoError(t, err)
	return svc, refs, conn
}

func addApprovedCommission(t *testing.T, conn *gorm.DB, ambassadorID uuid.UUID, amount string, approvedAt time.Time) models.Referral {
	t.Helper()
	referral := models.Referral{
		AmbassadorID:     ambassadorID,
		ReferredMemberID: uuid.New(),
		ReferralCode:     "LUIS0001",
		CommissionStatus: enums.CommissionStatusApproved,
		MembershipAmount: decimal.Zero,
		CommissionAmount: decimal.RequireFromString(amount),
		ApprovedAt:       &approvedAt,
	}
	require.NoError(t, conn.Create(&referral).Error)
	return referral
}

func seedEarningAmbassador(t *testing.T, conn *gorm.DB, status enums.AmbassadorStatus, approved string) *models.Ambassador {
	t.Helper()
	clabe := "002010077777777771"
	ambassador := &models.Ambassador{
		FirstName:            "Luis",
		PaternalSurname:      "Pérez",
		Email:                uuid.NewString() + "@example.com",
		Phone:                "5511112222",
		CURP:                 uuid.NewString(),
		CLABE:                &clabe,
		Status:               status,
		CommissionPercentage: decimal.NewFromInt(10),
	}
	require.NoError(t, conn.Create(ambassador).Error)
	require.NoError(t, conn.Create(&models.Referral{
		AmbassadorID:     ambassador.ID,
		ReferredMemberID: uuid.New(),
		ReferralCode:     "LUIS0001",
		CommissionStatus: enums.CommissionStatusApproved,
		MembershipAmount: decimal.Zero,
		CommissionAmount: decimal.RequireFromString(approved),
	}).Error)
	return ambassador
}

func TestRequestIsLimitedToAvailableBalance(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	ambassador := seedEarningAmbassador(t, conn, enums.AmbassadorStatusApproved, "100")

	first, err := svc.Request(ctx, ambassador.ID, decimal.NewFromInt(60))
	require.NoError(t, err)
	assert.Equal(t, enums.PayoutStatusPending, first.Status)

	_, err = svc.Request(ctx, ambassador.ID, decimal.NewFromInt(50))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	_, err = svc.Request(ctx, ambassador.ID, decimal.NewFromInt(40))
	require.NoError(t, err)
}

func TestRequestValidation(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	suspended := seedEarningAmbassador(t, conn, enums.AmbassadorStatusSuspended, "100")

	_, err := svc.Request(ctx, suspended.ID, decimal.NewFromInt(10))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	_, err = svc.Request(ctx, suspended.ID, decimal.Zero)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.Request(ctx, uuid.New(), decimal.NewFromInt(10))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestAdminLifecycle(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	ambassador := seedEarningAmbassador(t, conn, enums.AmbassadorStatusApproved, "300")
	adminID := uuid.New()

	payout, err := svc.Request(ctx, ambassador.ID, decimal.NewFromInt(100))
	require.NoError(t, err)

	processing, err := svc.Process(ctx, payout.ID, adminID)
	require.NoError(t, err)
	assert.Equal(t, enums.PayoutStatusProcessing, processing.Status)
	assert.NotNil(t, processing.ProcessedAt)

	completed, err := svc.Complete(ctx, payout.ID, adminID, " SPEI-123 ")
	require.NoError(t, err)
	assert.Equal(t, enums.PayoutStatusCompleted, completed.Status)
	require.NotNil(t, completed.PaymentReference)
	assert.Equal(t, "SPEI-123", *completed.PaymentReference)

	_, err = svc.Fail(ctx, payout.ID, adminID, "rebotado")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	second, err := svc.Request(ctx, ambassador.ID, decimal.NewFromInt(50))
	require.NoError(t, err)
	_, err = svc.Fail(ctx, second.ID, adminID, "  ")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	failed, err := svc.Fail(ctx, second.ID, adminID, "CLABE inválida")
	require.NoError(t, err)
	assert.Equal(t, enums.PayoutStatusFailed, failed.Status)

	page, err := svc.List(ctx, ListParams{AmbassadorID: ambassador.ID})
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)

	var events int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Where("event_type = ?", enums.EventPayoutStatusChanged).Count(&events).Error)
	assert.Equal(t, int64(3), events)
}

func TestDirectlyPaidCommissionIsNotWithdrawable(t *testing.T) {
	svc, refs, conn := newTestServices(t)
	ctx := context.Background()
	ambassador := seedEarningAmbassador(t, conn, enums.AmbassadorStatusApproved, "0")
	commission := addApprovedCommission(t, conn, ambassador.ID, "100", time.Now().UTC())

	_, err := refs.MarkPaid(ctx, commission.ID, uuid.New())
	require.NoError(t, err)

	summary, err := refs.Summary(ctx, ambassador.ID)
	require.NoError(t, err)
	assert.True(t, summary.PaidAmount.Equal(decimal.NewFromInt(100)))
	assert.True(t, summary.AvailableBalance.IsZero(), summary.AvailableBalance.String())

	_, err = svc.Request(ctx, ambassador.ID, decimal.NewFromInt(100))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestCompletedPayoutSettlesOldestCommissions(t *testing.T) {
	svc, refs, conn := newTestServices(t)
	ctx := context.Background()
	adminID := uuid.New()
	ambassador := seedEarningAmbassador(t, conn, enums.AmbassadorStatusApproved, "0")
	base := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	oldest := addApprovedCommission(t, conn, ambassador.ID, "100", base)
	newest := addApprovedCommission(t, conn, ambassador.ID, "100", base.Add(time.Hour))

	payout, err := svc.Request(ctx, ambassador.ID, decimal.NewFromInt(150))
	require.NoError(t, err)
	_, err = svc.Complete(ctx, payout.ID, adminID, "SPEI-1")
	require.NoError(t, err)

	var settled models.Referral
	require.NoError(t, conn.First(&settled, "id = ?", oldest.ID).Error)
	assert.Equal(t, enums.CommissionStatusPaid, settled.CommissionStatus)
	require.NotNil(t, settled.PayoutID)
	assert.Equal(t, payout.ID, *settled.PayoutID)

	var open models.Referral
	require.NoError(t, conn.First(&open, "id = ?", newest.ID).Error)
	assert.Equal(t, enums.CommissionStatusApproved, open.CommissionStatus)

	summary, err := refs.Summary(ctx, ambassador.ID)
	require.NoError(t, err)
	assert.True(t, summary.AvailableBalance.Equal(decimal.NewFromInt(50)), summary.AvailableBalance.String())

	// paying the remaining commission by hand leaves nothing to withdraw
	_, err = refs.MarkPaid(ctx, newest.ID, adminID)
	require.NoError(t, err)
	_, err = svc.Request(ctx, ambassador.ID, decimal.NewFromInt(50))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}
