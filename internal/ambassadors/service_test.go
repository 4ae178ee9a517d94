package ambassadors

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/clubpataamiga/pataamiga-backend/internal/referrals"
	"github.com/clubpataamiga/pataamiga-backend/internal/uploads"
	"github.com/clubpataamiga/pataamiga-backend/pkg/config"
	"github.com/clubpataamiga/pataamiga-backend/pkg/db/dbtest"
	"github.com/clubpataamiga/pataamiga-backend/pkg/db/models"
	"github.com/clubpataamiga/pataamiga-backend/pkg/enums"
	pkgerrors "github.com/clubpataamiga/pataamiga-backend/pkg/errors"
	"github.com/clubpataamiga/pataamiga-backend/pkg/outbox"
	"github.com/clubpataamiga/pataamiga-backend/pkg/outbox/payloads"
)

type fakeFiles struct {
	stored  []enums.UploadKind
	removed []string
	failOn  enums.UploadKind
}

func (f *fakeFiles) Store(_ context.Context, ownerID uuid.UUID, kind enums.UploadKind, file uploads.File) (*uploads.Stored, error) {
	if kind == f.failOn {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "storage unavailable")
	}
	f.stored = append(f.stored, kind)
	url := "https://cdn.example.com/" + kind.String() + "/" + ownerID.String() + "/" + file.FileName
	return &uploads.Stored{Kind: kind, URL: url, SizeBytes: len(file.Data)}, nil
}

func (f *fakeFiles) Remove(_ context.Context, publicURL string) error {
	f.removed = append(f.removed, publicURL)
	return nil
}

type fixture struct {
	svc   Service
	conn  *gorm.DB
	files *fakeFiles
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	client, conn := dbtest.OpenClient(t)
	files := &fakeFiles{}
	publisher := outbox.NewService(outbox.NewRepository(conn), nil)
	earnings, err := referrals.NewService(referrals.NewRepository(conn), client, publisher)
	require.NoError(t, err)
	svc, err := NewService(NewRepository(conn), client, publisher, files, earnings, config.MembershipConfig{DefaultCommissionPercent: "15"})
	require.NoError(t, err)
	svc.(*service).now = func() time.Time { return time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC) }
	return &fixture{svc: svc, conn: conn, files: files}
}

func validApplication(curp, email string) ApplyInput {
	return ApplyInput{
		FirstName:       " María ",
		PaternalSurname: "González",
		Email:           email,
		Phone:           "5512345678",
		CURP:            curp,
		RFC:             "",
		CLABE:           "002010077777777771",
		INEFront:        &uploads.File{FileName: "front.jpg", Data: []byte("front")},
		INEBack:         &uploads.File{FileName: "back.jpg", Data: []byte("back")},
	}
}

func (f *fixture) apply(t *testing.T, curp, email string) (*AmbassadorDTO, uuid.UUID) {
	t.Helper()
	memberID := uuid.New()
	out, err := f.svc.Apply(context.Background(), Applicant{MemberID: memberID, MemberstackID: "mem_" + memberID.String()[:8]}, validApplication(curp, email))
	require.NoError(t, err)
	return out, memberID
}

func (f *fixture) statusEvents(t *testing.T) []payloads.AmbassadorStatusChangedEvent {
	t.Helper()
	var rows []models.OutboxEvent
	require.NoError(t, f.conn.Where("event_type = ?", enums.EventAmbassadorStatusChanged).Order("created_at ASC").Find(&rows).Error)
	out := make([]payloads.AmbassadorStatusChangedEvent, 0, len(rows))
	for _, row := range rows {
		var envelope outbox.PayloadEnvelope
		require.NoError(t, json.Unmarshal(row.Payload, &envelope))
		var event payloads.AmbassadorStatusChangedEvent
		require.NoError(t, json.Unmarshal(envelope.Data, &event))
		out = append(out, event)
	}
	return out
}

func statusPtr(s enums.AmbassadorStatus) *enums.AmbassadorStatus { return &s }

func TestApplyNormalizesAndUsesDefaultCommission(t *testing.T) {
	f := newFixture(t)
	out, memberID := f.apply(t, " gode561231hdfrrn09 ", " Maria@Example.COM ")

	assert.Equal(t, enums.AmbassadorStatusPending, out.Status)
	assert.Equal(t, "GODE561231HDFRRN09", out.CURP)
	assert.Equal(t, "maria@example.com", out.Email)
	assert.Equal(t, "María", out.FirstName)
	assert.True(t, decimal.NewFromInt(15).Equal(out.CommissionPercentage))
	require.NotNil(t, out.MemberID)
	assert.Equal(t, memberID, *out.MemberID)
	assert.Equal(t, []enums.UploadKind{enums.UploadKindINEFront, enums.UploadKindINEBack}, f.files.stored)

	_, err := f.svc.Apply(context.Background(), Applicant{MemberID: memberID}, validApplication("GODE561231HDFRRN08", "otra@example.com"))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
}

func TestApplyValidation(t *testing.T) {
	f := newFixture(t)
	input := validApplication("NOT-A-CURP", "bad-email")
	input.CLABE = "123"
	input.INEBack = nil

	_, err := f.svc.Apply(context.Background(), Applicant{MemberID: uuid.New()}, input)
	require.Error(t, err)
	var typed *pkgerrors.Error
	require.True(t, errors.As(err, &typed))
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	details, ok := typed.Details().(map[string]string)
	require.True(t, ok)
	assert.Contains(t, details, "curp")
	assert.Contains(t, details, "email")
	assert.Contains(t, details, "clabe")
	assert.Contains(t, details, "ine_back")
	assert.Empty(t, f.files.stored)
}

func TestApplyRemovesUploadsWhenSecondUploadFails(t *testing.T) {
	f := newFixture(t)
	f.files.failOn = enums.UploadKindINEBack

	_, err := f.svc.Apply(context.Background(), Applicant{MemberID: uuid.New()}, validApplication("GODE561231HDFRRN09", "a@example.com"))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
	assert.Len(t, f.files.removed, 1)
}

func TestAvailabilityReflectsRegistration(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	before, err := f.svc.CheckAvailability(ctx, "curp", "gode561231hdfrrn09")
	require.NoError(t, err)
	assert.True(t, before.Available)
	again, err := f.svc.CheckAvailability(ctx, "curp", "gode561231hdfrrn09")
	require.NoError(t, err)
	assert.Equal(t, before, again)

	f.apply(t, "GODE561231HDFRRN09", "maria@example.com")

	after, err := f.svc.CheckAvailability(ctx, "CURP", "GODE561231HDFRRN09")
	require.NoError(t, err)
	assert.False(t, after.Available)
	email, err := f.svc.CheckAvailability(ctx, "email", "MARIA@example.com")
	require.NoError(t, err)
	assert.False(t, email.Available)

	_, err = f.svc.Apply(ctx, Applicant{MemberID: uuid.New()}, validApplication("GODE561231HDFRRN09", "otra@example.com"))
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
	var typed *pkgerrors.Error
	require.True(t, errors.As(err, &typed))
	assert.Equal(t, map[string]string{"field": "curp"}, typed.Details())

	_, err = f.svc.CheckAvailability(ctx, "phone", "5512345678")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	_, err = f.svc.CheckAvailability(ctx, "rfc", "nope")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestUniqueViolationNamesField(t *testing.T) {
	f := newFixture(t)
	f.apply(t, "GODE561231HDFRRN09", "maria@example.com")

	dup := &models.Ambassador{
		FirstName:            "Otra",
		PaternalSurname:      "Persona",
		Email:                "maria@example.com",
		Phone:                "5500000000",
		CURP:                 "GODE561231HDFRRN07",
		Status:               enums.AmbassadorStatusPending,
		CommissionPercentage: decimal.NewFromInt(10),
	}
	err := NewRepository(f.conn).Create(context.Background(), dup)
	require.Error(t, err)
	field, ok := violatedField(err)
	require.True(t, ok)
	assert.Equal(t, enums.AvailabilityFieldEmail, field)
}

func TestReviewApprovalGeneratesCodeAndEmitsIdentityFlag(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	applied, _ := f.apply(t, "GODE561231HDFRRN09", "maria@example.com")
	adminID := uuid.New()

	approved, err := f.svc.Review(ctx, ReviewInput{AmbassadorID: applied.ID, AdminID: adminID, Status: statusPtr(enums.AmbassadorStatusApproved)})
	require.NoError(t, err)
	assert.Equal(t, enums.AmbassadorStatusApproved, approved.Status)
	require.NotNil(t, approved.ReferralCode)
	assert.Regexp(t, `^MARI[A-Z2-9]{4}$`, *approved.ReferralCode)
	assert.NotNil(t, approved.ApprovedAt)

	lookup, err := f.svc.ValidateReferralCode(ctx, " "+*approved.ReferralCode+" ")
	require.NoError(t, err)
	assert.True(t, lookup.Valid)
	assert.Equal(t, "María González", lookup.AmbassadorName)

	suspended, err := f.svc.Review(ctx, ReviewInput{AmbassadorID: applied.ID, AdminID: adminID, Status: statusPtr(enums.AmbassadorStatusSuspended)})
	require.NoError(t, err)
	assert.Equal(t, enums.AmbassadorStatusSuspended, suspended.Status)

	lookup, err = f.svc.ValidateReferralCode(ctx, *approved.ReferralCode)
	require.NoError(t, err)
	assert.False(t, lookup.Valid)

	events := f.statusEvents(t)
	require.Len(t, events, 2)
	flag, ok := events[0].Status.IdentityFlag()
	require.True(t, ok)
	assert.Equal(t, "true", flag)
	assert.NotEmpty(t, events[0].MemberstackID)
	flag, _ = events[1].Status.IdentityFlag()
	assert.Equal(t, "false", flag)
}

func TestReviewRejectionRequiresReason(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	applied, _ := f.apply(t, "GODE561231HDFRRN09", "maria@example.com")

	_, err := f.svc.Review(ctx, ReviewInput{AmbassadorID: applied.ID, AdminID: uuid.New(), Status: statusPtr(enums.AmbassadorStatusRejected), RejectionReason: "   "})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	current, err := f.svc.AdminGet(ctx, applied.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.AmbassadorStatusPending, current.Status)
	assert.Empty(t, f.statusEvents(t))

	rejected, err := f.svc.Review(ctx, ReviewInput{AmbassadorID: applied.ID, AdminID: uuid.New(), Status: statusPtr(enums.AmbassadorStatusRejected), RejectionReason: "INE ilegible"})
	require.NoError(t, err)
	require.NotNil(t, rejected.RejectionReason)
	assert.Equal(t, "INE ilegible", *rejected.RejectionReason)
	assert.Nil(t, rejected.ReferralCode)

	flag, _ := f.statusEvents(t)[0].Status.IdentityFlag()
	assert.Equal(t, "false", flag)
}

func TestReviewDisallowedTransition(t *testing.T) {
	f := newFixture(t)
	applied, _ := f.apply(t, "GODE561231HDFRRN09", "maria@example.com")

	_, err := f.svc.Review(context.Background(), ReviewInput{AmbassadorID: applied.ID, AdminID: uuid.New(), Status: statusPtr(enums.AmbassadorStatusSuspended)})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
	var typed *pkgerrors.Error
	require.True(t, errors.As(err, &typed))
	assert.Equal(t, map[string]string{"from": "pending", "to": "suspended"}, typed.Details())

	_, err = f.svc.Review(context.Background(), ReviewInput{AmbassadorID: applied.ID, AdminID: uuid.New(), Status: statusPtr(enums.AmbassadorStatusPending)})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestReviewCommissionOnly(t *testing.T) {
	f := newFixture(t)
	applied, _ := f.apply(t, "GODE561231HDFRRN09", "maria@example.com")

	pct := decimal.RequireFromString("12.5")
	out, err := f.svc.Review(context.Background(), ReviewInput{AmbassadorID: applied.ID, AdminID: uuid.New(), CommissionPercentage: &pct})
	require.NoError(t, err)
	assert.True(t, pct.Equal(out.CommissionPercentage))
	assert.Equal(t, enums.AmbassadorStatusPending, out.Status)

	tooHigh := decimal.NewFromInt(101)
	_, err = f.svc.Review(context.Background(), ReviewInput{AmbassadorID: applied.ID, AdminID: uuid.New(), CommissionPercentage: &tooHigh})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestGenerateCodeRetriesOnCollision(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first, _ := f.apply(t, "GODE561231HDFRRN09", "maria@example.com")
	second, _ := f.apply(t, "GODE561231HDFRRN08", "mariana@example.com")

	suffixes := []string{"AAAA", "AAAA", "BBBB"}
	f.svc.(*service).randomSuffix = func() (string, error) {
		next := suffixes[0]
		suffixes = suffixes[1:]
		return next, nil
	}

	a, err := f.svc.Review(ctx, ReviewInput{AmbassadorID: first.ID, AdminID: uuid.New(), Status: statusPtr(enums.AmbassadorStatusApproved)})
	require.NoError(t, err)
	b, err := f.svc.Review(ctx, ReviewInput{AmbassadorID: second.ID, AdminID: uuid.New(), Status: statusPtr(enums.AmbassadorStatusApproved)})
	require.NoError(t, err)
	assert.Equal(t, "MARIAAAA", *a.ReferralCode)
	assert.Equal(t, "MARIBBBB", *b.ReferralCode)
}

func TestCodePrefix(t *testing.T) {
	assert.Equal(t, "MARI", codePrefix(" maría "))
	assert.Equal(t, "NUNE", codePrefix("Núñez"))
	assert.Equal(t, "JO", codePrefix("Jo"))
	assert.Equal(t, "PATA", codePrefix("4"))
}

func TestDashboardAndDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	applied, memberID := f.apply(t, "GODE561231HDFRRN09", "maria@example.com")

	dash, err := f.svc.Dashboard(ctx, memberID)
	require.NoError(t, err)
	assert.Nil(t, dash.Summary)

	_, err = f.svc.Review(ctx, ReviewInput{AmbassadorID: applied.ID, AdminID: uuid.New(), Status: statusPtr(enums.AmbassadorStatusApproved)})
	require.NoError(t, err)
	dash, err = f.svc.Dashboard(ctx, memberID)
	require.NoError(t, err)
	require.NotNil(t, dash.Summary)
	assert.True(t, dash.Summary.AvailableBalance.IsZero())

	err = f.svc.Delete(ctx, applied.ID, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	_, err = f.svc.Review(ctx, ReviewInput{AmbassadorID: applied.ID, AdminID: uuid.New(), Status: statusPtr(enums.AmbassadorStatusSuspended)})
	require.NoError(t, err)
	require.NoError(t, f.svc.Delete(ctx, applied.ID, uuid.New()))
	assert.Len(t, f.files.removed, 2)

	_, err = f.svc.GetForMember(ctx, memberID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
