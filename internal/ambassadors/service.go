// Package ambassadors implements the ambassador application, the public
// availability and referral-code checks, the ambassador dashboard and the
// admin review workflow.
package ambassadors

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/clubpataamiga/pataamiga-backend/internal/referrals"
	"github.com/clubpataamiga/pataamiga-backend/internal/uploads"
	"github.com/clubpataamiga/pataamiga-backend/pkg/config"
	"github.com/clubpataamiga/pataamiga-backend/pkg/db"
	"github.com/clubpataamiga/pataamiga-backend/pkg/db/models"
	"github.com/clubpataamiga/pataamiga-backend/pkg/enums"
	pkgerrors "github.com/clubpataamiga/pataamiga-backend/pkg/errors"
	"github.com/clubpataamiga/pataamiga-backend/pkg/mxid"
	"github.com/clubpataamiga/pataamiga-backend/pkg/outbox"
	"github.com/clubpataamiga/pataamiga-backend/pkg/outbox/payloads"
	"github.com/clubpataamiga/pataamiga-backend/pkg/pagination"
)

var fieldCheck = validator.New()

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type earningsReader interface {
	Summary(ctx context.Context, ambassadorID uuid.UUID) (*referrals.Summary, error)
}

// Service defines ambassador operations.
type Service interface {
	Apply(ctx context.Context, applicant Applicant, input ApplyInput) (*AmbassadorDTO, error)
	CheckAvailability(ctx context.Context, field, value string) (*Availability, error)
	ValidateReferralCode(ctx context.Context, code string) (*CodeLookup, error)
	GetForMember(ctx context.Context, memberID uuid.UUID) (*AmbassadorDTO, error)
	Dashboard(ctx context.Context, memberID uuid.UUID) (*Dashboard, error)

	AdminList(ctx context.Context, params AdminListParams) (*pagination.Page[AmbassadorDTO], error)
	AdminGet(ctx context.Context, ambassadorID uuid.UUID) (*AmbassadorDTO, error)
	Review(ctx context.Context, input ReviewInput) (*AmbassadorDTO, error)
	Delete(ctx context.Context, ambassadorID, adminID uuid.UUID) error
}

type service struct {
	repo              Repository
	tx                txRunner
	outbox            outboxPublisher
	files             uploads.Service
	earnings          earningsReader
	codes             *codeCache
	defaultCommission decimal.Decimal
	randomSuffix      func() (string, error)
	now               func() time.Time
}

// NewService wires the ambassadors dependencies.
func NewService(repo Repository, tx txRunner, publisher outboxPublisher, files uploads.Service, earnings earningsReader, cfg config.MembershipConfig) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "ambassadors repository required")
	}
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	if publisher == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "outbox publisher required")
	}
	if files == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "uploads service required")
	}
	if earnings == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "earnings reader required")
	}
	return &service{
		repo:              repo,
		tx:                tx,
		outbox:            publisher,
		files:             files,
		earnings:          earnings,
		codes:             newCodeCache(codeCacheTTL),
		defaultCommission: cfg.DefaultCommission(),
		randomSuffix:      randomSuffix,
		now:               func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Apply(ctx context.Context, applicant Applicant, input ApplyInput) (*AmbassadorDTO, error) {
	if applicant.MemberID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "member identity missing")
	}
	if err := normalizeApplication(&input); err != nil {
		return nil, err
	}

	switch existing, err := s.repo.FindByMember(ctx, applicant.MemberID); {
	case err == nil:
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "ambassador application already submitted").
			WithDetails(map[string]string{"status": existing.Status.String()})
	case !db.IsNotFound(err):
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load ambassador")
	}

	checks := map[enums.AvailabilityField]string{
		enums.AvailabilityFieldEmail: input.Email,
		enums.AvailabilityFieldCURP:  input.CURP,
		enums.AvailabilityFieldRFC:   input.RFC,
	}
	for _, field := range []enums.AvailabilityField{enums.AvailabilityFieldEmail, enums.AvailabilityFieldCURP, enums.AvailabilityFieldRFC} {
		value := checks[field]
		if value == "" {
			continue
		}
		taken, err := s.repo.ExistsBy(ctx, field, value)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check availability")
		}
		if taken {
			return nil, duplicateError(field)
		}
	}

	front, err := s.files.Store(ctx, applicant.MemberID, enums.UploadKindINEFront, *input.INEFront)
	if err != nil {
		return nil, err
	}
	back, err := s.files.Store(ctx, applicant.MemberID, enums.UploadKindINEBack, *input.INEBack)
	if err != nil {
		_ = s.files.Remove(ctx, front.URL)
		return nil, err
	}

	memberID := applicant.MemberID
	ambassador := &models.Ambassador{
		MemberID:             &memberID,
		FirstName:            input.FirstName,
		PaternalSurname:      input.PaternalSurname,
		MaternalSurname:      optional(input.MaternalSurname),
		Email:                input.Email,
		Phone:                input.Phone,
		BirthDate:            input.BirthDate,
		CURP:                 input.CURP,
		RFC:                  optional(input.RFC),
		Street:               optional(input.Street),
		City:                 optional(input.City),
		State:                optional(input.State),
		PostalCode:           optional(input.PostalCode),
		INEFrontURL:          &front.URL,
		INEBackURL:           &back.URL,
		BankName:             optional(input.BankName),
		CLABE:                optional(input.CLABE),
		SocialMedia:          optional(input.SocialMedia),
		Motivation:           optional(input.Motivation),
		Status:               enums.AmbassadorStatusPending,
		CommissionPercentage: s.defaultCommission,
		LinkedMemberstackID:  optional(applicant.MemberstackID),
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, ambassador); err != nil {
			if field, ok := violatedField(err); ok {
				return duplicateError(field)
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create ambassador")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventAmbassadorApplied,
			AggregateType: enums.AggregateAmbassador,
			AggregateID:   ambassador.ID,
			Actor:         outbox.MemberActor(memberID),
			Data: payloads.AmbassadorAppliedEvent{
				AmbassadorID: ambassador.ID,
				MemberID:     &memberID,
				Email:        ambassador.Email,
			},
		})
	})
	if err != nil {
		_ = s.files.Remove(ctx, front.URL)
		_ = s.files.Remove(ctx, back.URL)
		return nil, err
	}
	return FromModel(ambassador), nil
}

// CheckAvailability is read-only; the unique constraints decide races.
func (s *service) CheckAvailability(ctx context.Context, field, value string) (*Availability, error) {
	parsed, err := enums.ParseAvailabilityField(strings.ToLower(strings.TrimSpace(field)))
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "field must be one of curp, email, rfc").
			WithDetails(map[string]string{"field": "oneof=curp email rfc"})
	}
	normalized, ok := normalizeIdentifier(parsed, value)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid "+parsed.String()+" format").
			WithDetails(map[string]string{"value": parsed.String()})
	}
	taken, err := s.repo.ExistsBy(ctx, parsed, normalized)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check availability")
	}
	return &Availability{Field: parsed, Value: normalized, Available: !taken}, nil
}

func (s *service) GetForMember(ctx context.Context, memberID uuid.UUID) (*AmbassadorDTO, error) {
	if memberID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "member identity missing")
	}
	ambassador, err := s.repo.FindByMember(ctx, memberID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "ambassador profile not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load ambassador")
	}
	return FromModel(ambassador), nil
}

func (s *service) Dashboard(ctx context.Context, memberID uuid.UUID) (*Dashboard, error) {
	ambassador, err := s.GetForMember(ctx, memberID)
	if err != nil {
		return nil, err
	}
	out := &Dashboard{Ambassador: *ambassador}
	if ambassador.Status == enums.AmbassadorStatusPending || ambassador.Status == enums.AmbassadorStatusRejected {
		return out, nil
	}
	summary, err := s.earnings.Summary(ctx, ambassador.ID)
	if err != nil {
		return nil, err
	}
	out.Summary = summary
	return out, nil
}

func normalizeApplication(input *ApplyInput) error {
	input.FirstName = strings.TrimSpace(input.FirstName)
	input.PaternalSurname = strings.TrimSpace(input.PaternalSurname)
	input.MaternalSurname = strings.TrimSpace(input.MaternalSurname)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.Phone = strings.TrimSpace(input.Phone)
	input.CURP = mxid.Normalize(input.CURP)
	input.RFC = mxid.Normalize(input.RFC)
	input.CLABE = strings.ReplaceAll(strings.TrimSpace(input.CLABE), " ", "")
	input.Street = strings.TrimSpace(input.Street)
	input.City = strings.TrimSpace(input.City)
	input.State = strings.TrimSpace(input.State)
	input.PostalCode = strings.TrimSpace(input.PostalCode)
	input.BankName = strings.TrimSpace(input.BankName)
	input.SocialMedia = strings.TrimSpace(input.SocialMedia)
	input.Motivation = strings.TrimSpace(input.Motivation)

	details := map[string]string{}
	if input.FirstName == "" {
		details["first_name"] = "required"
	}
	if input.PaternalSurname == "" {
		details["paternal_surname"] = "required"
	}
	if fieldCheck.Var(input.Email, "required,email") != nil {
		details["email"] = "email"
	}
	if input.Phone == "" {
		details["phone"] = "required"
	}
	if !mxid.ValidCURP(input.CURP) {
		details["curp"] = "curp"
	}
	if input.RFC != "" && !mxid.ValidRFC(input.RFC) {
		details["rfc"] = "rfc"
	}
	if input.CLABE != "" && !mxid.ValidCLABE(input.CLABE) {
		details["clabe"] = "clabe"
	}
	if input.INEFront == nil || len(input.INEFront.Data) == 0 {
		details["ine_front"] = "required"
	}
	if input.INEBack == nil || len(input.INEBack.Data) == 0 {
		details["ine_back"] = "required"
	}
	if len(details) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid ambassador application").WithDetails(details)
	}
	return nil
}

func normalizeIdentifier(field enums.AvailabilityField, value string) (string, bool) {
	switch field {
	case enums.AvailabilityFieldEmail:
		email := strings.ToLower(strings.TrimSpace(value))
		return email, fieldCheck.Var(email, "required,email") == nil
	case enums.AvailabilityFieldCURP:
		curp := mxid.Normalize(value)
		return curp, mxid.ValidCURP(curp)
	case enums.AvailabilityFieldRFC:
		rfc := mxid.Normalize(value)
		return rfc, mxid.ValidRFC(rfc)
	}
	return "", false
}

// violatedField maps a unique violation to the availability field it
// protects. Postgres reports the constraint name, SQLite the column.
func violatedField(err error) (enums.AvailabilityField, bool) {
	for _, field := range []enums.AvailabilityField{enums.AvailabilityFieldEmail, enums.AvailabilityFieldCURP, enums.AvailabilityFieldRFC} {
		if db.IsUniqueViolation(err, "uq_ambassadors_"+field.String()) || db.IsUniqueViolation(err, "ambassadors."+field.String()) {
			return field, true
		}
	}
	return "", false
}

func duplicateError(field enums.AvailabilityField) error {
	return pkgerrors.New(pkgerrors.CodeConflict, field.String()+" already registered").
		WithDetails(map[string]string{"field": field.String()})
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
