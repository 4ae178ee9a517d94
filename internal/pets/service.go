// Package pets implements pet registration, the admin review workflow, the
// appeal flow and the per-pet admin message thread.
package pets

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/clubpataamiga/pataamiga-backend/internal/uploads"
	"github.com/clubpataamiga/pataamiga-backend/internal/waitingperiod"
	"github.com/clubpataamiga/pataamiga-backend/pkg/config"
	"github.com/clubpataamiga/pataamiga-backend/pkg/db"
	"github.com/clubpataamiga/pataamiga-backend/pkg/db/models"
	"github.com/clubpataamiga/pataamiga-backend/pkg/enums"
	pkgerrors "github.com/clubpataamiga/pataamiga-backend/pkg/errors"
	"github.com/clubpataamiga/pataamiga-backend/pkg/outbox"
	"github.com/clubpataamiga/pataamiga-backend/pkg/outbox/payloads"
	"github.com/clubpataamiga/pataamiga-backend/pkg/pagination"
)

const (
	minAppealMessageLen = 10
	maxNameLen          = 80
	appealCap           = 2
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service defines the member and admin pet operations.
type Service interface {
	Register(ctx context.Context, memberID uuid.UUID, input RegisterInput) (*PetDTO, error)
	ListForMember(ctx context.Context, memberID uuid.UUID) ([]PetDTO, error)
	GetForMember(ctx context.Context, memberID, petID uuid.UUID) (*PetDTO, error)
	WaitingPeriod(ctx context.Context, memberID, petID uuid.UUID) (*waitingperiod.Result, error)
	SubmitAppeal(ctx context.Context, memberID, petID uuid.UUID, input AppealInput) (*PetDTO, error)
	SubmitUpdate(ctx context.Context, memberID, petID uuid.UUID, input UpdateInput) (*PetDTO, error)
	AppealLog(ctx context.Context, memberID, petID uuid.UUID) ([]AppealLogDTO, error)

	AdminList(ctx context.Context, params AdminListParams) (*pagination.Page[PetDTO], error)
	AdminGet(ctx context.Context, petID uuid.UUID) (*PetDTO, error)
	Decide(ctx context.Context, input DecisionInput) (*PetDTO, error)
	AddAdminMessage(ctx context.Context, petID, adminID uuid.UUID, message string) (*AppealLogDTO, error)
	AdminAppealLog(ctx context.Context, petID uuid.UUID) ([]AppealLogDTO, error)

	NotifyCompletedWaitingPeriods(ctx context.Context, lookback time.Duration, limit int) (int, error)
}

type service struct {
	repo       Repository
	tx         txRunner
	outbox     outboxPublisher
	files      uploads.Service
	policy     waitingperiod.Policy
	maxAppeals int
	now        func() time.Time
}

// NewService wires the pets dependencies.
func NewService(repo Repository, tx txRunner, publisher outboxPublisher, files uploads.Service, cfg config.MembershipConfig) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "pets repository required")
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
	maxAppeals := cfg.MaxAppeals
	if maxAppeals <= 0 || maxAppeals > appealCap {
		maxAppeals = appealCap
	}
	return &service{
		repo:       repo,
		tx:         tx,
		outbox:     publisher,
		files:      files,
		policy:     waitingperiod.NewPolicy(cfg),
		maxAppeals: maxAppeals,
		now:        func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Register(ctx context.Context, memberID uuid.UUID, input RegisterInput) (*PetDTO, error) {
	if memberID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "member identity missing")
	}
	if err := validateRegister(&input, s.now()); err != nil {
		return nil, err
	}

	stored, err := s.storeFiles(ctx, memberID, map[string]*uploads.File{
		"photo":           input.Photo,
		"photo2":          input.Photo2,
		"vet_certificate": input.VetCertificate,
	})
	if err != nil {
		return nil, err
	}

	pet := &models.Pet{
		MemberID:          memberID,
		Name:              input.Name,
		Species:           input.Species,
		Breed:             input.Breed,
		BreedSize:         input.BreedSize,
		BirthDate:         input.BirthDate,
		Status:            enums.PetStatusPending,
		PhotoURL:          stored["photo"],
		Photo2URL:         stored["photo2"],
		VetCertificateURL: stored["vet_certificate"],
	}
	if input.RUAC != "" {
		ruac := input.RUAC
		pet.RUAC = &ruac
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, pet); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create pet")
		}
		if err := repo.AppendLog(ctx, &models.PetAppealLog{
			PetID:      pet.ID,
			AuthorType: enums.AppealAuthorSystem,
			Message:    "Registro recibido, en revisión",
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append pet log")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPetRegistered,
			AggregateType: enums.AggregatePet,
			AggregateID:   pet.ID,
			Actor:         outbox.MemberActor(memberID),
			Data: payloads.PetRegisteredEvent{
				PetID:    pet.ID,
				MemberID: memberID,
				PetName:  pet.Name,
			},
		})
	})
	if err != nil {
		s.discardFiles(ctx, stored)
		return nil, err
	}
	return s.toDTO(pet), nil
}

func (s *service) ListForMember(ctx context.Context, memberID uuid.UUID) ([]PetDTO, error) {
	if memberID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "member identity missing")
	}
	rows, err := s.repo.ListByMember(ctx, memberID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list pets")
	}
	out := make([]PetDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *s.toDTO(&rows[i]))
	}
	return out, nil
}

func (s *service) GetForMember(ctx context.Context, memberID, petID uuid.UUID) (*PetDTO, error) {
	pet, err := s.loadOwned(ctx, s.repo, memberID, petID)
	if err != nil {
		return nil, err
	}
	return s.toDTO(pet), nil
}

func (s *service) WaitingPeriod(ctx context.Context, memberID, petID uuid.UUID) (*waitingperiod.Result, error) {
	pet, err := s.loadOwned(ctx, s.repo, memberID, petID)
	if err != nil {
		return nil, err
	}
	result := s.policy.ForPet(*pet, s.now())
	return &result, nil
}

// SubmitAppeal records the owner's appeal of a rejection. The update is
// conditional on status = rejected and appeal_count < cap so concurrent
// submissions cannot exceed the cap.
func (s *service) SubmitAppeal(ctx context.Context, memberID, petID uuid.UUID, input AppealInput) (*PetDTO, error) {
	message := strings.TrimSpace(input.Message)
	if utf8.RuneCountInString(message) < minAppealMessageLen {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "appeal message must have at least 10 characters").
			WithDetails(map[string]string{"message": "min=10"})
	}

	pet, err := s.loadOwned(ctx, s.repo, memberID, petID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureAppealable(pet); err != nil {
		return nil, err
	}

	stored, err := s.storeFiles(ctx, memberID, map[string]*uploads.File{
		"photo":  input.Photo,
		"photo2": input.Photo2,
	})
	if err != nil {
		return nil, err
	}

	now := s.now()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ok, err := repo.ApplyAppeal(ctx, pet.ID, s.maxAppeals, appealUpdate{
			Message:   message,
			At:        now,
			PhotoURL:  stored["photo"],
			Photo2URL: stored["photo2"],
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record appeal")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "pet can no longer be appealed")
		}
		authorID := memberID
		if err := repo.AppendLog(ctx, &models.PetAppealLog{
			PetID:      pet.ID,
			AuthorType: enums.AppealAuthorUserAppeal,
			AuthorID:   &authorID,
			Message:    message,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append appeal log")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPetAppealSubmitted,
			AggregateType: enums.AggregatePet,
			AggregateID:   pet.ID,
			Actor:         outbox.MemberActor(memberID),
			Data: payloads.PetAppealSubmittedEvent{
				PetID:       pet.ID,
				MemberID:    memberID,
				PetName:     pet.Name,
				AppealCount: pet.AppealCount + 1,
			},
		})
	})
	if err != nil {
		s.discardFiles(ctx, stored)
		return nil, err
	}
	return s.reload(ctx, pet.ID)
}

// SubmitUpdate answers an action_required review and returns the pet to pending.
func (s *service) SubmitUpdate(ctx context.Context, memberID, petID uuid.UUID, input UpdateInput) (*PetDTO, error) {
	message := strings.TrimSpace(input.Message)
	if message == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "message is required").
			WithDetails(map[string]string{"message": "required"})
	}

	pet, err := s.loadOwned(ctx, s.repo, memberID, petID)
	if err != nil {
		return nil, err
	}
	if pet.Status != enums.PetStatusActionRequired {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "pet is not awaiting an update").
			WithDetails(map[string]string{"status": pet.Status.String()})
	}

	stored, err := s.storeFiles(ctx, memberID, map[string]*uploads.File{
		"photo":           input.Photo,
		"photo2":          input.Photo2,
		"vet_certificate": input.VetCertificate,
	})
	if err != nil {
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ok, err := repo.ApplyUpdate(ctx, pet.ID, ownerUpdate{
			At:                s.now(),
			PhotoURL:          stored["photo"],
			Photo2URL:         stored["photo2"],
			VetCertificateURL: stored["vet_certificate"],
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record pet update")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "pet is not awaiting an update")
		}
		authorID := memberID
		if err := repo.AppendLog(ctx, &models.PetAppealLog{
			PetID:      pet.ID,
			AuthorType: enums.AppealAuthorUserUpdate,
			AuthorID:   &authorID,
			Message:    message,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append update log")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPetUpdateSubmitted,
			AggregateType: enums.AggregatePet,
			AggregateID:   pet.ID,
			Actor:         outbox.MemberActor(memberID),
			Data: payloads.PetUpdateSubmittedEvent{
				PetID:    pet.ID,
				MemberID: memberID,
				PetName:  pet.Name,
			},
		})
	})
	if err != nil {
		s.discardFiles(ctx, stored)
		return nil, err
	}
	return s.reload(ctx, pet.ID)
}

func (s *service) AppealLog(ctx context.Context, memberID, petID uuid.UUID) ([]AppealLogDTO, error) {
	pet, err := s.loadOwned(ctx, s.repo, memberID, petID)
	if err != nil {
		return nil, err
	}
	return s.listLogs(ctx, pet.ID)
}

func (s *service) ensureAppealable(pet *models.Pet) error {
	if pet.Status != enums.PetStatusRejected {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "only rejected pets can be appealed").
			WithDetails(map[string]string{"status": pet.Status.String()})
	}
	if pet.AppealCount >= s.maxAppeals {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "appeal limit reached").
			WithDetails(map[string]int{"appeal_count": pet.AppealCount, "max_appeals": s.maxAppeals})
	}
	return nil
}

func (s *service) loadOwned(ctx context.Context, repo Repository, memberID, petID uuid.UUID) (*models.Pet, error) {
	if memberID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "member identity missing")
	}
	pet, err := s.load(ctx, repo, petID)
	if err != nil {
		return nil, err
	}
	if pet.MemberID != memberID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "pet not found")
	}
	return pet, nil
}

func (s *service) load(ctx context.Context, repo Repository, petID uuid.UUID) (*models.Pet, error) {
	if petID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pet id required")
	}
	pet, err := repo.FindByID(ctx, petID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "pet not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pet")
	}
	return pet, nil
}

func (s *service) reload(ctx context.Context, petID uuid.UUID) (*PetDTO, error) {
	pet, err := s.load(ctx, s.repo, petID)
	if err != nil {
		return nil, err
	}
	return s.toDTO(pet), nil
}

func (s *service) listLogs(ctx context.Context, petID uuid.UUID) ([]AppealLogDTO, error) {
	rows, err := s.repo.ListLogs(ctx, petID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list pet log")
	}
	return logsFromModels(rows), nil
}

func (s *service) toDTO(pet *models.Pet) *PetDTO {
	dto := fromModel(pet, s.maxAppeals)
	result := s.policy.ForPet(*pet, s.now())
	dto.WaitingPeriod = &result
	return dto
}

// storeFiles uploads every non-nil file as a pet photo or certificate and
// returns the public URLs keyed like the input. Already stored files are
// removed when a later upload fails.
func (s *service) storeFiles(ctx context.Context, ownerID uuid.UUID, files map[string]*uploads.File) (map[string]*string, error) {
	stored := make(map[string]*string, len(files))
	for _, field := range []string{"photo", "photo2", "vet_certificate"} {
		file := files[field]
		if file == nil {
			continue
		}
		kind := enums.UploadKindPetPhoto
		if field == "vet_certificate" {
			kind = enums.UploadKindVetCertificate
		}
		out, err := s.files.Store(ctx, ownerID, kind, *file)
		if err != nil {
			s.discardFiles(ctx, stored)
			return nil, err
		}
		url := out.URL
		stored[field] = &url
	}
	return stored, nil
}

func (s *service) discardFiles(ctx context.Context, stored map[string]*string) {
	for _, url := range stored {
		if url != nil {
			_ = s.files.Remove(ctx, *url)
		}
	}
}

func validateRegister(input *RegisterInput, now time.Time) error {
	input.Name = strings.TrimSpace(input.Name)
	input.Breed = strings.TrimSpace(input.Breed)
	input.RUAC = strings.ToUpper(strings.TrimSpace(input.RUAC))

	details := map[string]string{}
	switch {
	case input.Name == "":
		details["name"] = "required"
	case utf8.RuneCountInString(input.Name) > maxNameLen:
		details["name"] = "max=80"
	}
	if !input.Species.IsValid() {
		details["species"] = "oneof=dog cat"
	}
	if input.Breed == "" {
		details["breed"] = "required"
	}
	if !input.BreedSize.IsValid() {
		details["breed_size"] = "oneof=small medium large giant"
	}
	if input.BirthDate != nil && input.BirthDate.After(now) {
		details["birth_date"] = "must not be in the future"
	}
	if input.Photo == nil {
		details["photo"] = "required"
	}
	if len(details) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid pet").WithDetails(details)
	}
	return nil
}
