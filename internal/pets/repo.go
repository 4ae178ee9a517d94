package pets

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/clubpataamiga/pataamiga-backend/pkg/db/models"
	"github.com/clubpataamiga/pataamiga-backend/pkg/enums"
	"github.com/clubpataamiga/pataamiga-backend/pkg/pagination"
)

// Repository exposes persistence helpers for pets and their review thread.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, pet *models.Pet) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Pet, error)
	ListByMember(ctx context.Context, memberID uuid.UUID) ([]models.Pet, error)
	List(ctx context.Context, params listPetsParams) ([]models.Pet, error)
	ApplyDecision(ctx context.Context, id uuid.UUID, from enums.PetStatus, change decisionUpdate) (bool, error)
	ApplyAppeal(ctx context.Context, id uuid.UUID, maxAppeals int, change appealUpdate) (bool, error)
	ApplyUpdate(ctx context.Context, id uuid.UUID, change ownerUpdate) (bool, error)
	SetAdminResponse(ctx context.Context, id uuid.UUID, message string, at time.Time) error
	AppendLog(ctx context.Context, entry *models.PetAppealLog) error
	ListLogs(ctx context.Context, petID uuid.UUID) ([]models.PetAppealLog, error)
	ListWaitingPeriodComplete(ctx context.Context, window waitingWindow, limit int) ([]models.Pet, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a pets repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

type listPetsParams struct {
	Status   enums.PetStatus
	MemberID uuid.UUID
	Search   string
	Limit    int
	Cursor   *pagination.Cursor
}

type decisionUpdate struct {
	Status     enums.PetStatus
	Notes      *string
	ReviewedBy uuid.UUID
	ReviewedAt time.Time
}

type appealUpdate struct {
	Message   string
	At        time.Time
	PhotoURL  *string
	Photo2URL *string
}

type ownerUpdate struct {
	At                time.Time
	PhotoURL          *string
	Photo2URL         *string
	VetCertificateURL *string
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, pet *models.Pet) error {
	return r.db.WithContext(ctx).Create(pet).Error
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.Pet, error) {
	var pet models.Pet
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&pet).Error; err != nil {
		return nil, err
	}
	return &pet, nil
}

func (r *repositoryImpl) ListByMember(ctx context.Context, memberID uuid.UUID) ([]models.Pet, error) {
	var rows []models.Pet
	err := r.db.WithContext(ctx).
		Where("member_id = ?", memberID).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repositoryImpl) List(ctx context.Context, params listPetsParams) ([]models.Pet, error) {
	query := r.db.WithContext(ctx).Model(&models.Pet{})
	if params.Status != "" {
		query = query.Where("status = ?", params.Status)
	}
	if params.MemberID != uuid.Nil {
		query = query.Where("member_id = ?", params.MemberID)
	}
	if search := strings.ToLower(strings.TrimSpace(params.Search)); search != "" {
		like := "%" + search + "%"
		query = query.Where("(LOWER(name) LIKE ? OR LOWER(breed) LIKE ?)", like, like)
	}
	query = pagination.ApplyCursor(query, params.Cursor, "created_at", "id")

	var rows []models.Pet
	if err := query.Limit(params.Limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ApplyDecision writes an admin decision only if the pet is still in from.
// A nil Notes clears any earlier admin note.
func (r *repositoryImpl) ApplyDecision(ctx context.Context, id uuid.UUID, from enums.PetStatus, change decisionUpdate) (bool, error) {
	updates := map[string]any{
		"status":      change.Status,
		"reviewed_by": change.ReviewedBy,
		"reviewed_at": change.ReviewedAt,
		"updated_at":  change.ReviewedAt,
	}
	if change.Notes != nil {
		updates["admin_notes"] = *change.Notes
	} else {
		updates["admin_notes"] = nil
	}
	result := r.db.WithContext(ctx).
		Model(&models.Pet{}).
		Where("id = ? AND status = ?", id, from).
		UpdateColumns(updates)
	return result.RowsAffected > 0, result.Error
}

// ApplyAppeal records an appeal only while the pet is rejected and under the cap.
func (r *repositoryImpl) ApplyAppeal(ctx context.Context, id uuid.UUID, maxAppeals int, change appealUpdate) (bool, error) {
	updates := map[string]any{
		"status":         enums.PetStatusAppealed,
		"appeal_message": change.Message,
		"appeal_count":   gorm.Expr("appeal_count + 1"),
		"appealed_at":    change.At,
		"updated_at":     change.At,
	}
	if change.PhotoURL != nil {
		updates["photo_url"] = *change.PhotoURL
	}
	if change.Photo2URL != nil {
		updates["photo2_url"] = *change.Photo2URL
	}
	result := r.db.WithContext(ctx).
		Model(&models.Pet{}).
		Where("id = ? AND status = ? AND appeal_count < ?", id, enums.PetStatusRejected, maxAppeals).
		UpdateColumns(updates)
	return result.RowsAffected > 0, result.Error
}

// ApplyUpdate moves an action_required pet back to pending with any new files.
func (r *repositoryImpl) ApplyUpdate(ctx context.Context, id uuid.UUID, change ownerUpdate) (bool, error) {
	updates := map[string]any{
		"status":     enums.PetStatusPending,
		"updated_at": change.At,
	}
	if change.PhotoURL != nil {
		updates["photo_url"] = *change.PhotoURL
	}
	if change.Photo2URL != nil {
		updates["photo2_url"] = *change.Photo2URL
	}
	if change.VetCertificateURL != nil {
		updates["vet_certificate_url"] = *change.VetCertificateURL
	}
	result := r.db.WithContext(ctx).
		Model(&models.Pet{}).
		Where("id = ? AND status = ?", id, enums.PetStatusActionRequired).
		UpdateColumns(updates)
	return result.RowsAffected > 0, result.Error
}

func (r *repositoryImpl) SetAdminResponse(ctx context.Context, id uuid.UUID, message string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Pet{}).
		Where("id = ?", id).
		UpdateColumns(map[string]any{
			"last_admin_response":    message,
			"last_admin_response_at": at,
			"updated_at":             at,
		}).Error
}

func (r *repositoryImpl) AppendLog(ctx context.Context, entry *models.PetAppealLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repositoryImpl) ListLogs(ctx context.Context, petID uuid.UUID) ([]models.PetAppealLog, error) {
	var rows []models.PetAppealLog
	err := r.db.WithContext(ctx).
		Where("pet_id = ?", petID).
		Order("created_at ASC").
		Order("seq ASC").
		Find(&rows).Error
	return rows, err
}

type waitingWindow struct {
	DefaultCutoff time.Time
	ReducedCutoff time.Time
	Lookback      time.Duration
}

// ListWaitingPeriodComplete returns approved pets whose waiting period ended
// inside the lookback window. Pets with a registry id complete at
// ReducedCutoff, the rest at DefaultCutoff.
func (r *repositoryImpl) ListWaitingPeriodComplete(ctx context.Context, window waitingWindow, limit int) ([]models.Pet, error) {
	var rows []models.Pet
	err := r.db.WithContext(ctx).
		Where("status = ?", enums.PetStatusApproved).
		Where(
			"((ruac IS NOT NULL AND ruac <> '' AND created_at <= ? AND created_at > ?) OR ((ruac IS NULL OR ruac = '') AND created_at <= ? AND created_at > ?))",
			window.ReducedCutoff, window.ReducedCutoff.Add(-window.Lookback),
			window.DefaultCutoff, window.DefaultCutoff.Add(-window.Lookback),
		).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
