package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/clubpataamiga/pataamiga-backend/pkg/db"
	"github.com/clubpataamiga/pataamiga-backend/pkg/db/models"
	"github.com/clubpataamiga/pataamiga-backend/pkg/enums"
	"github.com/clubpataamiga/pataamiga-backend/pkg/pagination"
)

type listFilter struct {
	Type       enums.NotificationType
	UnreadOnly bool
	Cursor     *pagination.Cursor
	Limit      int
}

// Repository is the notifications table. Every read and write is scoped to
// one member except the retention delete.
type Repository struct {
	db *gorm.DB
}

func NewRepository(conn *gorm.DB) *Repository {
	return &Repository{db: conn}
}

func (r *Repository) Create(ctx context.Context, n *models.Notification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

func (r *Repository) mine(ctx context.Context, memberID uuid.UUID) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Notification{}).Where("member_id = ?", memberID)
}

func (r *Repository) List(ctx context.Context, memberID uuid.UUID, f listFilter) ([]models.Notification, error) {
	query := r.mine(ctx, memberID)
	if f.UnreadOnly {
		query = query.Where("read_at IS NULL")
	}
	if f.Type != "" {
		query = query.Where("type = ?", f.Type)
	}
	var rows []models.Notification
	err := pagination.ApplyCursor(query, f.Cursor, "created_at", "id").
		Limit(f.Limit).
		Find(&rows).Error
	return rows, err
}

// MarkRead stamps read_at once; a second call keeps the first timestamp.
// found is false when the notification does not belong to the member.
func (r *Repository) MarkRead(ctx context.Context, memberID, id uuid.UUID, now time.Time) (found bool, err error) {
	var n models.Notification
	if err := r.mine(ctx, memberID).Where("id = ?", id).Take(&n).Error; err != nil {
		if db.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	if n.ReadAt != nil {
		return true, nil
	}
	return true, r.mine(ctx, memberID).
		Where("id = ? AND read_at IS NULL", id).
		UpdateColumn("read_at", now).Error
}

func (r *Repository) MarkAllRead(ctx context.Context, memberID uuid.UUID, now time.Time) (int64, error) {
	res := r.mine(ctx, memberID).Where("read_at IS NULL").UpdateColumn("read_at", now)
	return res.RowsAffected, res.Error
}

func (r *Repository) CountUnread(ctx context.Context, memberID uuid.UUID) (int64, error) {
	var n int64
	err := r.mine(ctx, memberID).Where("read_at IS NULL").Count(&n).Error
	return n, err
}

// DeleteOlderThan is the retention sweep. It runs on tx when the cron job
// batches it with other deletes.
func (r *Repository) DeleteOlderThan(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
	conn := r.db
	if tx != nil {
		conn = tx
	}
	res := conn.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&models.Notification{})
	return res.RowsAffected, res.Error
}
