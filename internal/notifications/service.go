// Package notifications stores per-member in-app notifications and turns
// domain events into notifications and automatic messages.
package notifications

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clubpataamiga/pataamiga-backend/pkg/db/models"
	"github.com/clubpataamiga/pataamiga-backend/pkg/enums"
	pkgerrors "github.com/clubpataamiga/pataamiga-backend/pkg/errors"
	"github.com/clubpataamiga/pataamiga-backend/pkg/pagination"
)

type Service interface {
	List(ctx context.Context, params ListParams) (*ListResult, error)
	MarkRead(ctx context.Context, memberID, notificationID uuid.UUID) error
	MarkAllRead(ctx context.Context, memberID uuid.UUID) (int64, error)
}

type store interface {
	List(ctx context.Context, memberID uuid.UUID, f listFilter) ([]models.Notification, error)
	MarkRead(ctx context.Context, memberID, id uuid.UUID, now time.Time) (bool, error)
	MarkAllRead(ctx context.Context, memberID uuid.UUID, now time.Time) (int64, error)
	CountUnread(ctx context.Context, memberID uuid.UUID) (int64, error)
}

type ListParams struct {
	MemberID   uuid.UUID
	Type       string
	UnreadOnly bool
	Limit      int
	Cursor     string
}

type NotificationDTO struct {
	ID        uuid.UUID              `json:"id"`
	Type      enums.NotificationType `json:"type"`
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	Link      *string                `json:"link,omitempty"`
	Read      bool                   `json:"read"`
	ReadAt    *time.Time             `json:"read_at,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

func toDTO(n models.Notification) NotificationDTO {
	return NotificationDTO{
		ID:        n.ID,
		Type:      n.Type,
		Title:     n.Title,
		Message:   n.Message,
		Link:      n.Link,
		Read:      n.ReadAt != nil,
		ReadAt:    n.ReadAt,
		CreatedAt: n.CreatedAt,
	}
}

// ListResult is one page plus the member's total unread count, which the
// bell badge shows regardless of filters.
type ListResult struct {
	pagination.Page[NotificationDTO]
	UnreadCount int64 `json:"unread_count"`
}

var errNoMember = pkgerrors.New(pkgerrors.CodeUnauthorized, "member identity missing")

type service struct {
	repo store
	now  func() time.Time
}

func NewService(repo store) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications repository required")
	}
	return &service{repo: repo, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	if params.MemberID == uuid.Nil {
		return nil, errNoMember
	}
	filter := listFilter{
		UnreadOnly: params.UnreadOnly,
		Limit:      pagination.LimitWithBuffer(params.Limit),
	}
	if raw := strings.TrimSpace(params.Type); raw != "" {
		kind, err := enums.ParseNotificationType(raw)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid notification type").
				WithDetails(map[string]string{"type": "unknown notification type"})
		}
		filter.Type = kind
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	filter.Cursor = cursor

	rows, err := s.repo.List(ctx, params.MemberID, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notifications")
	}
	unread, err := s.repo.CountUnread(ctx, params.MemberID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count unread notifications")
	}

	items := make([]NotificationDTO, len(rows))
	for i, row := range rows {
		items[i] = toDTO(row)
	}
	page := pagination.BuildPage(items, params.Limit, func(n NotificationDTO) pagination.Cursor {
		return pagination.Cursor{CreatedAt: n.CreatedAt, ID: n.ID}
	})
	return &ListResult{Page: page, UnreadCount: unread}, nil
}

// MarkRead is idempotent. Another member's notification reads as not found.
func (s *service) MarkRead(ctx context.Context, memberID, notificationID uuid.UUID) error {
	switch {
	case memberID == uuid.Nil:
		return errNoMember
	case notificationID == uuid.Nil:
		return pkgerrors.New(pkgerrors.CodeValidation, "notification id required")
	}
	found, err := s.repo.MarkRead(ctx, memberID, notificationID, s.now())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notification read")
	}
	if !found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	return nil
}

func (s *service) MarkAllRead(ctx context.Context, memberID uuid.UUID) (int64, error) {
	if memberID == uuid.Nil {
		return 0, errNoMember
	}
	n, err := s.repo.MarkAllRead(ctx, memberID, s.now())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notifications read")
	}
	return n, nil
}
