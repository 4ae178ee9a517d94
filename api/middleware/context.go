package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/clubpataamiga/pataamiga-backend/pkg/db/models"
	"github.com/clubpataamiga/pataamiga-backend/pkg/enums"
)

type contextKey string

const (
	ctxAdminID   contextKey = "admin_id"
	ctxAdminRole contextKey = "admin_role"
	ctxMember    contextKey = "member"
)

// AdminIDFromContext returns the authenticated admin, or uuid.Nil.
func AdminIDFromContext(ctx context.Context) uuid.UUID {
	if ctx == nil {
		return uuid.Nil
	}
	if v, ok := ctx.Value(ctxAdminID).(uuid.UUID); ok {
		return v
	}
	return uuid.Nil
}

func AdminRoleFromContext(ctx context.Context) enums.AdminRole {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxAdminRole).(enums.AdminRole); ok {
		return v
	}
	return ""
}

// MemberFromContext returns the resolved member for member routes.
func MemberFromContext(ctx context.Context) *models.Member {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxMember).(*models.Member); ok {
		return v
	}
	return nil
}

// WithAdmin injects an admin identity; used by Auth and by handler tests.
func WithAdmin(ctx context.Context, adminID uuid.UUID, role enums.AdminRole) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxAdminID, adminID)
	return context.WithValue(ctx, ctxAdminRole, role)
}

// WithMember injects the resolved member.
func WithMember(ctx context.Context, member *models.Member) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxMember, member)
}

// actorScope identifies the caller for idempotency scoping.
func actorScope(ctx context.Context) string {
	if member := MemberFromContext(ctx); member != nil {
		return "member:" + member.ID.String()
	}
	if adminID := AdminIDFromContext(ctx); adminID != uuid.Nil {
		return "admin:" + adminID.String()
	}
	return "anonymous"
}
