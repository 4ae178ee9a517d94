package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clubpataamiga/pataamiga-backend/pkg/db/dbtest"
	"github.com/clubpataamiga/pataamiga-backend/pkg/db/models"
	"github.com/clubpataamiga/pataamiga-backend/pkg/enums"
)

func TestRepositoryScopesByMember(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	owner, other := uuid.New(), uuid.New()

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Create(ctx, &models.Notification{MemberID: owner, Type: enums.NotificationTypePetStatus, Title: "t", Message: "m"}))
	}
	foreign := &models.Notification{MemberID: other, Type: enums.NotificationTypeReferral, Title: "t", Message: "m"}
	require.NoError(t, repo.Create(ctx, foreign))

	rows, err := repo.List(ctx, owner, listFilter{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	found, err := repo.MarkRead(ctx, owner, foreign.ID, time.Now())
	require.NoError(t, err)
	assert.False(t, found)

	updated, err := repo.MarkAllRead(ctx, owner, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(3), updated)

	unread, err := repo.CountUnread(ctx, other)
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread)
}

func TestRepositoryDeleteOlderThan(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	memberID := uuid.New()

	old := &models.Notification{MemberID: memberID, Type: enums.NotificationTypePayout, Title: "old", Message: "m"}
	require.NoError(t, repo.Create(ctx, old))
	require.NoError(t, conn.Model(old).Update("created_at", time.Now().Add(-60*24*time.Hour)).Error)
	require.NoError(t, repo.Create(ctx, &models.Notification{MemberID: memberID, Type: enums.NotificationTypePayout, Title: "new", Message: "m"}))

	deleted, err := repo.DeleteOlderThan(ctx, nil, time.Now().Add(-30*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}
