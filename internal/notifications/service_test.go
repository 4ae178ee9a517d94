package notifications

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/clubpataamiga/pataamiga-backend/pkg/db/dbtest"
	"github.com/clubpataamiga/pataamiga-backend/pkg/db/models"
	"github.com/clubpataamiga/pataamiga-backend/pkg/enums"
	pkgerrors "github.com/clubpataamiga/pataamiga-backend/pkg/errors"
)

type fixture struct {
	svc    Service
	conn   *gorm.DB
	member uuid.UUID
	base   time.Time
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	conn := dbtest.Open(t)
	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)
	return fixture{
		svc:    svc,
		conn:   conn,
		member: uuid.New(),
		base:   time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (f fixture) seed(t *testing.T, member uuid.UUID, kind enums.NotificationType, age time.Duration, read bool) models.Notification {
	t.Helper()
	n := models.Notification{
		MemberID:  member,
		Type:      kind,
		Title:     "Actualización",
		Message:   "Tu mascota fue revisada",
		CreatedAt: f.base.Add(-age),
	}
	if read {
		at := f.base
		n.ReadAt = &at
	}
	require.NoError(t, NewRepository(f.conn).Create(context.Background(), &n))
	return n
}

func TestListPagesNewestFirst(t *testing.T) {
	f := newFixture(t)
	newest := f.seed(t, f.member, enums.NotificationTypePetStatus, time.Minute, false)
	middle := f.seed(t, f.member, enums.NotificationTypeReferral, time.Hour, true)
	oldest := f.seed(t, f.member, enums.NotificationTypePayout, 2*time.Hour, false)
	f.seed(t, uuid.New(), enums.NotificationTypePetStatus, 0, false)

	first, err := f.svc.List(context.Background(), ListParams{MemberID: f.member, Limit: 2})
	require.NoError(t, err)
	require.Len(t, first.Items, 2)
	assert.Equal(t, newest.ID, first.Items[0].ID)
	assert.Equal(t, middle.ID, first.Items[1].ID)
	assert.True(t, first.Items[1].Read)
	assert.EqualValues(t, 2, first.UnreadCount)
	require.NotEmpty(t, first.NextCursor)

	second, err := f.svc.List(context.Background(), ListParams{MemberID: f.member, Limit: 2, Cursor: first.NextCursor})
	require.NoError(t, err)
	require.Len(t, second.Items, 1)
	assert.Equal(t, oldest.ID, second.Items[0].ID)
	assert.Empty(t, second.NextCursor)
}

func TestListFilters(t *testing.T) {
	f := newFixture(t)
	f.seed(t, f.member, enums.NotificationTypePetStatus, time.Minute, true)
	unread := f.seed(t, f.member, enums.NotificationTypePetStatus, time.Hour, false)
	payout := f.seed(t, f.member, enums.NotificationTypePayout, 2*time.Hour, false)

	onlyUnread, err := f.svc.List(context.Background(), ListParams{MemberID: f.member, UnreadOnly: true})
	require.NoError(t, err)
	assert.Len(t, onlyUnread.Items, 2)

	byType, err := f.svc.List(context.Background(), ListParams{MemberID: f.member, Type: "payout"})
	require.NoError(t, err)
	require.Len(t, byType.Items, 1)
	assert.Equal(t, payout.ID, byType.Items[0].ID)
	assert.EqualValues(t, 2, byType.UnreadCount)

	both, err := f.svc.List(context.Background(), ListParams{MemberID: f.member, Type: "pet_status", UnreadOnly: true})
	require.NoError(t, err)
	require.Len(t, both.Items, 1)
	assert.Equal(t, unread.ID, both.Items[0].ID)
}

func TestListRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.List(context.Background(), ListParams{MemberID: f.member, Cursor: "%%%"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.List(context.Background(), ListParams{MemberID: f.member, Type: "marketing"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.List(context.Background(), ListParams{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
}

func TestMarkReadIsIdempotentAndScoped(t *testing.T) {
	f := newFixture(t)
	n := f.seed(t, f.member, enums.NotificationTypeAdminMessage, time.Minute, false)

	require.NoError(t, f.svc.MarkRead(context.Background(), f.member, n.ID))
	var stored models.Notification
	require.NoError(t, f.conn.First(&stored, "id = ?", n.ID).Error)
	require.NotNil(t, stored.ReadAt)
	firstRead := *stored.ReadAt

	require.NoError(t, f.svc.MarkRead(context.Background(), f.member, n.ID))
	require.NoError(t, f.conn.First(&stored, "id = ?", n.ID).Error)
	assert.True(t, firstRead.Equal(*stored.ReadAt))

	err := f.svc.MarkRead(context.Background(), uuid.New(), n.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	err = f.svc.MarkRead(context.Background(), f.member, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	err = f.svc.MarkRead(context.Background(), f.member, uuid.Nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestMarkAllRead(t *testing.T) {
	f := newFixture(t)
	f.seed(t, f.member, enums.NotificationTypePetStatus, time.Minute, false)
	f.seed(t, f.member, enums.NotificationTypeReferral, time.Hour, false)
	f.seed(t, f.member, enums.NotificationTypePayout, 2*time.Hour, true)
	other := uuid.New()
	f.seed(t, other, enums.NotificationTypePetStatus, 0, false)

	updated, err := f.svc.MarkAllRead(context.Background(), f.member)
	require.NoError(t, err)
	assert.EqualValues(t, 2, updated)

	left, err := NewRepository(f.conn).CountUnread(context.Background(), other)
	require.NoError(t, err)
	assert.EqualValues(t, 1, left)
}

type brokenStore struct{ store }

func (brokenStore) MarkAllRead(context.Context, uuid.UUID, time.Time) (int64, error) {
	return 0, errors.New("connection reset")
}

func TestMarkAllReadStoreFailure(t *testing.T) {
	svc, err := NewService(brokenStore{})
	require.NoError(t, err)
	_, err = svc.MarkAllRead(context.Background(), uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}

func TestNewServiceRequiresRepository(t *testing.T) {
	_, err := NewService(nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}
