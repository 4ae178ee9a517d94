package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clubpataamiga/pataamiga-backend/api/middleware"
	"github.com/clubpataamiga/pataamiga-backend/internal/notifications"
	"github.com/clubpataamiga/pataamiga-backend/pkg/db/models"
	pkgerrors "github.com/clubpataamiga/pataamiga-backend/pkg/errors"
	"github.com/clubpataamiga/pataamiga-backend/pkg/logger"
	"github.com/clubpataamiga/pataamiga-backend/pkg/pagination"
)

type stubNotifications struct {
	listParams  notifications.ListParams
	listResult  *notifications.ListResult
	marked      []uuid.UUID
	markErr     error
	markedAll   uuid.UUID
	markAllRead int64
}

func (s *stubNotifications) List(_ context.Context, params notifications.ListParams) (*notifications.ListResult, error) {
	s.listParams = params
	if s.listResult == nil {
		return &notifications.ListResult{}, nil
	}
	return s.listResult, nil
}

func (s *stubNotifications) MarkRead(_ context.Context, memberID, notificationID uuid.UUID) error {
	s.marked = append(s.marked, memberID, notificationID)
	return s.markErr
}

func (s *stubNotifications) MarkAllRead(_ context.Context, memberID uuid.UUID) (int64, error) {
	s.markedAll = memberID
	return s.markAllRead, nil
}

func asMember(req *http.Request, member *models.Member) *http.Request {
	return req.WithContext(middleware.WithMember(req.Context(), member))
}

func TestListNotificationsForwardsFilters(t *testing.T) {
	member := &models.Member{ID: uuid.New()}
	svc := &stubNotifications{listResult: &notifications.ListResult{
		Page: pagination.Page[notifications.NotificationDTO]{
			Items:      []notifications.NotificationDTO{{ID: uuid.New(), Title: "Mascota aprobada"}},
			NextCursor: "abc",
		},
		UnreadCount: 4,
	}}

	req := asMember(httptest.NewRequest(http.MethodGet, "/api/notifications?type=payout&unreadOnly=true&limit=5", nil), member)
	rec := httptest.NewRecorder()
	ListNotifications(svc, testLogger())(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, notifications.ListParams{MemberID: member.ID, Type: "payout", UnreadOnly: true, Limit: 5}, svc.listParams)

	var envelope struct {
		Data struct {
			Items       []json.RawMessage `json:"items"`
			NextCursor  string            `json:"next_cursor"`
			UnreadCount int64             `json:"unread_count"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Len(t, envelope.Data.Items, 1)
	assert.Equal(t, "abc", envelope.Data.NextCursor)
	assert.EqualValues(t, 4, envelope.Data.UnreadCount)
}

func TestListNotificationsRejectsBadUnreadFlag(t *testing.T) {
	req := asMember(httptest.NewRequest(http.MethodGet, "/api/notifications?unreadOnly=maybe", nil), &models.Member{ID: uuid.New()})
	rec := httptest.NewRecorder()
	ListNotifications(&stubNotifications{}, testLogger())(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMarkNotificationRead(t *testing.T) {
	member := &models.Member{ID: uuid.New()}
	notificationID := uuid.New()
	svc := &stubNotifications{}

	req := httptest.NewRequest(http.MethodPatch, "/api/notifications/"+notificationID.String()+"/read", nil)
	req = addRouteParam(asMember(req, member), "notificationId", notificationID.String())
	rec := httptest.NewRecorder()
	MarkNotificationRead(svc, testLogger())(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []uuid.UUID{member.ID, notificationID}, svc.marked)
	assert.JSONEq(t, `{"success":true,"data":{"read":true}}`, rec.Body.String())
}

func TestMarkNotificationReadErrors(t *testing.T) {
	cases := []struct {
		name   string
		member *models.Member
		param  string
		svcErr error
		want   int
	}{
		{name: "no member", param: uuid.NewString(), want: http.StatusUnauthorized},
		{name: "bad id", member: &models.Member{ID: uuid.New()}, param: "invalid", want: http.StatusBadRequest},
		{
			name:   "not found",
			member: &models.Member{ID: uuid.New()},
			param:  uuid.NewString(),
			svcErr: pkgerrors.New(pkgerrors.CodeNotFound, "notification not found"),
			want:   http.StatusNotFound,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPatch, "/api/notifications/x/read", nil)
			if tc.member != nil {
				req = asMember(req, tc.member)
			}
			req = addRouteParam(req, "notificationId", tc.param)
			rec := httptest.NewRecorder()
			MarkNotificationRead(&stubNotifications{markErr: tc.svcErr}, testLogger())(rec, req)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestMarkAllNotificationsRead(t *testing.T) {
	member := &models.Member{ID: uuid.New()}
	svc := &stubNotifications{markAllRead: 5}

	req := asMember(httptest.NewRequest(http.MethodPatch, "/api/notifications/read-all", nil), member)
	rec := httptest.NewRecorder()
	MarkAllNotificationsRead(svc, testLogger())(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, member.ID, svc.markedAll)
	assert.JSONEq(t, `{"success":true,"data":{"updated":5}}`, rec.Body.String())
}

func addRouteParam(req *http.Request, key, value string) *http.Request {
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}
