package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/clubpataamiga/pataamiga-backend/internal/admins"
	"github.com/clubpataamiga/pataamiga-backend/internal/auth"
	"github.com/clubpataamiga/pataamiga-backend/pkg/config"
	"github.com/clubpataamiga/pataamiga-backend/pkg/enums"
	pkgerrors "github.com/clubpataamiga/pataamiga-backend/pkg/errors"
)

type stubAuthService struct {
	login        *auth.LoginResponse
	pair         *auth.TokenPair
	err          error
	gotAccess    string
	gotRefresh   string
	logoutCalled bool
}

func (s *stubAuthService) Login(ctx context.Context, req auth.LoginRequest) (*auth.LoginResponse, error) {
	return s.login, s.err
}

func (s *stubAuthService) Refresh(ctx context.Context, accessToken, refreshToken string) (*auth.TokenPair, error) {
	s.gotAccess, s.gotRefresh = accessToken, refreshToken
	return s.pair, s.err
}

func (s *stubAuthService) Logout(ctx context.Context, accessToken string) error {
	s.gotAccess = accessToken
	s.logoutCalled = true
	return s.err
}

func (s *stubAuthService) Bootstrap(ctx context.Context, cfg config.BootstrapConfig) (*admins.AdminDTO, error) {
	return nil, nil
}

func TestAdminLoginSetsTokenHeader(t *testing.T) {
	svc := &stubAuthService{login: &auth.LoginResponse{
		TokenPair: auth.TokenPair{AccessToken: "access", RefreshToken: "refresh", ExpiresIn: 900},
		Admin:     &admins.AdminDTO{ID: uuid.New(), Email: "ops@clubpataamiga.com", Role: enums.AdminRoleAdmin},
	}}

	req := httptest.NewRequest(http.MethodPost, "/api/admin/auth/login", strings.NewReader(`{"email":"ops@clubpataamiga.com","password":"secret"}`))
	resp := httptest.NewRecorder()
	AdminLogin(svc, testLogger())(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, "access", resp.Header().Get(tokenHeader))

	var envelope struct {
		Data struct {
			RefreshToken string `json:"refresh_token"`
			Admin        struct {
				Email string `json:"email"`
			} `json:"admin"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	require.Equal(t, "refresh", envelope.Data.RefreshToken)
	require.Equal(t, "ops@clubpataamiga.com", envelope.Data.Admin.Email)
}

func TestAdminLoginRejectsInvalidPayload(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/admin/auth/login", strings.NewReader(`{"email":"not-an-email"}`))
	resp := httptest.NewRecorder()
	AdminLogin(&stubAuthService{}, testLogger())(resp, req)
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestAdminLoginPropagatesUnauthorized(t *testing.T) {
	svc := &stubAuthService{err: pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")}
	req := httptest.NewRequest(http.MethodPost, "/api/admin/auth/login", strings.NewReader(`{"email":"ops@clubpataamiga.com","password":"nope"}`))
	resp := httptest.NewRecorder()
	AdminLogin(svc, testLogger())(resp, req)
	require.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestAdminRefreshPassesBothTokens(t *testing.T) {
	svc := &stubAuthService{pair: &auth.TokenPair{AccessToken: "new-access", RefreshToken: "new-refresh"}}
	req := httptest.NewRequest(http.MethodPost, "/api/admin/auth/refresh", strings.NewReader(`{"refresh_token":"old-refresh"}`))
	req.Header.Set("Authorization", "Bearer old-access")
	resp := httptest.NewRecorder()
	AdminRefresh(svc, testLogger())(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, "old-access", svc.gotAccess)
	require.Equal(t, "old-refresh", svc.gotRefresh)
	require.Equal(t, "new-access", resp.Header().Get(tokenHeader))
}

func TestAdminRefreshRequiresAccessToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/admin/auth/refresh", strings.NewReader(`{"refresh_token":"old-refresh"}`))
	resp := httptest.NewRecorder()
	AdminRefresh(&stubAuthService{}, testLogger())(resp, req)
	require.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestAdminLogout(t *testing.T) {
	svc := &stubAuthService{}
	req := httptest.NewRequest(http.MethodPost, "/api/admin/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer access")
	resp := httptest.NewRecorder()
	AdminLogout(svc, testLogger())(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	require.True(t, svc.logoutCalled)
	require.Equal(t, "access", svc.gotAccess)
}
