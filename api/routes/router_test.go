package routes

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/clubpataamiga/pataamiga-backend/internal/ambassadors"
	"github.com/clubpataamiga/pataamiga-backend/internal/members"
	"github.com/clubpataamiga/pataamiga-backend/pkg/auth"
	"github.com/clubpataamiga/pataamiga-backend/pkg/auth/session"
	"github.com/clubpataamiga/pataamiga-backend/pkg/config"
	"github.com/clubpataamiga/pataamiga-backend/pkg/db/models"
	"github.com/clubpataamiga/pataamiga-backend/pkg/enums"
	pkgerrors "github.com/clubpataamiga/pataamiga-backend/pkg/errors"
	"github.com/clubpataamiga/pataamiga-backend/pkg/logger"
	"github.com/clubpataamiga/pataamiga-backend/pkg/memberstack"
)

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test"},
		JWT: config.JWTConfig{Secret: "router-secret", Issuer: "pataamiga", ExpirationMinutes: 30},
		PublicRateLimit: config.PublicRateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             100,
			IdleTTL:           time.Minute,
		},
		CORS:    config.CORSConfig{AllowedOrigins: []string{"*"}},
		Uploads: config.UploadsConfig{MaxImageMB: 1, MaxPDFMB: 1},
	}
}

type stubVerifier struct{}

func (stubVerifier) VerifyToken(ctx context.Context, token string) (memberstack.TokenIdentity, error) {
	if token != "member-token" {
		return memberstack.TokenIdentity{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid member token")
	}
	return memberstack.TokenIdentity{MemberID: "mem_123", ExpiresAt: time.Now().Add(time.Hour)}, nil
}

type stubMembers struct {
	members.Service
	member *models.Member
}

func (s stubMembers) Resolve(ctx context.Context, memberstackID string) (*models.Member, error) {
	return s.member, nil
}

type stubAmbassadors struct {
	ambassadors.Service
	deleted *uuid.UUID
}

func (s stubAmbassadors) ValidateReferralCode(ctx context.Context, code string) (*ambassadors.CodeLookup, error) {
	return &ambassadors.CodeLookup{Code: code, Valid: code == "LUNA-1234", AmbassadorName: "Ana Ruiz"}, nil
}

func (s stubAmbassadors) GetForMember(ctx context.Context, memberID uuid.UUID) (*ambassadors.AmbassadorDTO, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "ambassador not found")
}

func (s stubAmbassadors) Delete(ctx context.Context, ambassadorID, adminID uuid.UUID) error {
	*s.deleted = ambassadorID
	return nil
}

type stubSessions struct{}

func (stubSessions) HasSession(ctx context.Context, accessID string) (bool, error) {
	return true, nil
}

type testRouter struct {
	handler http.Handler
	cfg     *config.Config
	deleted *uuid.UUID
}

func newTestRouter(t *testing.T) testRouter {
	t.Helper()
	cfg := testConfig()
	deleted := new(uuid.UUID)
	logg := logger.New(logger.Options{ServiceName: "test", Level: "debug", Output: io.Discard})
	handler := NewRouter(Dependencies{
		Config:         cfg,
		Logger:         logg,
		Sessions:       stubSessions{},
		MemberVerifier: stubVerifier{},
		Members:        stubMembers{member: &models.Member{ID: uuid.New(), MemberstackID: "mem_123", Email: "ana@example.com"}},
		Ambassadors:    stubAmbassadors{deleted: deleted},
	})
	return testRouter{handler: handler, cfg: cfg, deleted: deleted}
}

func (tr testRouter) do(req *http.Request) *httptest.ResponseRecorder {
	resp := httptest.NewRecorder()
	tr.handler.ServeHTTP(resp, req)
	return resp
}

func adminToken(t *testing.T, cfg *config.Config, role enums.AdminRole) string {
	t.Helper()
	token, err := auth.MintAccessToken(cfg.JWT, time.Now(), auth.AccessTokenPayload{
		AdminID: uuid.New(),
		Email:   "ops@clubpataamiga.com",
		Role:    role,
		JTI:     session.NewAccessID(),
	})
	require.NoError(t, err)
	return token
}

func TestHealthLive(t *testing.T) {
	tr := newTestRouter(t)

	resp := tr.do(httptest.NewRequest(http.MethodGet, "/health/live", nil))

	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, "test", resp.Header().Get("X-PataAmiga-Env"))
}

func TestPublicReferralCodeNeedsNoToken(t *testing.T) {
	tr := newTestRouter(t)

	resp := tr.do(httptest.NewRequest(http.MethodGet, "/api/public/referral-codes/LUNA-1234", nil))
	require.Equal(t, http.StatusOK, resp.Code)

	var body struct {
		Data ambassadors.CodeLookup `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	require.True(t, body.Data.Valid)
	require.Equal(t, "Ana Ruiz", body.Data.AmbassadorName)
}

func TestMemberGroupRejectsMissingToken(t *testing.T) {
	tr := newTestRouter(t)

	resp := tr.do(httptest.NewRequest(http.MethodGet, "/api/v1/me", nil))
	require.Equal(t, http.StatusUnauthorized, resp.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("Authorization", "Bearer forged")
	require.Equal(t, http.StatusUnauthorized, tr.do(req).Code)
}

func TestAdminGroupRejectsMemberToken(t *testing.T) {
	tr := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/ambassadors/"+uuid.NewString(), nil)
	req.Header.Set("Authorization", "Bearer member-token")
	require.Equal(t, http.StatusUnauthorized, tr.do(req).Code)
}

func TestAmbassadorDeleteRequiresSuperAdmin(t *testing.T) {
	tr := newTestRouter(t)
	target := uuid.New()

	req := httptest.NewRequest(http.MethodDelete, "/api/admin/ambassadors/"+target.String(), nil)
	req.Header.Set("Authorization", "Bearer "+adminToken(t, tr.cfg, enums.AdminRoleAdmin))
	require.Equal(t, http.StatusForbidden, tr.do(req).Code)
	require.Equal(t, uuid.Nil, *tr.deleted)

	req = httptest.NewRequest(http.MethodDelete, "/api/admin/ambassadors/"+target.String(), nil)
	req.Header.Set("Authorization", "Bearer "+adminToken(t, tr.cfg, enums.AdminRoleSuperAdmin))
	resp := tr.do(req)
	require.Less(t, resp.Code, http.StatusMultipleChoices)
	require.Equal(t, target, *tr.deleted)
}
