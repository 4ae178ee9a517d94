package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/clubpataamiga/pataamiga-backend/pkg/db/models"
	pkgerrors "github.com/clubpataamiga/pataamiga-backend/pkg/errors"
	"github.com/clubpataamiga/pataamiga-backend/pkg/memberstack"
)

type stubVerifier struct {
	identity memberstack.TokenIdentity
	err      error
	tokens   []string
}

func (s *stubVerifier) VerifyToken(_ context.Context, token string) (memberstack.TokenIdentity, error) {
	s.tokens = append(s.tokens, token)
	return s.identity, s.err
}

type stubResolver struct {
	member *models.Member
	err    error
	ids    []string
}

func (s *stubResolver) Resolve(_ context.Context, memberstackID string) (*models.Member, error) {
	s.ids = append(s.ids, memberstackID)
	return s.member, s.err
}

func TestMemberAuthResolvesMember(t *testing.T) {
	member := &models.Member{ID: uuid.New(), MemberstackID: "mem_123"}
	verifier := &stubVerifier{identity: memberstack.TokenIdentity{MemberID: "mem_123"}}
	resolver := &stubResolver{member: member}

	var got *models.Member
	handler := MemberAuth(verifier, resolver, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = MemberFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("Authorization", "Bearer ms-token")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, []string{"ms-token"}, verifier.tokens)
	require.Equal(t, []string{"mem_123"}, resolver.ids)
	require.Equal(t, member, got)
}

func TestMemberAuthFailures(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		verifier *stubVerifier
		resolver *stubResolver
		want     int
	}{
		{
			name:     "missing header",
			verifier: &stubVerifier{},
			resolver: &stubResolver{},
			want:     http.StatusUnauthorized,
		},
		{
			name:     "rejected token",
			header:   "Bearer bad",
			verifier: &stubVerifier{err: pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid token")},
			resolver: &stubResolver{},
			want:     http.StatusUnauthorized,
		},
		{
			name:     "identity provider down",
			header:   "Bearer tok",
			verifier: &stubVerifier{err: pkgerrors.New(pkgerrors.CodeDependency, "memberstack unavailable")},
			resolver: &stubResolver{},
			want:     http.StatusServiceUnavailable,
		},
		{
			name:     "mirror failure",
			header:   "Bearer tok",
			verifier: &stubVerifier{identity: memberstack.TokenIdentity{MemberID: "mem_1"}},
			resolver: &stubResolver{err: pkgerrors.New(pkgerrors.CodeDependency, "resolve member")},
			want:     http.StatusServiceUnavailable,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			handler := MemberAuth(tt.verifier, tt.resolver, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
			}))
			req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp := httptest.NewRecorder()
			handler.ServeHTTP(resp, req)
			require.Equal(t, tt.want, resp.Code)
			require.False(t, called)
		})
	}
}
