package middleware

import (
	"context"
	"net/http"

	"github.com/clubpataamiga/pataamiga-backend/api/responses"
	"github.com/clubpataamiga/pataamiga-backend/pkg/db/models"
	"github.com/clubpataamiga/pataamiga-backend/pkg/logger"
	"github.com/clubpataamiga/pataamiga-backend/pkg/memberstack"
)

// TokenVerifier checks a member token with the identity provider.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (memberstack.TokenIdentity, error)
}

// MemberResolver maps an identity provider id to the local member mirror.
type MemberResolver interface {
	Resolve(ctx context.Context, memberstackID string) (*models.Member, error)
}

// MemberAuth verifies a Memberstack token with the identity provider and
// resolves it to the local member mirror.
func MemberAuth(verifier TokenVerifier, resolver MemberResolver, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := BearerToken(r)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			identity, err := verifier.VerifyToken(r.Context(), token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			member, err := resolver.Resolve(r.Context(), identity.MemberID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			ctx := WithMember(r.Context(), member)
			if logg != nil {
				ctx = logg.WithMemberID(ctx, member.ID.String())
				ctx = logg.WithActorRole(ctx, "member")
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
