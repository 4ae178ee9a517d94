package auth

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/clubpataamiga/pataamiga-backend/pkg/enums"
)

var (
	errMissingAdmin  = errors.New("token has no admin id")
	errSubjectDrift  = errors.New("token subject does not match admin id")
	errUnknownRole   = errors.New("token carries an unknown admin role")
	errMissingSecret = errors.New("jwt secret is required")
)

// AccessTokenPayload is what the login and refresh flows know about the
// operator when a token is minted.
type AccessTokenPayload struct {
	AdminID uuid.UUID
	Email   string
	Role    enums.AdminRole
	JTI     string
}

// AccessTokenClaims is the dashboard bearer token. ID (jti) doubles as the
// Redis session key.
type AccessTokenClaims struct {
	AdminID uuid.UUID       `json:"admin_id"`
	Email   string          `json:"email"`
	Role    enums.AdminRole `json:"role"`
	jwt.RegisteredClaims
}

// Validate runs after the registered claims pass; jwt/v5 calls it through
// the ClaimsValidator interface.
func (c AccessTokenClaims) Validate() error {
	switch {
	case c.AdminID == uuid.Nil:
		return errMissingAdmin
	case c.Subject != c.AdminID.String():
		return errSubjectDrift
	case !c.Role.IsValid():
		return errUnknownRole
	}
	return nil
}
