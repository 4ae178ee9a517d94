// Package session keeps admin refresh sessions in Redis, keyed by the access
// token's jti. A session is single use: refreshing consumes it and issues a
// new jti and refresh token.
package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/clubpataamiga/pataamiga-backend/pkg/config"
	"github.com/clubpataamiga/pataamiga-backend/pkg/redis"
)

const refreshTokenBytes = 32

var (
	ErrInvalidRefreshToken = errors.New("invalid refresh token")

	errNoAccessID = errors.New("session: access id is required")
	errNoAdminID  = errors.New("session: admin id is required")
)

type store interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	GetDel(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	AccessSessionKey(accessID string) string
}

// AccessSessionChecker is what the auth middleware needs to reject tokens
// whose session was revoked or rotated away.
type AccessSessionChecker interface {
	HasSession(ctx context.Context, accessID string) (bool, error)
}

// Rotation is the outcome of a successful refresh.
type Rotation struct {
	AccessID     string
	RefreshToken string
	AdminID      uuid.UUID
}

// record is the stored value. Only a digest of the refresh token is kept.
type record struct {
	AdminID  uuid.UUID `json:"admin_id"`
	Digest   string    `json:"digest"`
	IssuedAt time.Time `json:"issued_at"`
}

type Manager struct {
	store store
	ttl   time.Duration
	now   func() time.Time
}

func NewManager(client *redis.Client, cfg config.JWTConfig) (*Manager, error) {
	if client == nil {
		return nil, errors.New("session: redis client is required")
	}
	return newManager(client, cfg)
}

func newManager(s store, cfg config.JWTConfig) (*Manager, error) {
	ttl := cfg.RefreshTokenTTL()
	accessTTL := time.Duration(cfg.ExpirationMinutes) * time.Minute
	if ttl <= 0 || ttl <= accessTTL {
		return nil, fmt.Errorf("session: refresh ttl %s must exceed access ttl %s", ttl, accessTTL)
	}
	return &Manager{store: s, ttl: ttl, now: time.Now}, nil
}

// NewAccessID returns a fresh jti.
func NewAccessID() string {
	return uuid.NewString()
}

// Generate opens a session for accessID and returns the refresh token.
func (m *Manager) Generate(ctx context.Context, accessID string, adminID uuid.UUID) (string, error) {
	if strings.TrimSpace(accessID) == "" {
		return "", errNoAccessID
	}
	if adminID == uuid.Nil {
		return "", errNoAdminID
	}
	token, err := newRefreshToken()
	if err != nil {
		return "", err
	}
	if err := m.put(ctx, accessID, adminID, token); err != nil {
		return "", err
	}
	return token, nil
}

// Rotate consumes the session for oldAccessID and opens a new one. The old
// session is gone after this call even when the token does not match, so a
// leaked refresh token cannot be replayed alongside the real one.
func (m *Manager) Rotate(ctx context.Context, oldAccessID, provided string) (Rotation, error) {
	if strings.TrimSpace(oldAccessID) == "" || strings.TrimSpace(provided) == "" {
		return Rotation{}, ErrInvalidRefreshToken
	}
	raw, err := m.store.GetDel(ctx, m.store.AccessSessionKey(oldAccessID))
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return Rotation{}, ErrInvalidRefreshToken
		}
		return Rotation{}, err
	}
	var rec record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil || rec.AdminID == uuid.Nil {
		return Rotation{}, ErrInvalidRefreshToken
	}
	if subtle.ConstantTimeCompare([]byte(rec.Digest), []byte(digest(provided))) != 1 {
		return Rotation{}, ErrInvalidRefreshToken
	}

	next := Rotation{AccessID: NewAccessID(), AdminID: rec.AdminID}
	if next.RefreshToken, err = newRefreshToken(); err != nil {
		return Rotation{}, err
	}
	if err := m.put(ctx, next.AccessID, next.AdminID, next.RefreshToken); err != nil {
		return Rotation{}, err
	}
	return next, nil
}

func (m *Manager) Revoke(ctx context.Context, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return errNoAccessID
	}
	return m.store.Del(ctx, m.store.AccessSessionKey(accessID))
}

func (m *Manager) HasSession(ctx context.Context, accessID string) (bool, error) {
	if strings.TrimSpace(accessID) == "" {
		return false, errNoAccessID
	}
	_, err := m.store.Get(ctx, m.store.AccessSessionKey(accessID))
	switch {
	case errors.Is(err, goredis.Nil):
		return false, nil
	case err != nil:
		return false, err
	}
	return true, nil
}

func (m *Manager) put(ctx context.Context, accessID string, adminID uuid.UUID, token string) error {
	raw, err := json.Marshal(record{AdminID: adminID, Digest: digest(token), IssuedAt: m.now().UTC()})
	if err != nil {
		return err
	}
	return m.store.Set(ctx, m.store.AccessSessionKey(accessID), string(raw), m.ttl)
}

func digest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func newRefreshToken() (string, error) {
	buf := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("session: generate refresh token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
