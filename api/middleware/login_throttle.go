package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/clubpataamiga/pataamiga-backend/api/responses"
	pkgerrors "github.com/clubpataamiga/pataamiga-backend/pkg/errors"
	"github.com/clubpataamiga/pataamiga-backend/pkg/logger"
)

const loginBodyLimit = 16 << 10

// AttemptCounter is a shared fixed-window counter. The Redis client
// implements it so every API instance sees the same attempt counts.
type AttemptCounter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// LoginThrottle caps admin login attempts per client IP and per account
// email inside a fixed window. A zero limit disables that dimension.
type LoginThrottle struct {
	Window     time.Duration
	PerIP      int
	PerAccount int
}

type attemptBucket struct {
	dimension string
	scope     string
	limit     int
}

// Handler returns the middleware. With a nil counter or no limits it is a
// passthrough.
func (t LoginThrottle) Handler(counter AttemptCounter, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if counter == nil || t.Window <= 0 || (t.PerIP <= 0 && t.PerAccount <= 0) {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			buckets, err := t.buckets(r)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unreadable login body"))
				return
			}

			for _, b := range buckets {
				allowed, attempts, err := counter.FixedWindowAllow(ctx, b.scope, int64(b.limit), t.Window)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "login throttle"))
					return
				}
				if !allowed {
					t.reject(ctx, logg, w, b, attempts)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// buckets reads the body once to find the account email and puts it back
// for the login handler.
func (t LoginThrottle) buckets(r *http.Request) ([]attemptBucket, error) {
	var out []attemptBucket
	if t.PerIP > 0 {
		out = append(out, attemptBucket{dimension: "ip", scope: "login:ip:" + clientIP(r), limit: t.PerIP})
	}
	if t.PerAccount <= 0 || r.Body == nil {
		return out, nil
	}

	raw, err := io.ReadAll(io.LimitReader(r.Body, loginBodyLimit))
	if err != nil {
		return nil, err
	}
	r.Body = io.NopCloser(bytes.NewReader(raw))

	var body struct {
		Email string `json:"email"`
	}
	if json.Unmarshal(raw, &body) != nil {
		return out, nil
	}
	if email := strings.ToLower(strings.TrimSpace(body.Email)); email != "" {
		sum := sha256.Sum256([]byte(email))
		out = append(out, attemptBucket{
			dimension: "account",
			scope:     "login:account:" + hex.EncodeToString(sum[:12]),
			limit:     t.PerAccount,
		})
	}
	return out, nil
}

func (t LoginThrottle) reject(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, b attemptBucket, attempts int64) {
	if logg != nil {
		logg.Warn(logg.WithFields(ctx, map[string]any{
			"dimension": b.dimension,
			"scope":     b.scope,
			"attempts":  attempts,
			"limit":     b.limit,
		}), "admin.login.throttled")
	}
	w.Header().Set("Retry-After", strconv.Itoa(int(t.Window.Seconds())))
	responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many login attempts, try again later"))
}
