package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/clubpataamiga/pataamiga-backend/api/responses"
	pkgerrors "github.com/clubpataamiga/pataamiga-backend/pkg/errors"
	"github.com/clubpataamiga/pataamiga-backend/pkg/logger"
	pkgredis "github.com/clubpataamiga/pataamiga-backend/pkg/redis"
)

const (
	idempotencyHeader     = "Idempotency-Key"
	replayedHeader        = "Idempotent-Replayed"
	maxIdempotencyKeyLen  = 255
	pendingClaimTTL       = 2 * time.Minute
	defaultReplayBodySize = 1 << 20
)

// Idempotent caches the first response to a member write under the caller's
// Idempotency-Key. A retry with the same key and body replays the cached
// response; a retry with a different body is rejected. Server errors are not
// cached so the client can retry them.
type Idempotent struct {
	Store  pkgredis.IdempotencyStore
	TTL    time.Duration
	Logger *logger.Logger
	// MaxBody bounds how much of the request is buffered for fingerprinting.
	MaxBody int64
}

type replayRecord struct {
	Pending     bool   `json:"pending,omitempty"`
	Fingerprint string `json:"fingerprint"`
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body,omitempty"`
}

func (i Idempotent) Handler(next http.Handler) http.Handler {
	if i.Store == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		key := strings.TrimSpace(r.Header.Get(idempotencyHeader))
		if key == "" || len(key) > maxIdempotencyKeyLen {
			i.fail(ctx, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required").
				WithDetails(map[string]string{"Idempotency-Key": "required, at most 255 characters"}))
			return
		}

		body, err := i.buffer(r)
		if err != nil {
			i.fail(ctx, w, err)
			return
		}
		fingerprint := fingerprintRequest(r, body)
		storeKey := i.Store.IdempotencyKey(actorScope(ctx)+"|"+r.Method+"|"+r.URL.Path, key)

		claim, _ := json.Marshal(replayRecord{Pending: true, Fingerprint: fingerprint})
		claimed, err := i.Store.SetNX(ctx, storeKey, string(claim), pendingClaimTTL)
		if err != nil {
			i.fail(ctx, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim idempotency key"))
			return
		}
		if !claimed {
			i.replay(ctx, w, storeKey, fingerprint)
			return
		}

		capture := &responseCapture{ResponseWriter: w}
		next.ServeHTTP(capture, r)
		i.settle(context.WithoutCancel(ctx), storeKey, fingerprint, capture)
	})
}

func (i Idempotent) buffer(r *http.Request) ([]byte, error) {
	limit := i.MaxBody
	if limit <= 0 {
		limit = defaultReplayBodySize
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body")
	}
	if int64(len(body)) > limit {
		return nil, pkgerrors.New(pkgerrors.CodeTooLarge, "request body too large")
	}
	r.Body = io.NopCloser(bytes.NewReader(body))
	return body, nil
}

func (i Idempotent) replay(ctx context.Context, w http.ResponseWriter, storeKey, fingerprint string) {
	raw, err := i.Store.Get(ctx, storeKey)
	if errors.Is(err, redis.Nil) {
		// the pending claim lapsed between SetNX and Get
		i.fail(ctx, w, pkgerrors.New(pkgerrors.CodeIdempotency, "request with this key is still in progress"))
		return
	}
	if err != nil {
		i.fail(ctx, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read idempotency record"))
		return
	}
	var rec replayRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		i.fail(ctx, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode idempotency record"))
		return
	}
	switch {
	case rec.Fingerprint != fingerprint:
		i.fail(ctx, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with a different request"))
	case rec.Pending:
		w.Header().Set("Retry-After", "1")
		i.fail(ctx, w, pkgerrors.New(pkgerrors.CodeIdempotency, "request with this key is still in progress"))
	default:
		if rec.ContentType != "" {
			w.Header().Set("Content-Type", rec.ContentType)
		}
		w.Header().Set(replayedHeader, "true")
		w.WriteHeader(rec.Status)
		_, _ = w.Write(rec.Body)
	}
}

// settle stores the finished response, or drops the claim after a server
// error so a retry runs the handler again.
func (i Idempotent) settle(ctx context.Context, storeKey, fingerprint string, capture *responseCapture) {
	status := capture.code()
	if status >= http.StatusInternalServerError {
		if err := i.Store.Del(ctx, storeKey); err != nil && i.Logger != nil {
			i.Logger.Error(ctx, "idempotency.release_failed", err)
		}
		return
	}
	rec, err := json.Marshal(replayRecord{
		Fingerprint: fingerprint,
		Status:      status,
		ContentType: capture.Header().Get("Content-Type"),
		Body:        capture.body.Bytes(),
	})
	if err == nil {
		err = i.Store.Set(ctx, storeKey, string(rec), i.ttl())
	}
	if err != nil && i.Logger != nil {
		i.Logger.Error(ctx, "idempotency.store_failed", err)
	}
}

func (i Idempotent) ttl() time.Duration {
	if i.TTL <= 0 {
		return 24 * time.Hour
	}
	return i.TTL
}

func (i Idempotent) fail(ctx context.Context, w http.ResponseWriter, err error) {
	responses.WriteError(ctx, i.Logger, w, err)
}

// fingerprintRequest binds the key to the media type and body. Multipart
// boundaries change per attempt, so they are removed before hashing.
func fingerprintRequest(r *http.Request, body []byte) string {
	mediaType, params, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if boundary := params["boundary"]; boundary != "" {
		body = bytes.ReplaceAll(body, []byte(boundary), nil)
	}
	h := sha256.New()
	h.Write([]byte(mediaType))
	h.Write([]byte{0})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (r *responseCapture) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseCapture) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func (r *responseCapture) code() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}
