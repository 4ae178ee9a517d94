package middleware

import (
	"net/http"
	"regexp"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"

	"github.com/clubpataamiga/pataamiga-backend/pkg/logger"
)

const requestIDHeader = "X-Request-ID"

// Upstream proxies and the dashboard may send their own id. Anything that
// would be awkward in a log line is replaced.
var inboundRequestID = regexp.MustCompile(`^[A-Za-z0-9._:-]{8,128}$`)

// RequestID echoes or mints the request id and tags the log context and the
// request's Sentry scope with it.
func RequestID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(requestIDHeader)
			if !inboundRequestID.MatchString(id) {
				id = uuid.NewString()
			}
			w.Header().Set(requestIDHeader, id)

			ctx := r.Context()
			if hub := sentry.GetHubFromContext(ctx); hub != nil {
				hub.Scope().SetTag("request_id", id)
			}
			if logg != nil {
				ctx = logg.WithRequestID(ctx, id)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
