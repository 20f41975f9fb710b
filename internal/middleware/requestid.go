package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

type contextKey string

const requestIDKey contextKey = "request_id"

const maxRequestIDLength = 64

// RequestID propagates the caller's X-Request-ID or assigns a fresh one.
// Inbound ids are untrusted: anything overlong or containing non-printable
// characters is replaced rather than echoed into logs and responses.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := sanitizeRequestID(r.Header.Get("X-Request-ID"))
		if rid == "" {
			rid = uuid.NewString()
		}
		ctx := context.WithValue(r.Context(), requestIDKey, rid)
		w.Header().Set("X-Request-ID", rid)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sanitizeRequestID(rid string) string {
	rid = strings.TrimSpace(rid)
	if rid == "" || len(rid) > maxRequestIDLength {
		return ""
	}
	for _, c := range rid {
		if c <= 0x20 || c > 0x7e {
			return ""
		}
	}
	return rid
}

func RequestIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}
