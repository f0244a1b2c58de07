// Package middleware provides HTTP middleware for the registry API.
package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/R3E-Network/constants_registry/internal/app/metrics"
	"github.com/R3E-Network/constants_registry/internal/httputil"
	"github.com/R3E-Network/constants_registry/pkg/logger"
)

const bearerPrefix = "Bearer "

// Messages returned by the gate.
const (
	MsgMissingHeader = "Authentication header not found in request"
	MsgInvalidScheme = "Invalid Authentication"
	MsgForbidden     = "Failed to authenticate"
)

// AuthGate authorizes mutating requests against a single shared secret. It
// issues nothing and keeps no state beyond the secret.
type AuthGate struct {
	secret []byte
	logger *logger.Logger
}

// NewAuthGate creates the gate. An empty secret rejects every request.
func NewAuthGate(secret string, log *logger.Logger) *AuthGate {
	if log == nil {
		log = logger.NewDefault("auth")
	}
	return &AuthGate{
		secret: []byte(secret),
		logger: log,
	}
}

// Handler returns the middleware handler.
func (g *AuthGate) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get(httputil.AuthHeader)
		if authHeader == "" {
			g.reject(w, r, http.StatusUnauthorized, "missing_header", MsgMissingHeader)
			return
		}

		if !strings.HasPrefix(authHeader, bearerPrefix) {
			g.reject(w, r, http.StatusUnauthorized, "invalid_scheme", MsgInvalidScheme)
			return
		}

		token := []byte(authHeader[len(bearerPrefix):])
		if len(g.secret) == 0 || subtle.ConstantTimeCompare(token, g.secret) != 1 {
			g.reject(w, r, http.StatusForbidden, "mismatch", MsgForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (g *AuthGate) reject(w http.ResponseWriter, r *http.Request, status int, reason, message string) {
	metrics.RecordAuthRejection(reason)
	httputil.WriteError(w, status, message)

	g.logger.WithFields(map[string]interface{}{
		"path":     r.URL.Path,
		"method":   r.Method,
		"status":   status,
		"reason":   reason,
		"trace_id": TraceID(r.Context()),
	}).Warn("write request rejected")
}
