// Package middleware provides HTTP middleware for the engagement API
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/R3E-Network/vybe_engagement/internal/app/auth"
	"github.com/R3E-Network/vybe_engagement/internal/errors"
	"github.com/R3E-Network/vybe_engagement/internal/httputil"
	"github.com/R3E-Network/vybe_engagement/pkg/logger"
)

// Authenticator turns a bearer token into an actor.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (auth.Actor, error)
}

// AuthMiddleware resolves the calling actor from the Authorization header
type AuthMiddleware struct {
	authenticator Authenticator
	logger        *logger.Logger
	skipPaths     map[string]bool
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(authenticator Authenticator, log *logger.Logger, skipPaths []string) *AuthMiddleware {
	if log == nil {
		log = logger.NewDefault("auth")
	}
	skip := make(map[string]bool)
	for _, path := range skipPaths {
		skip[path] = true
	}

	return &AuthMiddleware{
		authenticator: authenticator,
		logger:        log,
		skipPaths:     skip,
	}
}

// Handler returns the middleware handler
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.skipPaths[r.URL.Path] || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		token, err := bearerToken(r)
		if err != nil {
			m.respondError(w, r, err)
			return
		}

		actor, err := m.authenticator.Authenticate(r.Context(), token)
		if err != nil {
			m.respondError(w, r, err)
			return
		}

		ctx := auth.WithActor(r.Context(), actor)
		m.logger.WithField("trace_id", TraceID(ctx)).
			WithField("actor_id", actor.ID).
			Debug("authentication successful")

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", errors.Unauthorized("missing Authorization header")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", errors.Unauthorized("invalid Authorization header format")
	}
	return strings.TrimSpace(parts[1]), nil
}

// respondError sends an error response
func (m *AuthMiddleware) respondError(w http.ResponseWriter, r *http.Request, err error) {
	serviceErr := errors.GetServiceError(err)
	if serviceErr == nil {
		serviceErr = errors.Internal("authentication failed", err)
	}

	httputil.WriteError(w, serviceErr)

	entry := m.logger.WithError(err).
		WithField("trace_id", TraceID(r.Context())).
		WithField("path", r.URL.Path).
		WithField("method", r.Method).
		WithField("status", serviceErr.HTTPStatus)
	if serviceErr.HTTPStatus >= http.StatusInternalServerError {
		entry.Error("authentication failed")
		return
	}
	entry.Warn("authentication failed")
}

// RequireRole rejects requests whose actor holds none of roles
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, err := auth.RequireActor(r.Context())
			if err != nil {
				httputil.WriteError(w, err)
				return
			}
			if !actor.HasRole(roles...) {
				httputil.WriteError(w, errors.Forbidden("operator role required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
