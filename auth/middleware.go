package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
)

const (
	authorizationHeader   = "Authorization"
	wwwAuthenticateHeader = "WWW-Authenticate"
)

// MiddlewareOption configures RequireAuth.
type MiddlewareOption func(*middleware)

// WithRealm sets the realm attribute emitted in Bearer challenges.
func WithRealm(realm string) MiddlewareOption {
	return func(m *middleware) { m.realm = strings.TrimSpace(realm) }
}

// WithResourceMetadataURL sets the resource_metadata attribute emitted in
// Bearer challenges, pointing clients at the RFC 9728 discovery document.
func WithResourceMetadataURL(u string) MiddlewareOption {
	return func(m *middleware) { m.resourceMetadataURL = u }
}

// WithChallengeLogger sets the logger used for authentication outcomes.
func WithChallengeLogger(log *slog.Logger) MiddlewareOption {
	return func(m *middleware) { m.log = log }
}

type middleware struct {
	next                http.Handler
	authn               Authenticator
	realm               string
	resourceMetadataURL string
	log                 *slog.Logger
}

// RequireAuth wraps next with RFC 6750 bearer token enforcement on POST
// requests. Other verbs pass through untouched so the inner handler can apply
// its own method handling (preflight, challenges for GET, 405s). On success
// the authenticated UserInfo is attached to the request context.
func RequireAuth(next http.Handler, authn Authenticator, opts ...MiddlewareOption) http.Handler {
	m := &middleware{
		next:  next,
		authn: authn,
		log:   slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *middleware) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		m.next.ServeHTTP(w, r)
		return
	}

	ctx := r.Context()
	authHeader := r.Header.Get(authorizationHeader)

	if authHeader == "" {
		// RFC 6750 §3.1: when the request lacks any authentication
		// information, omit the error code and send a bare challenge.
		m.log.InfoContext(ctx, "auth.check.missing", slog.String("err", "no authorization header"))
		w.Header().Add(wwwAuthenticateHeader, BuildBearerChallenge(m.realm, m.resourceMetadataURL, nil))
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	const bearerPrefix = "Bearer "
	if !strings.HasPrefix(authHeader, bearerPrefix) || len(authHeader) <= len(bearerPrefix) {
		m.log.InfoContext(ctx, "auth.check.invalid", slog.String("err", "malformed bearer authorization header"))
		w.Header().Add(wwwAuthenticateHeader, BuildBearerChallenge(m.realm, m.resourceMetadataURL, map[string]string{
			"error":             "invalid_request",
			"error_description": "malformed bearer authorization header",
		}))
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	tok := strings.TrimSpace(authHeader[len(bearerPrefix):])
	if tok == "" {
		m.log.InfoContext(ctx, "auth.check.invalid", slog.String("err", "empty bearer token"))
		w.Header().Add(wwwAuthenticateHeader, BuildBearerChallenge(m.realm, m.resourceMetadataURL, map[string]string{
			"error":             "invalid_request",
			"error_description": "empty bearer token",
		}))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	ui, err := m.authn.CheckAuthentication(ctx, tok)
	if err != nil {
		if errors.Is(err, ErrInsufficientScope) {
			m.log.InfoContext(ctx, "auth.check.fail", slog.String("err", err.Error()))
			w.Header().Add(wwwAuthenticateHeader, BuildBearerChallenge(m.realm, m.resourceMetadataURL, map[string]string{
				"error":             "insufficient_scope",
				"error_description": err.Error(),
			}))
			w.WriteHeader(http.StatusForbidden)
			return
		}
		if errors.Is(err, ErrUnauthorized) {
			m.log.InfoContext(ctx, "auth.check.fail", slog.String("err", err.Error()))
			w.Header().Add(wwwAuthenticateHeader, BuildBearerChallenge(m.realm, m.resourceMetadataURL, map[string]string{
				"error":             "invalid_token",
				"error_description": err.Error(),
			}))
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		m.log.ErrorContext(ctx, "auth.check.err", slog.String("err", err.Error()))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	m.next.ServeHTTP(w, r.WithContext(ContextWithUserInfo(ctx, ui)))
}
