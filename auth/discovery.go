package auth

import (
	"context"
	"errors"
	"time"

	"github.com/martzmakes/mcp-gateway/internal/jwtauth"
)

// AccessTokenAuthOption configures optional aspects of the RFC 9068 access
// token authenticator (scopes, algorithms, leeway, etc.). Audience is a
// required formal argument to NewFromDiscovery instead of an option.
type AccessTokenAuthOption func(*jwtauth.Config)

// WithRequiredScopes requires all of the provided scopes to be present in the
// space-delimited "scope" claim.
func WithRequiredScopes(scopes ...string) AccessTokenAuthOption {
	return func(c *jwtauth.Config) {
		c.RequiredScopes = append([]string(nil), scopes...)
		c.ScopeModeAny = false
	}
}

// WithAnyRequiredScope requires at least one of the provided scopes to be present.
func WithAnyRequiredScope(scopes ...string) AccessTokenAuthOption {
	return func(c *jwtauth.Config) {
		c.RequiredScopes = append([]string(nil), scopes...)
		c.ScopeModeAny = true
	}
}

// WithAllowedAlgs restricts allowed JWS algorithms. "none" is never allowed.
// Defaults to ["RS256"].
func WithAllowedAlgs(algs ...string) AccessTokenAuthOption {
	return func(c *jwtauth.Config) {
		c.AllowedAlgs = append([]string(nil), algs...)
	}
}

// WithLeeway sets clock skew tolerance for time-based claims.
func WithLeeway(d time.Duration) AccessTokenAuthOption {
	return func(c *jwtauth.Config) { c.Leeway = d }
}

// WithAdditionalAudiences appends accepted audiences beyond the primary one.
// Intended for local / testing scenarios where the served endpoint base URL
// differs from the registered production audience.
func WithAdditionalAudiences(auds ...string) AccessTokenAuthOption {
	return func(c *jwtauth.Config) {
		c.ExpectedAudiences = append(c.ExpectedAudiences, auds...)
	}
}

// WithAdvertisedScopes sets a transform applied to the scopes learned from
// discovery before they are published in resource metadata. It does not
// affect token validation; use WithRequiredScopes for enforcement.
func WithAdvertisedScopes(transform func(discovered []string) []string) AccessTokenAuthOption {
	return func(c *jwtauth.Config) { c.AdvertisedScopes = transform }
}

// StaticScopes returns a transform that ignores discovered scopes and
// advertises exactly the provided set.
func StaticScopes(scopes ...string) func([]string) []string {
	fixed := append([]string{}, scopes...)
	return func([]string) []string {
		return append([]string{}, fixed...)
	}
}

// FilterScopes returns a transform that keeps only the discovered scopes for
// which the predicate returns true.
func FilterScopes(keep func(string) bool) func([]string) []string {
	return func(discovered []string) []string {
		out := []string{}
		for _, s := range discovered {
			if keep(s) {
				out = append(out, s)
			}
		}
		return out
	}
}

// discoveryMetadata is the advertisement-only metadata surface exposed by
// discovery-based authenticators.
type discoveryMetadata interface {
	JWKSURI() string
	AuthorizationEndpoint() string
	TokenEndpoint() string
	RegistrationEndpoint() string
	ResponseTypes() []string
	Scopes() []string
	GrantTypes() []string
	ResponseModes() []string
	CodeChallengeMethods() []string
	TokenEndpointAuthMethods() []string
	TokenEndpointAuthAlgs() []string
	ServiceDocumentation() string
	PolicyURI() string
	TosURI() string
}

// NewFromDiscovery returns an Authenticator that verifies RFC 9068 JWT access
// tokens discovered via OpenID Connect discovery (jwks_uri, issuer, etc.).
//
// Required:
//   - issuer:   authorization server issuer URL
//   - audience: expected audience ("aud") claim, typically the public gateway endpoint URL
//
// Remaining validation knobs (scopes, algs, leeway) are configured via functional options.
func NewFromDiscovery(ctx context.Context, issuer string, audience string, opts ...AccessTokenAuthOption) (SecurityProvider, error) {
	if audience == "" {
		return nil, errors.New("audience is required")
	}
	cfg := jwtauth.DefaultConfig()
	cfg.Issuer = issuer
	cfg.ExpectedAudiences = []string{audience}
	for _, opt := range opts {
		opt(cfg)
	}
	internal, err := jwtauth.NewFromDiscovery(ctx, cfg)
	if err != nil {
		return nil, err
	}

	sec := buildSecurityConfig(cfg, internal)
	return &adapter{a: internal, sec: sec}, nil
}

// buildSecurityConfig assembles the advertised security configuration from
// validation policy plus discovery metadata.
func buildSecurityConfig(cfg *jwtauth.Config, dm discoveryMetadata) SecurityConfig {
	sec := SecurityConfig{
		Issuer:      cfg.Issuer,
		Audiences:   append([]string(nil), cfg.ExpectedAudiences...),
		AllowedAlgs: append([]string(nil), cfg.AllowedAlgs...),
		JWKSURL:     dm.JWKSURI(),
		Leeway:      cfg.Leeway,
		Advertise:   true,
	}

	scopes := dm.Scopes()
	if cfg.AdvertisedScopes != nil {
		scopes = cfg.AdvertisedScopes(scopes)
	}

	sec.OIDC = &OIDCExtra{
		AuthorizationEndpoint:                      dm.AuthorizationEndpoint(),
		TokenEndpoint:                              dm.TokenEndpoint(),
		RegistrationEndpoint:                       dm.RegistrationEndpoint(),
		ScopesSupported:                            scopes,
		ResponseTypesSupported:                     dm.ResponseTypes(),
		GrantTypesSupported:                        dm.GrantTypes(),
		ResponseModesSupported:                     dm.ResponseModes(),
		CodeChallengeMethodsSupported:              dm.CodeChallengeMethods(),
		TokenEndpointAuthMethodsSupported:          dm.TokenEndpointAuthMethods(),
		TokenEndpointAuthSigningAlgValuesSupported: dm.TokenEndpointAuthAlgs(),
		ServiceDocumentation:                       dm.ServiceDocumentation(),
		OpPolicyURI:                                dm.PolicyURI(),
		OpTosURI:                                   dm.TosURI(),
	}
	sec.Normalize()
	return sec
}

// adapter wraps the internal authenticator to satisfy the public interface.
type adapter struct {
	a   jwtauth.Authenticator
	sec SecurityConfig
}

func (ad *adapter) CheckAuthentication(ctx context.Context, tok string) (UserInfo, error) {
	ui, err := ad.a.CheckAuthentication(ctx, tok)
	if err != nil {
		// Map internal sentinel errors to public errors used by the transport.
		if errors.Is(err, jwtauth.ErrInsufficientScope) {
			return nil, errors.Join(ErrInsufficientScope, err)
		}
		return nil, errors.Join(ErrUnauthorized, err)
	}
	return userInfoAdapter{ui: ui}, nil
}

func (ad *adapter) SecurityConfig() SecurityConfig { return ad.sec.Copy() }

type userInfoAdapter struct{ ui jwtauth.UserInfo }

func (u userInfoAdapter) UserID() string       { return u.ui.UserID() }
func (u userInfoAdapter) Claims(ref any) error { return u.ui.Claims(ref) }
