// Package auth provides pluggable bearer token authentication for the
// gateway's HTTP endpoint. It focuses on JWT access token verification for
// deployments that delegate authorization to an external OAuth 2.0 / OIDC
// authorization server.
//
// The public surface intentionally stays small: an Authenticator validates an
// incoming bearer token string and returns a UserInfo (or an error). The
// RequireAuth middleware extracts the token from the HTTP request and maps
// sentinel errors into RFC 6750 Bearer challenges.
//
// # Access Token Authentication
//
// NewFromDiscovery constructs an Authenticator that validates RFC 9068
// access tokens using OpenID Connect discovery to obtain the issuer's JWKS
// and metadata. Callers configure validation requirements via functional
// options (required scopes, leeway, allowed algorithms).
//
// Example:
//
//	ctx := context.Background()
//	authn, err := auth.NewFromDiscovery(ctx, "https://issuer.example", "https://mcp.example/mcp",
//	    auth.WithRequiredScopes("mcp:read", "mcp:write"),
//	)
//	if err != nil { log.Fatal(err) }
//
//	handler := auth.RequireAuth(gatewayHandler, authn,
//	    auth.WithRealm("mcp"),
//	    auth.WithResourceMetadataURL("https://mcp.example/.well-known/oauth-protected-resource/mcp"),
//	)
//
// # Errors
//
// ErrUnauthorized signals the token is invalid (signature, expiry, audience,
// etc.). ErrInsufficientScope signals successful authentication but missing
// required scope(s).
package auth
