package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	jose "github.com/go-jose/go-jose/v4"
	"github.com/golang-jwt/jwt/v5"
)

func TestSecurityConfigNormalize(t *testing.T) {
	sc := SecurityConfig{Issuer: "https://issuer.example", Audiences: []string{"aud"}}
	sc.Normalize()
	if want, got := []string{"RS256"}, sc.AllowedAlgs; !reflect.DeepEqual(want, got) {
		t.Fatalf("allowed algs: want %v got %v", want, got)
	}
	if sc.Leeway != 60*time.Second {
		t.Fatalf("leeway = %v, want 60s", sc.Leeway)
	}
	if !sc.Advertise {
		t.Fatalf("advertise should default to true")
	}
}

func TestSecurityConfigValidate(t *testing.T) {
	cases := []struct {
		name    string
		cfg     SecurityConfig
		wantErr bool
	}{
		{name: "valid", cfg: SecurityConfig{Issuer: "i", Audiences: []string{"a"}}},
		{name: "missing issuer", cfg: SecurityConfig{Audiences: []string{"a"}}, wantErr: true},
		{name: "no audiences", cfg: SecurityConfig{Issuer: "i"}, wantErr: true},
		{name: "empty audience entry", cfg: SecurityConfig{Issuer: "i", Audiences: []string{""}}, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.wantErr && err == nil {
				t.Fatalf("expected error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestSecurityConfigCopyIsDeep(t *testing.T) {
	orig := SecurityConfig{
		Issuer:    "https://issuer.example",
		Audiences: []string{"a"},
		OIDC:      &OIDCExtra{ScopesSupported: []string{"mcp:tools"}},
	}
	dup := orig.Copy()
	dup.Audiences[0] = "mutated"
	dup.OIDC.ScopesSupported[0] = "mutated"
	if orig.Audiences[0] != "a" {
		t.Fatalf("audiences aliased: %v", orig.Audiences)
	}
	if orig.OIDC.ScopesSupported[0] != "mcp:tools" {
		t.Fatalf("oidc scopes aliased: %v", orig.OIDC.ScopesSupported)
	}
}

func TestNewStaticJWTAuthenticator(t *testing.T) {
	pk, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("gen key: %v", err)
	}
	const kid = "sec-test-key"
	set := struct {
		Keys []jose.JSONWebKey `json:"keys"`
	}{Keys: []jose.JSONWebKey{{Key: &pk.PublicKey, KeyID: kid, Algorithm: "RS256", Use: "sig"}}}
	keysJSON, err := json.Marshal(set)
	if err != nil {
		t.Fatalf("marshal jwks: %v", err)
	}
	jwksSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(keysJSON)
	}))
	t.Cleanup(jwksSrv.Close)

	issuer := "https://issuer.example"
	aud := "https://mcp.example.com/mcp"
	sc := SecurityConfig{
		Issuer:    issuer,
		Audiences: []string{aud},
		JWKSURL:   jwksSrv.URL,
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sp, err := sc.NewStaticJWTAuthenticator(ctx)
	if err != nil {
		t.Fatalf("new static authenticator: %v", err)
	}

	if got := sp.SecurityConfig(); got.Issuer != issuer || got.JWKSURL != jwksSrv.URL {
		t.Fatalf("descriptor = %+v", got)
	}

	now := time.Now()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"iss": issuer,
		"sub": "user-789",
		"aud": aud,
		"exp": now.Add(time.Hour).Unix(),
		"iat": now.Unix(),
	})
	tok.Header["kid"] = kid
	tok.Header["typ"] = "at+jwt"
	signed, err := tok.SignedString(pk)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	ui, err := sp.CheckAuthentication(ctx, signed)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if got := ui.UserID(); got != "user-789" {
		t.Fatalf("user id = %q, want user-789", got)
	}

	if _, err := sp.CheckAuthentication(ctx, "not-a-token"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("garbage token error = %v, want ErrUnauthorized", err)
	}

	// Missing JWKS URL is rejected up front.
	bad := SecurityConfig{Issuer: issuer, Audiences: []string{aud}}
	if _, err := bad.NewStaticJWTAuthenticator(ctx); err == nil {
		t.Fatalf("expected error without JWKSURL")
	}
}
