package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type fakeAuthenticator struct {
	wantToken string
	err       error
	userID    string
}

func (f *fakeAuthenticator) CheckAuthentication(ctx context.Context, tok string) (UserInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	if tok != f.wantToken {
		return nil, fmt.Errorf("%w: bad token", ErrUnauthorized)
	}
	return fakeUser{id: f.userID}, nil
}

type fakeUser struct{ id string }

func (u fakeUser) UserID() string       { return u.id }
func (u fakeUser) Claims(ref any) error { return nil }

func TestRequireAuth(t *testing.T) {
	const prm = "https://mcp.example/.well-known/oauth-protected-resource/mcp"

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ui, ok := UserInfoFromContext(r.Context()); ok {
			w.Header().Set("X-User", ui.UserID())
		}
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name          string
		method        string
		authorization string
		authn         Authenticator
		wantStatus    int
		wantChallenge string
		wantUser      string
	}{
		{
			name:       "non-POST passes through",
			method:     http.MethodGet,
			authn:      &fakeAuthenticator{},
			wantStatus: http.StatusOK,
		},
		{
			name:          "missing header gets bare challenge",
			method:        http.MethodPost,
			authn:         &fakeAuthenticator{},
			wantStatus:    http.StatusUnauthorized,
			wantChallenge: `Bearer realm="mcp", resource_metadata="` + prm + `"`,
		},
		{
			name:          "wrong scheme is invalid_request",
			method:        http.MethodPost,
			authorization: "Basic dXNlcjpwYXNz",
			authn:         &fakeAuthenticator{},
			wantStatus:    http.StatusBadRequest,
			wantChallenge: `error="invalid_request"`,
		},
		{
			name:          "empty token is invalid_request",
			method:        http.MethodPost,
			authorization: "Bearer   ",
			authn:         &fakeAuthenticator{},
			wantStatus:    http.StatusBadRequest,
			wantChallenge: `error="invalid_request"`,
		},
		{
			name:          "bad token is invalid_token",
			method:        http.MethodPost,
			authorization: "Bearer nope",
			authn:         &fakeAuthenticator{wantToken: "good"},
			wantStatus:    http.StatusUnauthorized,
			wantChallenge: `error="invalid_token"`,
		},
		{
			name:          "insufficient scope is 403",
			method:        http.MethodPost,
			authorization: "Bearer good",
			authn:         &fakeAuthenticator{err: fmt.Errorf("%w: need mcp:write", ErrInsufficientScope)},
			wantStatus:    http.StatusForbidden,
			wantChallenge: `error="insufficient_scope"`,
		},
		{
			name:          "valid token reaches handler with identity",
			method:        http.MethodPost,
			authorization: "Bearer good",
			authn:         &fakeAuthenticator{wantToken: "good", userID: "user-1"},
			wantStatus:    http.StatusOK,
			wantUser:      "user-1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := RequireAuth(next, tt.authn,
				WithRealm("mcp"),
				WithResourceMetadataURL(prm),
			)

			req := httptest.NewRequest(tt.method, "/mcp", nil)
			if tt.authorization != "" {
				req.Header.Set("Authorization", tt.authorization)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantChallenge != "" {
				got := rec.Header().Get("WWW-Authenticate")
				if !strings.Contains(got, tt.wantChallenge) {
					t.Fatalf("WWW-Authenticate = %q, want substring %q", got, tt.wantChallenge)
				}
			}
			if tt.wantUser != "" {
				if got := rec.Header().Get("X-User"); got != tt.wantUser {
					t.Fatalf("user = %q, want %q", got, tt.wantUser)
				}
			}
		})
	}
}

func TestBuildBearerChallenge(t *testing.T) {
	got := BuildBearerChallenge("mcp", "https://x/.well-known/oauth-protected-resource", map[string]string{
		"error":             "invalid_token",
		"error_description": `bad "sig"`,
	})
	want := `Bearer realm="mcp", resource_metadata="https://x/.well-known/oauth-protected-resource", error="invalid_token", error_description="bad \"sig\""`
	if got != want {
		t.Fatalf("challenge = %q, want %q", got, want)
	}

	if got := BuildBearerChallenge("", "", nil); got != "Bearer" {
		t.Fatalf("bare challenge = %q, want Bearer", got)
	}
}
