package gateway

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/elnormous/contenttype"
	"github.com/google/uuid"

	"github.com/martzmakes/mcp-gateway/auth"
	"github.com/martzmakes/mcp-gateway/internal/jsonrpc"
	"github.com/martzmakes/mcp-gateway/internal/logctx"
	"github.com/martzmakes/mcp-gateway/internal/wellknown"
)

var _ http.Handler = (*Handler)(nil)

var jsonMediaType = contenttype.NewMediaType("application/json")

const (
	wwwAuthenticateHeader = "WWW-Authenticate"

	allowedMethods = "POST, OPTIONS"
	allowedHeaders = "Content-Type, Accept, Authorization, Mcp-Session-Id, Mcp-Protocol-Version"
)

// Option configures the Handler.
type Option func(*newConfig)

type newConfig struct {
	serverName     string
	logger         *slog.Logger
	securityConfig *auth.SecurityConfig
	realm          string
	redactErrors   bool
	concurrency    int
}

// WithServerName sets a human-readable server name surfaced in the protected
// resource metadata document.
func WithServerName(name string) Option {
	return func(c *newConfig) { c.serverName = name }
}

// WithLogger sets the logger used by the handler. Defaults to slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(c *newConfig) { c.logger = log }
}

// WithSecurity provides the security configuration used to publish well-known
// discovery metadata. Without it the discovery paths respond 404.
func WithSecurity(sc auth.SecurityConfig) Option {
	return func(c *newConfig) { cc := sc.Copy(); c.securityConfig = &cc }
}

// WithRealm sets the realm attribute emitted in WWW-Authenticate challenges
// on the GET discovery path. If empty (default) the attribute is omitted.
func WithRealm(realm string) Option {
	return func(c *newConfig) { c.realm = strings.TrimSpace(realm) }
}

// WithRedactProviderErrors replaces capability provider failure text with a
// generic message in error envelopes. Intended for production deployments
// where provider errors may carry internals.
func WithRedactProviderErrors() Option {
	return func(c *newConfig) { c.redactErrors = true }
}

// WithBatchConcurrency bounds how many batch elements are dispatched at once.
// Zero (the default) means unbounded.
func WithBatchConcurrency(n int) Option {
	return func(c *newConfig) { c.concurrency = n }
}

// Handler is the HTTP transport adapter: one endpoint path, method-gated,
// producing exactly one HTTP response per inbound request.
type Handler struct {
	mux         *http.ServeMux
	log         *slog.Logger
	endpointURL *url.URL
	realm       string
	coord       *coordinator

	advertise             bool
	prmDocument           wellknown.ProtectedResourceMetadata
	prmDocumentURL        *url.URL
	authServerMetadata    wellknown.AuthServerMetadata
	authServerMetadataURL *url.URL
}

// New constructs a Handler serving the protocol endpoint at the path of
// publicEndpoint, the externally visible URL of the gateway (scheme, host,
// path). The provider supplies the protocol operations; it is required.
func New(publicEndpoint string, provider CapabilityProvider, opts ...Option) (*Handler, error) {
	if provider == nil {
		return nil, fmt.Errorf("provider is required")
	}

	endpointURL, err := url.Parse(publicEndpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint URL %q: %w", publicEndpoint, err)
	}
	if endpointURL.Scheme != "https" && endpointURL.Scheme != "http" {
		return nil, fmt.Errorf("endpoint URL must use HTTP or HTTPS scheme, got %q", endpointURL.Scheme)
	}

	cfg := &newConfig{logger: slog.Default()}
	for _, opt := range opts {
		opt(cfg)
	}

	log := slog.New(logctx.Handler{Handler: cfg.logger.Handler()})

	h := &Handler{
		log:         log,
		endpointURL: endpointURL,
		realm:       cfg.realm,
		coord: &coordinator{
			d:           &dispatcher{provider: provider, log: log, redact: cfg.redactErrors},
			concurrency: cfg.concurrency,
		},
	}

	h.prmDocumentURL = &url.URL{
		Scheme: endpointURL.Scheme,
		Host:   endpointURL.Host,
		Path:   fmt.Sprintf("/.well-known/oauth-protected-resource%s", endpointURL.Path),
	}
	h.authServerMetadataURL = &url.URL{
		Scheme: endpointURL.Scheme,
		Host:   endpointURL.Host,
		Path:   "/.well-known/oauth-authorization-server",
	}

	if sc := cfg.securityConfig; sc != nil && sc.Advertise {
		if err := sc.Validate(); err != nil {
			return nil, err
		}
		h.advertise = true

		var scopes []string
		var svcDoc, pol, tos string
		var authzEP, tokenEP, regEP string
		var respTypes, grantTypes, responseModes, codeChal, tokenAuthMethods, tokenAuthAlgs []string
		if sc.OIDC != nil {
			scopes = sc.OIDC.ScopesSupported
			svcDoc = sc.OIDC.ServiceDocumentation
			pol = sc.OIDC.OpPolicyURI
			tos = sc.OIDC.OpTosURI
			authzEP = sc.OIDC.AuthorizationEndpoint
			tokenEP = sc.OIDC.TokenEndpoint
			regEP = sc.OIDC.RegistrationEndpoint
			respTypes = sc.OIDC.ResponseTypesSupported
			grantTypes = sc.OIDC.GrantTypesSupported
			responseModes = sc.OIDC.ResponseModesSupported
			codeChal = sc.OIDC.CodeChallengeMethodsSupported
			tokenAuthMethods = sc.OIDC.TokenEndpointAuthMethodsSupported
			tokenAuthAlgs = sc.OIDC.TokenEndpointAuthSigningAlgValuesSupported
		}
		h.prmDocument = wellknown.ProtectedResourceMetadata{
			Resource:               endpointURL.String(),
			AuthorizationServers:   []string{sc.Issuer},
			JwksURI:                sc.JWKSURL,
			ScopesSupported:        scopes,
			BearerMethodsSupported: []string{"authorization_header"},
			ResourceName:           cfg.serverName,
			ResourceDocumentation:  svcDoc,
			ResourcePolicyURI:      pol,
			ResourceTosURI:         tos,
		}
		h.authServerMetadata = wellknown.AuthServerMetadata{
			Issuer:                                     sc.Issuer,
			AuthorizationEndpoint:                      authzEP,
			TokenEndpoint:                              tokenEP,
			RegistrationEndpoint:                       regEP,
			JwksURI:                                    sc.JWKSURL,
			ScopesSupported:                            scopes,
			ResponseTypesSupported:                     respTypes,
			GrantTypesSupported:                        grantTypes,
			ResponseModesSupported:                     responseModes,
			CodeChallengeMethodsSupported:              codeChal,
			TokenEndpointAuthMethodsSupported:          tokenAuthMethods,
			TokenEndpointAuthSigningAlgValuesSupported: tokenAuthAlgs,
			ServiceDocumentation:                       svcDoc,
			OpPolicyURI:                                pol,
			OpTosURI:                                   tos,
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc(pathOnly(endpointURL), h.handleMCP)
	prmPath := strings.TrimSuffix(pathOnly(h.prmDocumentURL), "/")
	mux.HandleFunc(fmt.Sprintf("GET %s", prmPath), h.handleGetProtectedResourceMetadata)
	mux.HandleFunc(fmt.Sprintf("OPTIONS %s", prmPath), h.handleOptionsMetadata)
	mux.HandleFunc(fmt.Sprintf("GET %s/", prmPath), h.handleGetProtectedResourceMetadata)
	mux.HandleFunc(fmt.Sprintf("OPTIONS %s/", prmPath), h.handleOptionsMetadata)
	asPath := pathOnly(h.authServerMetadataURL)
	mux.HandleFunc(fmt.Sprintf("GET %s", asPath), h.handleGetAuthorizationServerMetadata)
	mux.HandleFunc(fmt.Sprintf("OPTIONS %s", asPath), h.handleOptionsMetadata)
	mux.HandleFunc(fmt.Sprintf("GET %s/", asPath), h.handleGetAuthorizationServerMetadata)
	mux.HandleFunc(fmt.Sprintf("OPTIONS %s/", asPath), h.handleOptionsMetadata)
	h.mux = mux
	return h, nil
}

// ProtectedResourceMetadataURL returns the URL of the RFC 9728 discovery
// document; callers typically pass it to auth.WithResourceMetadataURL.
func (h *Handler) ProtectedResourceMetadataURL() string {
	return h.prmDocumentURL.String()
}

func pathOnly(u *url.URL) string {
	if u == nil || u.Path == "" {
		return "/"
	}
	return u.Path
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r.WithContext(logctx.WithRequestData(r.Context(), &logctx.RequestData{
		RequestID:  uuid.NewString(),
		Method:     r.Method,
		UserAgent:  r.UserAgent(),
		RemoteAddr: r.RemoteAddr,
		Path:       r.URL.Path,
	})))
}

// handleMCP applies the transport's fixed verb priority: preflight, discovery
// challenge, verb gating, then JSON-RPC dispatch for POST.
func (h *Handler) handleMCP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	defer func() {
		if rec := recover(); rec != nil {
			h.log.ErrorContext(ctx, "http.panic", slog.Any("panic", rec))
			h.writeErrorEnvelope(w, http.StatusInternalServerError,
				jsonrpc.NewErrorResponse(nil, jsonrpc.ErrorCodeInternalError, "internal error", nil))
		}
	}()

	switch r.Method {
	case http.MethodOptions:
		h.log.DebugContext(ctx, "http.preflight")
		setCORSHeaders(w)
		w.WriteHeader(http.StatusOK)

	case http.MethodGet:
		// Unauthenticated capability discovery gets an RFC 6750 Bearer
		// challenge; actual token enforcement for POST happens upstream.
		h.log.InfoContext(ctx, "http.get.challenge")
		w.Header().Set(wwwAuthenticateHeader, auth.BuildBearerChallenge(h.realm, h.prmDocumentURL.String(), map[string]string{
			"error":             "invalid_request",
			"error_description": "Authentication required",
		}))
		w.Header().Set("Content-Type", jsonMediaType.String())
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"error":             "invalid_request",
			"error_description": "Authentication required",
		})

	case http.MethodPost:
		h.handlePostMCP(w, r)

	default:
		h.log.InfoContext(ctx, "http.method.rejected")
		w.Header().Set("Allow", allowedMethods)
		h.writeErrorEnvelope(w, http.StatusMethodNotAllowed,
			jsonrpc.NewErrorResponse(nil, jsonrpc.ErrorCodeInvalidRequest, fmt.Sprintf("method not allowed: %s", r.Method), nil))
	}
}

func (h *Handler) handlePostMCP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	h.log.InfoContext(ctx, "http.post.start")

	ctype, err := contenttype.GetMediaType(r)
	if err != nil || !ctype.Matches(jsonMediaType) {
		h.log.WarnContext(ctx, "content_type.unsupported")
		h.writeErrorEnvelope(w, http.StatusUnsupportedMediaType,
			jsonrpc.NewErrorResponse(nil, jsonrpc.ErrorCodeInvalidRequest, "content-type must be application/json", nil))
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.log.WarnContext(ctx, "body.read.fail", slog.String("err", err.Error()))
		h.writeErrorEnvelope(w, http.StatusBadRequest,
			jsonrpc.NewErrorResponse(nil, jsonrpc.ErrorCodeParseError, "failed to read request body", nil))
		return
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		h.log.WarnContext(ctx, "body.empty")
		h.writeErrorEnvelope(w, http.StatusBadRequest,
			jsonrpc.NewErrorResponse(nil, jsonrpc.ErrorCodeParseError, "empty request body", nil))
		return
	}
	if !json.Valid(body) {
		h.log.WarnContext(ctx, "json.decode.fail")
		h.writeErrorEnvelope(w, http.StatusBadRequest,
			jsonrpc.NewErrorResponse(nil, jsonrpc.ErrorCodeParseError, "request body is not valid JSON", nil))
		return
	}

	payload, err := h.coord.process(ctx, body)
	if err != nil {
		h.log.ErrorContext(ctx, "rpc.process.fail", slog.String("err", err.Error()))
		h.writeErrorEnvelope(w, http.StatusInternalServerError,
			jsonrpc.NewErrorResponse(nil, jsonrpc.ErrorCodeInternalError, "internal error", nil))
		return
	}

	setCORSHeaders(w)
	w.Header().Set("Content-Type", jsonMediaType.String())
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(payload); err != nil {
		h.log.ErrorContext(ctx, "http.post.write.fail", slog.String("err", err.Error()))
		return
	}
	h.log.InfoContext(ctx, "http.post.ok", slog.Duration("dur", time.Since(start)))
}

func (h *Handler) writeErrorEnvelope(w http.ResponseWriter, status int, resp *jsonrpc.Response) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", jsonMediaType.String())
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", allowedMethods)
	w.Header().Set("Access-Control-Allow-Headers", allowedHeaders)
}

func (h *Handler) handleGetProtectedResourceMetadata(w http.ResponseWriter, r *http.Request) {
	h.serveMetadataDocument(w, r, h.prmDocument)
}

func (h *Handler) handleGetAuthorizationServerMetadata(w http.ResponseWriter, r *http.Request) {
	h.serveMetadataDocument(w, r, h.authServerMetadata)
}

func (h *Handler) serveMetadataDocument(w http.ResponseWriter, r *http.Request, doc any) {
	ctx := r.Context()
	if !h.advertise {
		h.log.DebugContext(ctx, "wellknown.disabled")
		w.WriteHeader(http.StatusNotFound)
		return
	}
	h.log.InfoContext(ctx, "wellknown.get")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Vary", "Origin")
	w.Header().Set("Content-Type", jsonMediaType.String())
	if err := json.NewEncoder(w).Encode(doc); err != nil {
		h.log.ErrorContext(ctx, "wellknown.encode.fail", slog.String("err", err.Error()))
	}
}

// handleOptionsMetadata responds to CORS preflight requests for the
// discovery metadata endpoints.
func (h *Handler) handleOptionsMetadata(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Authorization")
	w.Header().Set("Access-Control-Max-Age", "600")
	w.WriteHeader(http.StatusNoContent)
}
