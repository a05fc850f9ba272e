// Command mcp-gateway runs the tool-invocation gateway with the example
// dog-facts provider behind OAuth2 bearer authentication.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joeshaw/envdecode"

	"github.com/martzmakes/mcp-gateway/auth"
	"github.com/martzmakes/mcp-gateway/dogfacts"
	"github.com/martzmakes/mcp-gateway/gateway"
	"github.com/martzmakes/mcp-gateway/toolprovider"
)

const serverVersion = "0.1.0"

type config struct {
	// ListenAddr is the local bind address. ENV: LISTEN_ADDR
	ListenAddr string `env:"LISTEN_ADDR,default=127.0.0.1:8080"`
	// PublicEndpoint is the externally visible MCP endpoint URL, used as the
	// expected token audience and for discovery metadata. ENV: MCP_PUBLIC_ENDPOINT
	PublicEndpoint string `env:"MCP_PUBLIC_ENDPOINT,default=http://127.0.0.1:8080/mcp"`
	// ServerName is advertised in initialize results and resource metadata.
	ServerName string `env:"MCP_SERVER_NAME,default=dog-facts-gateway"`
	// OIDCIssuer is the OAuth/OIDC issuer to validate bearer tokens against.
	// Required unless INSECURE_NO_AUTH is set. ENV: OIDC_ISSUER
	OIDCIssuer string `env:"OIDC_ISSUER"`
	// RequiredScopes is a comma-separated list of scopes a token must carry.
	RequiredScopes string `env:"REQUIRED_SCOPES"`
	// DogAPIBaseURL overrides the upstream Dog API origin.
	DogAPIBaseURL string `env:"DOG_API_BASE_URL,default=https://dogapi.dog"`
	// InsecureNoAuth disables token enforcement entirely. Local dev only.
	InsecureNoAuth bool `env:"INSECURE_NO_AUTH,default=false"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `env:"LOG_LEVEL,default=info"`
	// ShutdownGrace bounds graceful drain on SIGINT/SIGTERM.
	ShutdownGrace time.Duration `env:"SHUTDOWN_GRACE,default=10s"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var cfg config
	if err := envdecode.Decode(&cfg); err != nil {
		return fmt.Errorf("loading config from environment: %w", err)
	}

	log := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(cfg.LogLevel),
	}))
	slog.SetDefault(log)

	facts := dogfacts.New(
		dogfacts.WithBaseURL(cfg.DogAPIBaseURL),
		dogfacts.WithLogger(log),
	)
	provider := toolprovider.New(
		[]toolprovider.StaticTool{facts.Tool()},
		toolprovider.WithServerInfo(cfg.ServerName, serverVersion),
		toolprovider.WithInstructions("Call getDogFacts to fetch random facts about dogs."),
	)

	gwOpts := []gateway.Option{
		gateway.WithServerName(cfg.ServerName),
		gateway.WithLogger(log),
	}

	var authn auth.Authenticator
	if cfg.InsecureNoAuth {
		log.Warn("auth.disabled", slog.String("reason", "INSECURE_NO_AUTH set"))
	} else {
		if cfg.OIDCIssuer == "" {
			return errors.New("OIDC_ISSUER is required unless INSECURE_NO_AUTH is set")
		}
		var opts []auth.AccessTokenAuthOption
		if scopes := splitScopes(cfg.RequiredScopes); len(scopes) > 0 {
			opts = append(opts, auth.WithRequiredScopes(scopes...))
		}
		sp, err := auth.NewFromDiscovery(ctx, cfg.OIDCIssuer, cfg.PublicEndpoint, opts...)
		if err != nil {
			return fmt.Errorf("configuring token validation: %w", err)
		}
		authn = sp
		gwOpts = append(gwOpts, gateway.WithSecurity(sp.SecurityConfig()))
	}

	h, err := gateway.New(cfg.PublicEndpoint, provider, gwOpts...)
	if err != nil {
		return fmt.Errorf("building gateway handler: %w", err)
	}

	var root http.Handler = h
	if !cfg.InsecureNoAuth {
		root = auth.RequireAuth(h, authn,
			auth.WithRealm("mcp"),
			auth.WithResourceMetadataURL(h.ProtectedResourceMetadataURL()),
			auth.WithChallengeLogger(log),
		)
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           root,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server.start",
			slog.String("addr", cfg.ListenAddr),
			slog.String("endpoint", cfg.PublicEndpoint))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	log.Info("server.shutdown.start")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	log.Info("server.shutdown.ok")
	return nil
}

func splitScopes(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
