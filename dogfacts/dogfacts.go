// Package dogfacts provides a concrete tool backed by the public Dog API
// (https://dogapi.dog). It exists as a working example of a capability
// provider tool that performs outbound network I/O.
package dogfacts

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/martzmakes/mcp-gateway/mcp"
	"github.com/martzmakes/mcp-gateway/toolprovider"
)

// DefaultBaseURL is the production Dog API origin.
const DefaultBaseURL = "https://dogapi.dog"

const (
	defaultLimit = 3
	maxLimit     = 10
)

// Args are the accepted arguments for the getDogFacts tool.
type Args struct {
	Limit int `json:"limit,omitempty" jsonschema:"description=Number of facts to return (1-10; defaults to 3),minimum=1,maximum=10"`
}

// Client talks to the Dog API facts endpoint.
type Client struct {
	baseURL string
	httpc   *http.Client
	log     *slog.Logger
}

type Option func(*Client)

// WithBaseURL overrides the API origin. Useful for tests and proxies.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient injects the HTTP client used for outbound calls.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpc = h }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.log = l }
}

func New(opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		httpc:   http.DefaultClient,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Tool returns the getDogFacts tool definition for registration with a
// tool provider.
func (c *Client) Tool() toolprovider.StaticTool {
	return toolprovider.NewTool("getDogFacts", c.getFacts,
		toolprovider.WithToolDescription("Fetch random facts about dogs"))
}

// factsDocument mirrors the JSON:API shape the Dog API responds with.
type factsDocument struct {
	Data []struct {
		Attributes struct {
			Body string `json:"body"`
		} `json:"attributes"`
	} `json:"data"`
}

func (c *Client) getFacts(ctx context.Context, r *toolprovider.ToolRequest[Args]) (*mcp.CallToolResult, error) {
	limit := clampLimit(r.Args().Limit)

	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	u = u.JoinPath("/api/v2/facts")
	q := u.Query()
	q.Set("limit", strconv.Itoa(limit))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("building dog api request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		c.log.ErrorContext(ctx, "dogfacts.fetch.fail", slog.String("err", err.Error()))
		return nil, fmt.Errorf("calling dog api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.ErrorContext(ctx, "dogfacts.fetch.fail", slog.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("dog api returned status %d", resp.StatusCode)
	}

	var doc factsDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding dog api response: %w", err)
	}

	content := make([]mcp.ContentBlock, 0, len(doc.Data))
	for _, item := range doc.Data {
		content = append(content, mcp.ContentBlock{
			Type: mcp.ContentTypeText,
			Text: item.Attributes.Body,
		})
	}
	c.log.InfoContext(ctx, "dogfacts.fetch.ok", slog.Int("facts", len(content)))
	return &mcp.CallToolResult{Content: content}, nil
}

// clampLimit applies the tool's declared bounds: zero or negative requests
// fall back to the default, oversized requests are capped.
func clampLimit(n int) int {
	if n <= 0 {
		return defaultLimit
	}
	if n > maxLimit {
		return maxLimit
	}
	return n
}
