package dogfacts

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/martzmakes/mcp-gateway/mcp"
	"github.com/martzmakes/mcp-gateway/toolprovider"
)

func newFakeDogAPI(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v2/facts" {
			http.NotFound(w, r)
			return
		}
		limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
		if err != nil {
			t.Errorf("missing or bad limit query: %v", err)
			limit = 0
		}
		type attrs struct {
			Body string `json:"body"`
		}
		type item struct {
			Attributes attrs `json:"attributes"`
		}
		doc := struct {
			Data []item `json:"data"`
		}{Data: make([]item, 0, limit)}
		for i := 0; i < limit; i++ {
			doc.Data = append(doc.Data, item{Attributes: attrs{Body: fmt.Sprintf("fact %d", i)}})
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(doc)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func callFacts(t *testing.T, c *Client, args string) (*mcp.CallToolResult, error) {
	t.Helper()
	p := toolprovider.New([]toolprovider.StaticTool{c.Tool()})
	return p.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "getDogFacts",
		Arguments: json.RawMessage(args),
	})
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestGetDogFacts(t *testing.T) {
	srv := newFakeDogAPI(t)
	c := New(WithBaseURL(srv.URL), WithHTTPClient(srv.Client()), WithLogger(quietLogger()))

	res, err := callFacts(t, c, `{"limit":3}`)
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected error result: %+v", res)
	}
	if len(res.Content) != 3 {
		t.Fatalf("content blocks = %d, want 3", len(res.Content))
	}
	for i, block := range res.Content {
		if block.Type != mcp.ContentTypeText {
			t.Fatalf("content[%d].Type = %q", i, block.Type)
		}
		if want := fmt.Sprintf("fact %d", i); block.Text != want {
			t.Fatalf("content[%d].Text = %q, want %q", i, block.Text, want)
		}
	}
}

func TestGetDogFactsDefaultsLimit(t *testing.T) {
	srv := newFakeDogAPI(t)
	c := New(WithBaseURL(srv.URL), WithHTTPClient(srv.Client()), WithLogger(quietLogger()))

	res, err := callFacts(t, c, `{}`)
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if len(res.Content) != defaultLimit {
		t.Fatalf("content blocks = %d, want default %d", len(res.Content), defaultLimit)
	}
}

func TestGetDogFactsClampsOversizedLimit(t *testing.T) {
	srv := newFakeDogAPI(t)
	c := New(WithBaseURL(srv.URL), WithHTTPClient(srv.Client()), WithLogger(quietLogger()))

	res, err := callFacts(t, c, `{"limit":100}`)
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if len(res.Content) != maxLimit {
		t.Fatalf("content blocks = %d, want clamp to %d", len(res.Content), maxLimit)
	}
}

func TestGetDogFactsUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)
	c := New(WithBaseURL(srv.URL), WithHTTPClient(srv.Client()), WithLogger(quietLogger()))

	_, err := callFacts(t, c, `{"limit":2}`)
	if err == nil {
		t.Fatalf("expected error for upstream failure")
	}
	if !strings.Contains(err.Error(), "502") {
		t.Fatalf("error = %q, want upstream status mentioned", err)
	}
}

func TestToolSchema(t *testing.T) {
	c := New(WithLogger(quietLogger()))
	tool := c.Tool()
	if tool.Descriptor.Name != "getDogFacts" {
		t.Fatalf("name = %q", tool.Descriptor.Name)
	}
	limit, ok := tool.Descriptor.InputSchema.Properties["limit"]
	if !ok {
		t.Fatalf("schema missing limit property: %+v", tool.Descriptor.InputSchema)
	}
	if limit.Type != "integer" || limit.Minimum != 1 || limit.Maximum != 10 {
		t.Fatalf("limit property = %+v", limit)
	}
	if len(tool.Descriptor.InputSchema.Required) != 0 {
		t.Fatalf("limit should be optional, required = %v", tool.Descriptor.InputSchema.Required)
	}
}
