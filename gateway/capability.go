package gateway

import (
	"context"

	"github.com/martzmakes/mcp-gateway/mcp"
)

// CapabilityProvider supplies the three protocol operations the dispatcher
// routes to. Implementations are selected once at process start and injected;
// they are never resolved per request.
//
// Describe and ListTools must be side-effect-free and deterministic within a
// process lifetime. CallTool may perform network I/O; cancellation is
// inherited from the request context, the gateway imposes no timeout of its
// own. CallTool must return an error (not an empty success) when the named
// tool is not among the declared set.
type CapabilityProvider interface {
	Describe(ctx context.Context) (*mcp.InitializeResult, error)
	ListTools(ctx context.Context) ([]mcp.Tool, error)
	CallTool(ctx context.Context, params *mcp.CallToolParams) (*mcp.CallToolResult, error)
}
