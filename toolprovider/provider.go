// Package toolprovider implements a static, in-process capability provider:
// a fixed set of tools registered at construction time and dispatched by
// name. It satisfies the gateway's CapabilityProvider contract.
package toolprovider

import (
	"context"
	"fmt"
	"sync"

	"github.com/martzmakes/mcp-gateway/mcp"
)

// ToolHandler is the function signature used to handle a tool invocation.
type ToolHandler func(ctx context.Context, params *mcp.CallToolParams) (*mcp.CallToolResult, error)

// StaticTool pairs a tool descriptor with its handler.
type StaticTool struct {
	Descriptor mcp.Tool
	Handler    ToolHandler
}

// Option configures a Provider.
type Option func(*Provider)

// WithServerInfo sets the identity reported by the initialize operation.
func WithServerInfo(name, version string) Option {
	return func(p *Provider) {
		p.serverInfo.Name = name
		p.serverInfo.Version = version
	}
}

// WithInstructions sets optional usage instructions surfaced to clients
// during initialization.
func WithInstructions(instructions string) Option {
	return func(p *Provider) { p.instructions = instructions }
}

// WithProtocolVersion overrides the advertised protocol version. Defaults to
// mcp.LatestProtocolVersion.
func WithProtocolVersion(v string) Option {
	return func(p *Provider) { p.protocolVersion = v }
}

// Provider owns a threadsafe set of tool descriptors and handlers. Describe
// and ListTools are deterministic for a given tool set; CallTool dispatches
// by name and fails for names outside the declared set.
type Provider struct {
	mu       sync.RWMutex
	tools    []mcp.Tool
	handlers map[string]ToolHandler

	serverInfo      mcp.ImplementationInfo
	instructions    string
	protocolVersion string
}

// New constructs a Provider with the given tool definitions. Duplicate names
// resolve last-write-wins.
func New(defs []StaticTool, opts ...Option) *Provider {
	p := &Provider{
		serverInfo:      mcp.ImplementationInfo{Name: "mcp-gateway", Version: "0.0.0"},
		protocolVersion: mcp.LatestProtocolVersion,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.Replace(defs...)
	return p
}

// Replace atomically replaces the entire tool set.
func (p *Provider) Replace(defs ...StaticTool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tools = make([]mcp.Tool, 0, len(defs))
	p.handlers = make(map[string]ToolHandler, len(defs))
	for _, d := range defs {
		p.tools = append(p.tools, d.Descriptor)
		if d.Handler != nil {
			p.handlers[d.Descriptor.Name] = d.Handler
		}
	}
}

// Add registers a new tool if it doesn't duplicate an existing name.
// Returns true if added.
func (p *Provider) Add(def StaticTool) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	name := def.Descriptor.Name
	if _, exists := p.handlers[name]; exists {
		return false
	}
	for _, t := range p.tools {
		if t.Name == name {
			return false
		}
	}
	p.tools = append(p.tools, def.Descriptor)
	if def.Handler != nil {
		p.handlers[name] = def.Handler
	}
	return true
}

// Describe implements the initialize operation: static identity and
// capability flags, identical for every call within a process lifetime.
func (p *Provider) Describe(ctx context.Context) (*mcp.InitializeResult, error) {
	return &mcp.InitializeResult{
		ProtocolVersion: p.protocolVersion,
		Capabilities: mcp.ServerCapabilities{
			Tools: &struct {
				ListChanged bool `json:"listChanged"`
			}{},
		},
		ServerInfo:   p.serverInfo,
		Instructions: p.instructions,
	}, nil
}

// ListTools returns a copy of the current tool descriptors in registration order.
func (p *Provider) ListTools(ctx context.Context) ([]mcp.Tool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]mcp.Tool, len(p.tools))
	copy(out, p.tools)
	return out, nil
}

// CallTool dispatches the invocation to the named tool if present.
func (p *Provider) CallTool(ctx context.Context, params *mcp.CallToolParams) (*mcp.CallToolResult, error) {
	if params == nil || params.Name == "" {
		return nil, fmt.Errorf("invalid tool request: missing name")
	}
	p.mu.RLock()
	h := p.handlers[params.Name]
	p.mu.RUnlock()
	if h == nil {
		return nil, fmt.Errorf("unknown tool: %s", params.Name)
	}
	return h(ctx, params)
}
