package mcp

import "encoding/json"

// Method is an MCP method identifier used in JSON-RPC messages.
type Method string

// Method names dispatched by the gateway.
const (
	InitializeMethod Method = "initialize"
	ToolsListMethod  Method = "tools/list"
	ToolsCallMethod  Method = "tools/call"
	PingMethod       Method = "ping"
)

// InitializeResult returns declared capabilities and server identity. It is
// static metadata: providers must produce the same value for every request
// within a process lifetime.
type InitializeResult struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    ServerCapabilities `json:"capabilities"`
	ServerInfo      ImplementationInfo `json:"serverInfo"`
	Instructions    string             `json:"instructions,omitzero"`
}

// ListToolsResult returns the ordered set of tool descriptors.
type ListToolsResult struct {
	Tools []Tool `json:"tools"`
}

// CallToolParams is the server-received representation of a tool invocation.
// Arguments are kept raw: the gateway passes the requested values through to
// the provider unmodified, and the provider applies its own schema rules.
type CallToolParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// CallToolResult represents a tool invocation result.
type CallToolResult struct {
	Content []ContentBlock `json:"content"`
	IsError bool           `json:"isError,omitzero"`
}

// EmptyResult is returned for operations that do not return data (ping).
type EmptyResult struct{}
