package toolprovider

import (
	"context"
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"github.com/martzmakes/mcp-gateway/mcp"
)

type echoArgs struct {
	Message string `json:"message" jsonschema:"description=Text to echo back"`
	Count   int    `json:"count,omitempty" jsonschema:"minimum=1,maximum=5"`
}

func newEchoTool() StaticTool {
	return NewTool("echo", func(ctx context.Context, r *ToolRequest[echoArgs]) (*mcp.CallToolResult, error) {
		n := r.Args().Count
		if n < 1 {
			n = 1
		}
		return TextResult(strings.Repeat(r.Args().Message, n)), nil
	}, WithToolDescription("Echo a message"))
}

func TestProviderDescribe(t *testing.T) {
	p := New([]StaticTool{newEchoTool()},
		WithServerInfo("echo-server", "1.2.3"),
		WithInstructions("call echo"),
	)

	first, err := p.Describe(context.Background())
	if err != nil {
		t.Fatalf("describe: %v", err)
	}
	if first.ServerInfo.Name != "echo-server" || first.ServerInfo.Version != "1.2.3" {
		t.Fatalf("serverInfo = %+v", first.ServerInfo)
	}
	if first.ProtocolVersion != mcp.LatestProtocolVersion {
		t.Fatalf("protocolVersion = %q", first.ProtocolVersion)
	}
	if first.Capabilities.Tools == nil {
		t.Fatalf("expected tools capability to be declared")
	}
	if first.Instructions != "call echo" {
		t.Fatalf("instructions = %q", first.Instructions)
	}

	second, err := p.Describe(context.Background())
	if err != nil {
		t.Fatalf("describe: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("describe not deterministic: %+v vs %+v", first, second)
	}
}

func TestProviderListTools(t *testing.T) {
	p := New([]StaticTool{newEchoTool()})

	tools, err := p.ListTools(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tools) != 1 {
		t.Fatalf("tool count = %d, want 1", len(tools))
	}
	tool := tools[0]
	if tool.Name != "echo" || tool.Description != "Echo a message" {
		t.Fatalf("descriptor = %+v", tool)
	}
	if tool.InputSchema.Type != "object" {
		t.Fatalf("schema type = %q", tool.InputSchema.Type)
	}
	msg, ok := tool.InputSchema.Properties["message"]
	if !ok {
		t.Fatalf("schema missing message property: %+v", tool.InputSchema.Properties)
	}
	if msg.Type != "string" || msg.Description != "Text to echo back" {
		t.Fatalf("message property = %+v", msg)
	}
	count, ok := tool.InputSchema.Properties["count"]
	if !ok {
		t.Fatalf("schema missing count property")
	}
	if count.Minimum != 1 || count.Maximum != 5 {
		t.Fatalf("count bounds = [%v,%v], want [1,5]", count.Minimum, count.Maximum)
	}
	if got, want := tool.InputSchema.Required, []string{"message"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("required = %v, want %v", got, want)
	}
}

func TestProviderCallTool(t *testing.T) {
	p := New([]StaticTool{newEchoTool()})

	res, err := p.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "echo",
		Arguments: json.RawMessage(`{"message":"hi","count":2}`),
	})
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected error result: %+v", res)
	}
	if len(res.Content) != 1 || res.Content[0].Text != "hihi" {
		t.Fatalf("content = %+v", res.Content)
	}
}

func TestProviderUnknownTool(t *testing.T) {
	p := New([]StaticTool{newEchoTool()})

	_, err := p.CallTool(context.Background(), &mcp.CallToolParams{Name: "doesNotExist"})
	if err == nil {
		t.Fatalf("expected error for unknown tool")
	}
	if !strings.Contains(err.Error(), "doesNotExist") {
		t.Fatalf("error = %q, want tool name mentioned", err)
	}
}

func TestToolRejectsUnknownFields(t *testing.T) {
	p := New([]StaticTool{newEchoTool()})

	res, err := p.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "echo",
		Arguments: json.RawMessage(`{"message":"hi","bogus":true}`),
	})
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if !res.IsError {
		t.Fatalf("expected in-band error result for unknown field, got %+v", res)
	}
	if !strings.Contains(res.Content[0].Text, "invalid arguments") {
		t.Fatalf("error text = %q", res.Content[0].Text)
	}
}

func TestToolAllowAdditionalProperties(t *testing.T) {
	tool := NewTool("lenient", func(ctx context.Context, r *ToolRequest[echoArgs]) (*mcp.CallToolResult, error) {
		return TextResult(r.Args().Message), nil
	}, WithToolAllowAdditionalProperties(true))
	p := New([]StaticTool{tool})

	res, err := p.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "lenient",
		Arguments: json.RawMessage(`{"message":"ok","bogus":true}`),
	})
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if res.IsError || res.Content[0].Text != "ok" {
		t.Fatalf("result = %+v", res)
	}
}

func TestProviderAdd(t *testing.T) {
	p := New([]StaticTool{newEchoTool()})

	if added := p.Add(newEchoTool()); added {
		t.Fatalf("expected duplicate add to be rejected")
	}
	other := NewTool("other", func(ctx context.Context, r *ToolRequest[struct{}]) (*mcp.CallToolResult, error) {
		return TextResult("other"), nil
	})
	if added := p.Add(other); !added {
		t.Fatalf("expected add to succeed")
	}
	tools, _ := p.ListTools(context.Background())
	if len(tools) != 2 || tools[1].Name != "other" {
		t.Fatalf("tools = %+v", tools)
	}
}
