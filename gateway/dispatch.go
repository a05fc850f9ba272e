package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/martzmakes/mcp-gateway/internal/jsonrpc"
	"github.com/martzmakes/mcp-gateway/internal/logctx"
	"github.com/martzmakes/mcp-gateway/mcp"
)

// dispatcher routes one validated envelope to the capability provider and
// converts every failure mode into an error envelope. Nothing escapes this
// boundary: provider errors, bad params, and panics all come back as a
// response carrying the request's ID.
type dispatcher struct {
	provider CapabilityProvider
	log      *slog.Logger
	redact   bool
}

func (d *dispatcher) dispatch(ctx context.Context, req *jsonrpc.Request) (resp *jsonrpc.Response) {
	msgType := "request"
	if req.IsNotification() {
		msgType = "notification"
	}
	ctx = logctx.WithRPCMessage(ctx, &logctx.RPCMessage{
		Method: req.Method,
		ID:     req.ID.String(),
		Type:   msgType,
	})

	defer func() {
		if rec := recover(); rec != nil {
			d.log.ErrorContext(ctx, "rpc.dispatch.panic", slog.Any("panic", rec))
			resp = jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInternalError, "internal error", nil)
		}
	}()

	d.log.DebugContext(ctx, "rpc.dispatch.start")

	switch mcp.Method(req.Method) {
	case mcp.InitializeMethod:
		res, err := d.provider.Describe(ctx)
		if err != nil {
			return d.providerError(ctx, req.ID, err)
		}
		return d.result(ctx, req.ID, res)

	case mcp.ToolsListMethod:
		tools, err := d.provider.ListTools(ctx)
		if err != nil {
			return d.providerError(ctx, req.ID, err)
		}
		if tools == nil {
			tools = []mcp.Tool{}
		}
		return d.result(ctx, req.ID, &mcp.ListToolsResult{Tools: tools})

	case mcp.ToolsCallMethod:
		var params mcp.CallToolParams
		if len(req.Params) > 0 {
			if err := json.Unmarshal(req.Params, &params); err != nil {
				d.log.WarnContext(ctx, "rpc.params.invalid", slog.String("err", err.Error()))
				return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInvalidParams, "invalid tool call params", nil)
			}
		}
		if params.Name == "" {
			return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInvalidParams, "tool name is required", nil)
		}
		ctx = logctx.WithToolCallData(ctx, &logctx.ToolCallData{ToolName: params.Name})
		res, err := d.provider.CallTool(ctx, &params)
		if err != nil {
			return d.providerError(ctx, req.ID, err)
		}
		return d.result(ctx, req.ID, res)

	case mcp.PingMethod:
		return d.result(ctx, req.ID, &mcp.EmptyResult{})

	default:
		d.log.InfoContext(ctx, "rpc.method.unknown")
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeMethodNotFound, fmt.Sprintf("unknown method: %s", req.Method), nil)
	}
}

func (d *dispatcher) result(ctx context.Context, id *jsonrpc.RequestID, payload any) *jsonrpc.Response {
	resp, err := jsonrpc.NewResultResponse(id, payload)
	if err != nil {
		d.log.ErrorContext(ctx, "rpc.result.encode.fail", slog.String("err", err.Error()))
		return jsonrpc.NewErrorResponse(id, jsonrpc.ErrorCodeInternalError, "internal error", nil)
	}
	d.log.InfoContext(ctx, "rpc.dispatch.ok")
	return resp
}

// providerError converts a capability provider failure into an internal error
// envelope. The failure text is preserved for diagnostics unless the handler
// was configured to redact it.
func (d *dispatcher) providerError(ctx context.Context, id *jsonrpc.RequestID, err error) *jsonrpc.Response {
	d.log.WarnContext(ctx, "rpc.provider.fail", slog.String("err", err.Error()))
	msg := err.Error()
	if d.redact || msg == "" {
		msg = "internal error"
	}
	return jsonrpc.NewErrorResponse(id, jsonrpc.ErrorCodeInternalError, msg, nil)
}
