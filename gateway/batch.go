package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/martzmakes/mcp-gateway/internal/jsonrpc"
)

// coordinator drives one parsed JSON body through the dispatcher. An array
// body is treated as an ordered batch whose elements are independent;
// responses come back in request order. A non-array body produces a single
// (non-array) response.
type coordinator struct {
	d           *dispatcher
	concurrency int
}

// process assumes body is syntactically valid JSON. It never returns an error
// for malformed envelopes; those become per-element error envelopes. The
// returned error covers only response marshaling, which the transport maps to
// a 500.
func (c *coordinator) process(ctx context.Context, body []byte) (json.RawMessage, error) {
	if trimmed := bytes.TrimLeft(body, " \t\r\n"); len(trimmed) == 0 || trimmed[0] != '[' {
		resp := c.processOne(ctx, body)
		out, err := json.Marshal(resp)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response: %w", err)
		}
		return out, nil
	}

	var elements []json.RawMessage
	if err := json.Unmarshal(body, &elements); err != nil {
		return nil, fmt.Errorf("failed to split batch: %w", err)
	}
	if len(elements) == 0 {
		return json.RawMessage("[]"), nil
	}

	// Elements have no data dependency, so they run concurrently; the results
	// slice is indexed by position to keep output order matching input order.
	responses := make([]*jsonrpc.Response, len(elements))
	g, gctx := errgroup.WithContext(ctx)
	if c.concurrency > 0 {
		g.SetLimit(c.concurrency)
	}
	for i, raw := range elements {
		g.Go(func() error {
			responses[i] = c.processOne(gctx, raw)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out, err := json.Marshal(responses)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal batch response: %w", err)
	}
	return out, nil
}

// processOne validates one element's envelope structure and dispatches it.
// Structurally invalid elements never reach the provider; they yield an
// invalid-request envelope with a null ID.
func (c *coordinator) processOne(ctx context.Context, raw json.RawMessage) *jsonrpc.Response {
	req, rpcErr := jsonrpc.DecodeEnvelope(raw)
	if rpcErr != nil {
		c.d.log.WarnContext(ctx, "rpc.envelope.invalid",
			slog.String("err", rpcErr.Message),
			slog.String("id", jsonrpc.PeekID(raw).String()),
		)
		return jsonrpc.NewErrorResponse(nil, rpcErr.Code, rpcErr.Message, nil)
	}
	return c.d.dispatch(ctx, req)
}
