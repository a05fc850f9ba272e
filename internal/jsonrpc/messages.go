package jsonrpc

import (
	"encoding/json"
	"fmt"
)

// ProtocolVersion is the supported JSON-RPC protocol version.
const ProtocolVersion = "2.0"

// Message is the raw JSON representation of a JSON-RPC message.
type Message []byte

// Request represents a JSON-RPC request (with an ID) or notification (without ID).
type Request struct {
	JSONRPCVersion string          `json:"jsonrpc"`
	Method         string          `json:"method"`
	Params         json.RawMessage `json:"params,omitempty"`
	ID             *RequestID      `json:"id,omitempty"`
}

// IsNotification reports whether the request carries no usable ID. The wire
// treats both an absent id and an explicit null id as notifications, though
// this server responds to them anyway rather than dropping them silently.
func (r *Request) IsNotification() bool {
	return r.ID.IsNil()
}

// Response represents a JSON-RPC response. The ID field is always emitted,
// rendering as null when the originating request's ID could not be determined.
type Response struct {
	JSONRPCVersion string          `json:"jsonrpc"`
	Result         json.RawMessage `json:"result,omitempty"`
	Error          *Error          `json:"error,omitempty"`
	ID             *RequestID      `json:"id"`
}

// NewResultResponse builds a successful JSON-RPC response object.
func NewResultResponse(id *RequestID, result any) (*Response, error) {
	resultBytes, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}

	return &Response{
		JSONRPCVersion: ProtocolVersion,
		Result:         resultBytes,
		ID:             id,
	}, nil
}

// NewErrorResponse builds an error JSON-RPC response with the given code.
func NewErrorResponse(id *RequestID, code ErrorCode, message string, data any) *Response {
	return &Response{
		JSONRPCVersion: ProtocolVersion,
		Error: &Error{
			Code:    code,
			Message: message,
			Data:    data,
		},
		ID: id,
	}
}

// DecodeEnvelope parses a single raw JSON-RPC envelope and validates its
// structure. A malformed envelope returns an *Error with code -32600; the
// payload itself is assumed to already be well-formed JSON (batch splitting
// happens upstream of this call).
func DecodeEnvelope(raw json.RawMessage) (*Request, *Error) {
	// A scalar or array element that is not an object cannot be a request.
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, &Error{Code: ErrorCodeInvalidRequest, Message: "request must be a JSON object"}
	}

	var req Request
	if rawVersion, ok := probe["jsonrpc"]; ok {
		// A non-string version falls through as empty and fails the check below.
		_ = json.Unmarshal(rawVersion, &req.JSONRPCVersion)
	}
	if req.JSONRPCVersion != ProtocolVersion {
		return nil, &Error{Code: ErrorCodeInvalidRequest, Message: fmt.Sprintf("invalid JSON-RPC version: expected %q, got %q", ProtocolVersion, req.JSONRPCVersion)}
	}

	if rawMethod, ok := probe["method"]; ok {
		if err := json.Unmarshal(rawMethod, &req.Method); err != nil {
			return nil, &Error{Code: ErrorCodeInvalidRequest, Message: "method must be a string"}
		}
	}
	if req.Method == "" {
		return nil, &Error{Code: ErrorCodeInvalidRequest, Message: "method is required"}
	}

	if rawID, ok := probe["id"]; ok && string(rawID) != "null" {
		var id RequestID
		if err := id.UnmarshalJSON(rawID); err != nil {
			return nil, &Error{Code: ErrorCodeInvalidRequest, Message: fmt.Sprintf("invalid request id: %v", err)}
		}
		req.ID = &id
	}
	req.Params = probe["params"]

	return &req, nil
}

// PeekID best-effort extracts the request ID from a raw envelope so that
// error responses for invalid envelopes can still echo it. Returns nil when
// the envelope is not an object or its id is absent, null, or malformed.
func PeekID(raw json.RawMessage) *RequestID {
	var probe struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil
	}
	if len(probe.ID) == 0 {
		return nil
	}

	var id RequestID
	if err := id.UnmarshalJSON(probe.ID); err != nil {
		return nil
	}
	return &id
}
