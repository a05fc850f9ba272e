package jsonrpc

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestDecodeEnvelope(t *testing.T) {
	cases := []struct {
		name    string
		raw     string
		wantErr string
	}{
		{
			name: "valid request",
			raw:  `{"jsonrpc":"2.0","method":"ping","id":1}`,
		},
		{
			name: "valid notification",
			raw:  `{"jsonrpc":"2.0","method":"ping"}`,
		},
		{
			name:    "wrong version",
			raw:     `{"jsonrpc":"1.0","method":"ping","id":1}`,
			wantErr: "invalid JSON-RPC version",
		},
		{
			name:    "missing version",
			raw:     `{"method":"ping","id":1}`,
			wantErr: "invalid JSON-RPC version",
		},
		{
			name:    "missing method",
			raw:     `{"jsonrpc":"2.0","id":1}`,
			wantErr: "method is required",
		},
		{
			name:    "non-string method",
			raw:     `{"jsonrpc":"2.0","method":42,"id":1}`,
			wantErr: "method must be a string",
		},
		{
			name:    "scalar envelope",
			raw:     `"hello"`,
			wantErr: "must be a JSON object",
		},
		{
			name:    "array envelope",
			raw:     `[1,2,3]`,
			wantErr: "must be a JSON object",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req, rpcErr := DecodeEnvelope(json.RawMessage(tc.raw))
			if tc.wantErr == "" {
				if rpcErr != nil {
					t.Fatalf("unexpected error: %v", rpcErr)
				}
				if req.Method == "" {
					t.Fatalf("expected method to be populated")
				}
				return
			}
			if rpcErr == nil {
				t.Fatalf("expected error containing %q, got request %+v", tc.wantErr, req)
			}
			if rpcErr.Code != ErrorCodeInvalidRequest {
				t.Fatalf("expected code %d, got %d", ErrorCodeInvalidRequest, rpcErr.Code)
			}
			if !strings.Contains(rpcErr.Message, tc.wantErr) {
				t.Fatalf("expected message containing %q, got %q", tc.wantErr, rpcErr.Message)
			}
		})
	}
}

func TestRequestIDRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want string
	}{
		{name: "string id", raw: `"abc"`, want: `"abc"`},
		{name: "integer id", raw: `42`, want: `42`},
		{name: "float id", raw: `1.5`, want: `1.5`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var id RequestID
			if err := json.Unmarshal([]byte(tc.raw), &id); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			got, err := json.Marshal(&id)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			if string(got) != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestRequestIDRejectsNonScalar(t *testing.T) {
	var id RequestID
	if err := json.Unmarshal([]byte(`{"a":1}`), &id); err == nil {
		t.Fatalf("expected error for object id")
	}
	if err := json.Unmarshal([]byte(`[1]`), &id); err == nil {
		t.Fatalf("expected error for array id")
	}
}

func TestNilRequestIDMarshalsAsNull(t *testing.T) {
	resp := NewErrorResponse(nil, ErrorCodeParseError, "parse error", nil)
	out, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(out), `"id":null`) {
		t.Fatalf("expected id:null in error response, got %s", out)
	}
}

func TestResponseEchoesID(t *testing.T) {
	resp, err := NewResultResponse(NewRequestID("req-1"), map[string]any{"ok": true})
	if err != nil {
		t.Fatalf("build response: %v", err)
	}
	out, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(out), `"id":"req-1"`) {
		t.Fatalf("expected id echoed, got %s", out)
	}
	if !strings.Contains(string(out), `"jsonrpc":"2.0"`) {
		t.Fatalf("expected jsonrpc version, got %s", out)
	}
}

func TestPeekID(t *testing.T) {
	if id := PeekID(json.RawMessage(`{"id":7,"method":false}`)); id.String() != "7" {
		t.Fatalf("expected id 7, got %q", id.String())
	}
	if id := PeekID(json.RawMessage(`{"id":null}`)); !id.IsNil() {
		t.Fatalf("expected nil id for null")
	}
	if id := PeekID(json.RawMessage(`{"method":"ping"}`)); !id.IsNil() {
		t.Fatalf("expected nil id when absent")
	}
	if id := PeekID(json.RawMessage(`[]`)); !id.IsNil() {
		t.Fatalf("expected nil id for non-object")
	}
}
