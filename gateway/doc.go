// Package gateway implements a stateless HTTP transport for the tool
// invocation protocol. A single endpoint accepts JSON-RPC 2.0 envelopes
// (single or batched), routes each one to a CapabilityProvider, and mirrors
// the request shape in the response. No sessions, no streaming, no retries:
// every exchange is one bounded request/response cycle.
//
// The handler also serves OAuth discovery documents (RFC 9728 protected
// resource metadata and an RFC 8414 authorization server metadata mirror)
// when constructed with a security configuration, so protocol clients can
// locate the authorization server guarding the endpoint. Token enforcement
// itself is delegated to middleware; see the auth package.
package gateway
