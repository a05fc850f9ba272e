// Package mcp contains the protocol data types and constants the gateway
// speaks on the wire. It mirrors the JSON representation of the Model
// Context Protocol while keeping the surface Go-friendly (exported structs
// with json tags, string constants for method names).
//
// The package is intentionally free of transport logic: the HTTP gateway
// imports these types but implements its own framing, verb gating and
// authentication. Capability providers construct responses using these
// concrete types and hand them back for JSON-RPC serialization.
//
// # Method Names
//
// JSON-RPC method names are enumerated as Method constants
// (e.g. ToolsCallMethod). Using the constants avoids typographical mistakes
// and ensures a single point of truth if the protocol evolves.
//
// # Compatibility
//
// The LatestProtocolVersion constant reflects the most recent protocol date
// the gateway targets. Providers advertise their version in the initialize
// result; clients compare against it to gate optional behaviors.
package mcp
