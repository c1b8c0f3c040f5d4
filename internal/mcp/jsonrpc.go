// Package mcp implements the JSON-RPC 2.0 tool surface of Mnemosyne: a
// single HTTP POST endpoint at /mcp speaking the MCP handshake methods
// (initialize, ping, tools/list, tools/call) and routing tool calls to a
// [memory.Store].
//
// The dispatcher is deliberately transport-thin. All memory semantics live
// behind the store interface; this package only decodes arguments, applies
// the documented call defaults, derives the caller's tenant context from
// headers, and wraps results in the MCP content envelope.
package mcp

import "encoding/json"

// ─────────────────────────────────────────────────────────────────────────────
// JSON-RPC 2.0 envelope
// ─────────────────────────────────────────────────────────────────────────────

// Request is an incoming JSON-RPC 2.0 request. ID is kept as an opaque value
// because clients may send numbers, strings, or null.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// Response is an outgoing JSON-RPC 2.0 response. Exactly one of Result and
// Error is set.
type Response struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

// RPCError is the JSON-RPC 2.0 error object.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Standard JSON-RPC 2.0 error codes.
const (
	ParseError     = -32700
	InvalidRequest = -32600
	MethodNotFound = -32601
	InvalidParams  = -32602
	InternalError  = -32603
)

// resultResponse builds a success response for id.
func resultResponse(id interface{}, result interface{}) Response {
	return Response{JSONRPC: "2.0", ID: id, Result: result}
}

// errorResponse builds an error response for id.
func errorResponse(id interface{}, code int, message string) Response {
	return Response{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &RPCError{Code: code, Message: message},
	}
}
