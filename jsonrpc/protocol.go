// Package jsonrpc serves a ledgerd.Node as JSON-RPC 2.0 over HTTP and
// provides a client for it.
//
// Methods take named parameters:
//
//	new_account    {}
//	call_function  {address, name, function, args, account_address, key}
//	call_method    {address, method, args, account_address, key}
//	get_balance    {address}
//	get_status     {}
//	health_check   {}
package jsonrpc

import (
	"encoding/json"
	"fmt"
)

const version = "2.0"

// Method names.
const (
	MethodNewAccount   = "new_account"
	MethodCallFunction = "call_function"
	MethodCallMethod   = "call_method"
	MethodGetBalance   = "get_balance"
	MethodGetStatus    = "get_status"
	MethodHealthCheck  = "health_check"
)

// Error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	CodeUnavailable    = -32000
)

// Fixed error messages.
const (
	msgParseParams  = "Can't parse parameters"
	msgTransaction  = "Error while building transaction"
	msgDecode       = "DecodeError"
	msgBalance      = "Can't get amounts for address"
	msgParseError   = "parse error"
	msgInvalidReq   = "invalid request"
	msgNoMethod     = "method not found"
	msgInternal     = "internal error"
	msgShuttingDown = "server is shutting down"
)

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  any             `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

// errorData carries what the fixed messages drop, so clients can
// rebuild the typed error.
type errorData struct {
	Stage  string `json:"stage,omitempty"`
	Index  *int   `json:"index,omitempty"`
	Detail string `json:"detail,omitempty"`
}

type rpcError struct {
	Code    int        `json:"code"`
	Message string     `json:"message"`
	Data    *errorData `json:"data,omitempty"`
}

// Error is a JSON-RPC error the client could not map to a ledgerd
// error.
type Error struct {
	Code    int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("jsonrpc error %d: %s", e.Code, e.Message)
}
