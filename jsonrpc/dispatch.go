package jsonrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/blockberries/ledgerd/types"
)

func (s *Server) dispatch(ctx context.Context, method string, params json.RawMessage) (any, *rpcError) {
	switch method {
	case MethodHealthCheck:
		return map[string]string{"status": "ok"}, nil
	case MethodNewAccount:
		return reply(s.node.NewAccount(ctx))
	case MethodCallFunction:
		var p types.CallFunctionParams
		if err := decodeParams(params, &p, "address", "name", "function", "args", "account_address", "key"); err != nil {
			return nil, parseParamsError()
		}
		return reply(s.node.CallFunction(ctx, p))
	case MethodCallMethod:
		var p types.CallMethodParams
		if err := decodeParams(params, &p, "address", "method", "args", "account_address", "key"); err != nil {
			return nil, parseParamsError()
		}
		return reply(s.node.CallMethod(ctx, p))
	case MethodGetBalance:
		var p types.GetBalanceParams
		if err := decodeParams(params, &p, "address"); err != nil {
			return nil, parseParamsError()
		}
		return reply(s.node.GetBalance(ctx, p))
	case MethodGetStatus:
		return reply(s.node.Status(ctx))
	}
	return nil, &rpcError{Code: CodeMethodNotFound, Message: msgNoMethod}
}

func reply[T any](result T, err error) (any, *rpcError) {
	if err != nil {
		return nil, errorFor(err)
	}
	return result, nil
}

func parseParamsError() *rpcError {
	return &rpcError{Code: CodeParseError, Message: msgParseParams}
}

// decodeParams decodes a params object into v. Every name in required
// must be present.
func decodeParams(raw json.RawMessage, v any, required ...string) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		return fmt.Errorf("missing params")
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return err
	}
	for _, name := range required {
		if _, ok := fields[name]; !ok {
			return fmt.Errorf("missing field %q", name)
		}
	}
	return json.Unmarshal(raw, v)
}
