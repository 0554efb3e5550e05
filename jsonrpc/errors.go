package jsonrpc

import (
	"context"
	"errors"
	"fmt"

	"github.com/blockberries/ledgerd"
)

// errorFor maps a node error onto its JSON-RPC error.
func errorFor(err error) *rpcError {
	if ip, ok := ledgerd.AsInvalidParams(err); ok {
		return &rpcError{Code: CodeInvalidParams, Message: ip.Reason}
	}
	if te, ok := ledgerd.AsTransaction(err); ok {
		return &rpcError{
			Code:    CodeInvalidParams,
			Message: msgTransaction,
			Data:    &errorData{Stage: te.Stage.String(), Detail: te.Err.Error()},
		}
	}
	if df, ok := ledgerd.AsDecodeFailure(err); ok {
		idx := df.Index
		return &rpcError{
			Code:    CodeInternalError,
			Message: msgDecode,
			Data:    &errorData{Index: &idx, Detail: df.Err.Error()},
		}
	}
	if ee, ok := ledgerd.AsEngine(err); ok {
		idx := ee.Index
		return &rpcError{Code: CodeInternalError, Message: ee.Err.Error(), Data: &errorData{Index: &idx}}
	}
	if errors.Is(err, ledgerd.ErrBalanceUnavailable) {
		return &rpcError{Code: CodeInternalError, Message: msgBalance, Data: &errorData{Detail: err.Error()}}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &rpcError{Code: CodeUnavailable, Message: err.Error()}
	}
	return &rpcError{Code: CodeInternalError, Message: err.Error()}
}

// errorFrom reverses errorFor.
func errorFrom(e *rpcError) error {
	data := e.Data
	if data == nil {
		data = &errorData{}
	}
	switch e.Code {
	case CodeInvalidParams:
		if e.Message == msgTransaction {
			return &ledgerd.TransactionError{Stage: parseStage(data.Stage), Err: errors.New(data.Detail)}
		}
		return ledgerd.NewInvalidParams(e.Message, nil)
	case CodeInternalError:
		switch {
		case e.Message == msgBalance:
			return fmt.Errorf("%w: %s", ledgerd.ErrBalanceUnavailable, data.Detail)
		case e.Message == msgDecode && data.Index != nil:
			return &ledgerd.DecodeFailure{Index: *data.Index, Err: errors.New(data.Detail)}
		case data.Index != nil:
			return &ledgerd.EngineError{Index: *data.Index, Err: errors.New(e.Message)}
		}
	}
	return &Error{Code: e.Code, Message: e.Message}
}

func parseStage(s string) ledgerd.TxStage {
	if s == ledgerd.StageBuild.String() {
		return ledgerd.StageBuild
	}
	return ledgerd.StageRun
}
