package ledgerd

import (
	"errors"
	"fmt"
)

// Reasons reported by InvalidParamsError. Clients match on these
// strings, so they are part of the service contract.
const (
	ReasonPackageAddress   = "Package address wrong format"
	ReasonComponentAddress = "Component address wrong format"
	ReasonAccountAddress   = "Account wrong format"
	ReasonSignerKey        = "Signer key wrong format"
	ReasonNotComponent     = "Address isn't a component"
)

// ErrBalanceUnavailable is returned by GetBalance when the component,
// its state, or one of its vaults cannot be read or decoded.
var ErrBalanceUnavailable = errors.New("balance unavailable")

// InvalidParamsError reports malformed request input. It is always
// returned before any ledger access.
type InvalidParamsError struct {
	Reason string
	Err    error
}

func (e *InvalidParamsError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid params: %s: %v", e.Reason, e.Err)
	}
	return "invalid params: " + e.Reason
}

func (e *InvalidParamsError) Unwrap() error { return e.Err }

// NewInvalidParams creates a new InvalidParamsError.
func NewInvalidParams(reason string, cause error) *InvalidParamsError {
	return &InvalidParamsError{Reason: reason, Err: cause}
}

// TxStage names the step at which a transaction failed.
type TxStage uint8

const (
	StageBuild TxStage = iota + 1
	StageRun
)

func (s TxStage) String() string {
	switch s {
	case StageBuild:
		return "build"
	case StageRun:
		return "run"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

// TransactionError reports that a transaction could not be built or
// run. The nonce consumed by the attempt is still committed.
type TransactionError struct {
	Stage TxStage
	Err   error
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("transaction %s failed: %v", e.Stage, e.Err)
}

func (e *TransactionError) Unwrap() error { return e.Err }

// EngineError reports that the instruction at Index failed inside an
// otherwise runnable transaction.
type EngineError struct {
	Index int
	Err   error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("instruction %d: %v", e.Index, e.Err)
}

func (e *EngineError) Unwrap() error { return e.Err }

// DecodeFailure reports that the output of the instruction at Index
// could not be decoded or formatted.
type DecodeFailure struct {
	Index int
	Err   error
}

func (e *DecodeFailure) Error() string {
	return fmt.Sprintf("decode output %d: %v", e.Index, e.Err)
}

func (e *DecodeFailure) Unwrap() error { return e.Err }

func as[T error](err error) (T, bool) {
	var target T
	if errors.As(err, &target) {
		return target, true
	}
	return target, false
}

// AsInvalidParams checks whether an error is an InvalidParamsError and returns it.
func AsInvalidParams(err error) (*InvalidParamsError, bool) { return as[*InvalidParamsError](err) }

// AsTransaction checks whether an error is a TransactionError and returns it.
func AsTransaction(err error) (*TransactionError, bool) { return as[*TransactionError](err) }

// AsEngine checks whether an error is an EngineError and returns it.
func AsEngine(err error) (*EngineError, bool) { return as[*EngineError](err) }

// AsDecodeFailure checks whether an error is a DecodeFailure and returns it.
func AsDecodeFailure(err error) (*DecodeFailure, bool) { return as[*DecodeFailure](err) }
