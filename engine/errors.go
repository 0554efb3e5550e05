package engine

import "errors"

// Build errors.
var (
	ErrNoInstructions  = errors.New("transaction has no instructions")
	ErrNoSigners       = errors.New("transaction has no signers")
	ErrInvalidSigner   = errors.New("signer is not a public key")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrEmptyCode       = errors.New("package code is empty")
)

// Rejections raised before any instruction runs.
var (
	ErrPackageNotFound   = errors.New("package not found")
	ErrComponentNotFound = errors.New("component not found")
	ErrNotAccount        = errors.New("component is not an account")
)

// Runtime failures recorded in a receipt.
var (
	ErrBlueprintNotFound   = errors.New("blueprint not found")
	ErrFunctionNotFound    = errors.New("function not found")
	ErrMethodNotFound      = errors.New("method not found")
	ErrUnknownBlueprint    = errors.New("blueprint is not registered")
	ErrBucketNotFound      = errors.New("bucket not found")
	ErrBucketReferenced    = errors.New("bucket is still referenced")
	ErrVaultNotFound       = errors.New("vault not found")
	ErrLazyMapNotFound     = errors.New("lazy map not found")
	ErrResourceNotFound    = errors.New("resource not found")
	ErrResourceMismatch    = errors.New("resource mismatch")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrNegativeAmount      = errors.New("amount is negative")
	ErrUnauthorized        = errors.New("transaction is not signed by the account key")
	ErrNoAccount           = errors.New("call has no account")
	ErrUnaccounted         = errors.New("resources left on the worktop")
	ErrBadState            = errors.New("malformed component state")
)
