package sbor

import "fmt"

// ErrorKind classifies a DecodeError.
type ErrorKind uint8

const (
	ErrUnderflow ErrorKind = iota + 1
	ErrInvalidType
	ErrInvalidBool
	ErrInvalidIndex
	ErrInvalidUtf8
	ErrInvalidCustomData
	ErrNotAllBytesUsed
	ErrMaxDepth
)

func (k ErrorKind) String() string {
	switch k {
	case ErrUnderflow:
		return "Underflow"
	case ErrInvalidType:
		return "InvalidType"
	case ErrInvalidBool:
		return "InvalidBool"
	case ErrInvalidIndex:
		return "InvalidIndex"
	case ErrInvalidUtf8:
		return "InvalidUtf8"
	case ErrInvalidCustomData:
		return "InvalidCustomData"
	case ErrNotAllBytesUsed:
		return "NotAllBytesUsed"
	case ErrMaxDepth:
		return "MaxDepthExceeded"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// DecodeError reports why bytes could not be decoded or formatted.
type DecodeError struct {
	Kind   ErrorKind
	Offset int
	// Actual is the offending byte: the type tag for ErrInvalidType and
	// ErrInvalidCustomData, the discriminator for ErrInvalidBool and
	// ErrInvalidIndex.
	Actual byte
	// Expected is set when the surrounding context constrained the tag.
	Expected    byte
	HasExpected bool
	Err         error
}

func (e *DecodeError) Error() string {
	switch e.Kind {
	case ErrInvalidType:
		if e.HasExpected {
			return fmt.Sprintf("sbor: invalid type %#04x at offset %d, expected %#04x", e.Actual, e.Offset, e.Expected)
		}
		return fmt.Sprintf("sbor: invalid type %#04x at offset %d", e.Actual, e.Offset)
	case ErrInvalidCustomData:
		if e.Err != nil {
			return fmt.Sprintf("sbor: invalid custom data for type %#04x: %v", e.Actual, e.Err)
		}
		return fmt.Sprintf("sbor: invalid custom data for type %#04x", e.Actual)
	case ErrInvalidBool, ErrInvalidIndex:
		return fmt.Sprintf("sbor: %s %#04x at offset %d", e.Kind, e.Actual, e.Offset)
	default:
		return fmt.Sprintf("sbor: %s at offset %d", e.Kind, e.Offset)
	}
}

func (e *DecodeError) Unwrap() error { return e.Err }

// InvalidType returns the error for an unexpected tag with no
// constraint from context.
func InvalidType(actual byte) *DecodeError {
	return &DecodeError{Kind: ErrInvalidType, Actual: actual}
}

// InvalidCustomData returns the error for a custom payload whose
// layout does not match its tag.
func InvalidCustomData(tag byte, cause error) *DecodeError {
	return &DecodeError{Kind: ErrInvalidCustomData, Actual: tag, Err: cause}
}
