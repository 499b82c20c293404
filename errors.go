package transcode

import "fmt"

// ErrorCode identifies the outcome of a conversion. It is a single byte so
// results stay cheap to copy and compare.
type ErrorCode uint8

const (
	Success ErrorCode = iota
	InvalidParameter
	InvalidSourceEncoding
	InvalidTargetEncoding
	ConversionFailed
	IncompleteSequence
	InvalidSequence
	OutOfMemory
	BufferTooSmall
	InternalError
)

// errorMessages maps every code to a static diagnostic string.
// Indexing is by code value; no allocation happens on the error path.
var errorMessages = [...]string{
	Success:               "Success",
	InvalidParameter:      "Invalid parameter",
	InvalidSourceEncoding: "Invalid source encoding",
	InvalidTargetEncoding: "Invalid target encoding",
	ConversionFailed:      "Conversion failed",
	IncompleteSequence:    "Incomplete multibyte sequence",
	InvalidSequence:       "Invalid multibyte sequence",
	OutOfMemory:           "Out of memory",
	BufferTooSmall:        "Buffer too small",
	InternalError:         "Internal error",
}

// Message returns the static diagnostic string for the code.
// Unknown codes fall back to the internal error message.
func (c ErrorCode) Message() string {
	if int(c) < len(errorMessages) {
		return errorMessages[c]
	}
	return errorMessages[InternalError]
}

func (c ErrorCode) String() string {
	switch c {
	case Success:
		return "Success"
	case InvalidParameter:
		return "InvalidParameter"
	case InvalidSourceEncoding:
		return "InvalidSourceEncoding"
	case InvalidTargetEncoding:
		return "InvalidTargetEncoding"
	case ConversionFailed:
		return "ConversionFailed"
	case IncompleteSequence:
		return "IncompleteSequence"
	case InvalidSequence:
		return "InvalidSequence"
	case OutOfMemory:
		return "OutOfMemory"
	case BufferTooSmall:
		return "BufferTooSmall"
	case InternalError:
		return "InternalError"
	default:
		return fmt.Sprintf("ErrorCode(%d)", uint8(c))
	}
}

// LookupError reports that one side of an encoding pair could not be resolved
// to a codec. Target indicates which side failed.
type LookupError struct {
	Name   string
	Target bool
	Err    error
}

func (e *LookupError) Error() string {
	side := "source"
	if e.Target {
		side = "target"
	}
	return fmt.Sprintf("%s encoding %q: %v", side, e.Name, e.Err)
}

func (e *LookupError) Unwrap() error {
	return e.Err
}
