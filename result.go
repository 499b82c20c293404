package transcode

import "fmt"

// Result carries either a value of type T or an error code, never both.
// The zero value is a successful result holding T's zero value; use the
// Ok and Fail constructors for anything else.
type Result[T any] struct {
	value T
	code  ErrorCode
}

// Ok creates a successful result holding value.
func Ok[T any](value T) Result[T] {
	return Result[T]{value: value}
}

// Fail creates a failed result with the given code.
// Passing Success is a programmer error.
func Fail[T any](code ErrorCode) Result[T] {
	if code == Success {
		panic("transcode: Fail called with Success code")
	}
	return Result[T]{code: code}
}

// IsSuccess reports whether the result holds a value.
func (r Result[T]) IsSuccess() bool {
	return r.code == Success
}

// ErrorCode returns the result's code. Success for successful results.
func (r Result[T]) ErrorCode() ErrorCode {
	return r.code
}

// ErrorMessage returns the static diagnostic string for the result's code.
func (r Result[T]) ErrorMessage() string {
	return r.code.Message()
}

// Value returns the held value. Calling Value on a failed result is a
// programmer error and panics; check IsSuccess first or use ValueOr.
func (r Result[T]) Value() T {
	if r.code != Success {
		panic(fmt.Sprintf("transcode: Value called on failed result (%v)", r.code))
	}
	return r.value
}

// ValueOr returns the held value, or def if the result failed.
func (r Result[T]) ValueOr(def T) T {
	if r.code != Success {
		return def
	}
	return r.value
}

// BytesResult is the byte-buffer specialization of Result used by the
// conversion engine. The buffer and the code are mutually exclusive: a failed
// result never carries any bytes.
type BytesResult struct {
	buf  []byte
	code ErrorCode
}

// OkBytes creates a successful result taking ownership of buf.
func OkBytes(buf []byte) BytesResult {
	return BytesResult{buf: buf}
}

// FailBytes creates a failed byte result with the given code.
func FailBytes(code ErrorCode) BytesResult {
	if code == Success {
		panic("transcode: FailBytes called with Success code")
	}
	return BytesResult{code: code}
}

// IsSuccess reports whether the conversion produced output.
func (r BytesResult) IsSuccess() bool {
	return r.code == Success
}

// ErrorCode returns the result's code. Success for successful results.
func (r BytesResult) ErrorCode() ErrorCode {
	return r.code
}

// ErrorMessage returns the static diagnostic string for the result's code.
func (r BytesResult) ErrorMessage() string {
	return r.code.Message()
}

// Bytes returns the converted bytes without copying. Calling Bytes on a
// failed result is a programmer error and panics; check IsSuccess first or
// use BytesOr.
func (r BytesResult) Bytes() []byte {
	if r.code != Success {
		panic(fmt.Sprintf("transcode: Bytes called on failed result (%v)", r.code))
	}
	return r.buf
}

// BytesOr returns the converted bytes, or def if the conversion failed.
func (r BytesResult) BytesOr(def []byte) []byte {
	if r.code != Success {
		return def
	}
	return r.buf
}

// String returns the converted bytes as a string, or the diagnostic message
// on failure.
func (r BytesResult) String() string {
	if r.code != Success {
		return r.code.Message()
	}
	return string(r.buf)
}

// TakeBytes moves the buffer out of the result, leaving it empty.
// Returns nil if the result failed.
func (r *BytesResult) TakeBytes() []byte {
	buf := r.buf
	r.buf = nil
	return buf
}

// Len returns the output length in bytes without copying. Zero on failure.
func (r BytesResult) Len() int {
	return len(r.buf)
}

// Cap returns the output buffer capacity without copying. Zero on failure.
func (r BytesResult) Cap() int {
	return cap(r.buf)
}
