package cpu

import "errors"

// Errors returned by the CPU kernels. Callers match them with errors.Is; the
// returned error wraps one of these with the operation name and the offending
// dimensions.
var (
	// ErrShape reports incompatible image, kernel, window or stride dimensions.
	// It is returned before any buffer is touched.
	ErrShape = errors.New("shape mismatch")

	// ErrPrecision reports a tensor whose element type is not a 4-byte float,
	// which the bit-0 validity mark cannot be carried in.
	ErrPrecision = errors.New("float32 storage required")

	// ErrBufferTooSmall reports a column or output buffer whose size does not
	// match the number of marked origins. It signals a sizing bug, never bad
	// input.
	ErrBufferTooSmall = errors.New("gather buffer size mismatch")
)
