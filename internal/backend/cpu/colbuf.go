package cpu

import "github.com/rs/zerolog"

// ColumnBuffer is the im2col scratch matrix reused across convolutions.
// It only grows; a reservation that fits the current capacity is zeroed and
// handed out without allocating.
type ColumnBuffer struct {
	data   []float32
	logger zerolog.Logger
}

// NewColumnBuffer returns an empty buffer. Storage is allocated on the first
// Reserve.
func NewColumnBuffer(logger zerolog.Logger) *ColumnBuffer {
	return &ColumnBuffer{logger: logger}
}

// Reserve returns a zeroed slice of exactly n elements backed by the buffer.
// The slice is valid until the next Reserve.
func (b *ColumnBuffer) Reserve(n int) []float32 {
	if n <= cap(b.data) {
		b.data = b.data[:n]
		clear(b.data)
		colBufferReuses.Inc()
		return b.data
	}

	b.logger.Debug().
		Int("from", cap(b.data)).
		Int("to", n).
		Msg("growing column buffer")
	b.data = make([]float32, n)
	colBufferGrowths.Inc()
	colBufferBytes.Set(float64(4 * n))
	return b.data
}

// Cap returns the number of elements the buffer holds without reallocating.
func (b *ColumnBuffer) Cap() int {
	return cap(b.data)
}
