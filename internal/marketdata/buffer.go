package marketdata

import (
	"sync"

	"github.com/shopspring/decimal"
)

const defaultBufferCapacity = 256

// Buffer retains the most recently fetched quotes for a symbol so a
// reporter can periodically inspect fetch volume and recent price
// movement independent of the fetch cadence itself. The fetch loop is the
// sole producer; the reporter is the sole consumer.
type Buffer struct {
	mu       sync.Mutex
	capacity int
	quotes   []Quote
}

// NewBuffer returns an empty buffer retaining at most capacity quotes
// (oldest dropped first). A non-positive capacity uses the default.
func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = defaultBufferCapacity
	}
	return &Buffer{capacity: capacity}
}

// Add appends quotes to the buffer, evicting the oldest entries once the
// buffer exceeds its capacity.
func (b *Buffer) Add(quotes ...Quote) {
	if len(quotes) == 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.quotes = append(b.quotes, quotes...)
	if over := len(b.quotes) - b.capacity; over > 0 {
		b.quotes = b.quotes[over:]
	}
}

// Stats is a point-in-time summary of the buffer's contents.
type Stats struct {
	Count     int
	LastClose decimal.Decimal
	HasLast   bool
}

// Snapshot reports the buffer's current size and most recent close.
func (b *Buffer) Snapshot() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.quotes) == 0 {
		return Stats{}
	}
	return Stats{Count: len(b.quotes), LastClose: b.quotes[len(b.quotes)-1].Close, HasLast: true}
}
