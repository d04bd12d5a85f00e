package domain

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// PriceHistory is a fixed-capacity ring of past prices. Pushing evicts the
// oldest value, so Len never changes after construction.
type PriceHistory struct {
	buf  []decimal.Decimal
	head int // index of the oldest value
}

// NewPriceHistory copies values (oldest first) into a ring of the same length.
func NewPriceHistory(values []decimal.Decimal) *PriceHistory {
	buf := make([]decimal.Decimal, len(values))
	copy(buf, values)
	return &PriceHistory{buf: buf}
}

// Len returns the fixed capacity.
func (h *PriceHistory) Len() int {
	return len(h.buf)
}

// Push drops the oldest value and appends v as the newest.
func (h *PriceHistory) Push(v decimal.Decimal) {
	if len(h.buf) == 0 {
		return
	}
	h.buf[h.head] = v
	h.head = (h.head + 1) % len(h.buf)
}

// Last returns the newest value.
func (h *PriceHistory) Last() decimal.Decimal {
	if len(h.buf) == 0 {
		return decimal.Zero
	}
	return h.buf[(h.head+len(h.buf)-1)%len(h.buf)]
}

// Values returns a copy ordered oldest to newest.
func (h *PriceHistory) Values() []decimal.Decimal {
	out := make([]decimal.Decimal, 0, len(h.buf))
	out = append(out, h.buf[h.head:]...)
	out = append(out, h.buf[:h.head]...)
	return out
}

// Resized returns a history of exactly n values: missing slots are padded
// with the oldest value, surplus values are dropped oldest first.
func (h *PriceHistory) Resized(n int) *PriceHistory {
	values := h.Values()
	switch {
	case n <= 0:
		return NewPriceHistory(nil)
	case len(values) == 0:
		return NewPriceHistory(nil)
	case len(values) > n:
		values = values[len(values)-n:]
	case len(values) < n:
		pad := make([]decimal.Decimal, n-len(values), n)
		for i := range pad {
			pad[i] = values[0]
		}
		values = append(pad, values...)
	}
	return NewPriceHistory(values)
}

// MarshalJSON encodes the ring as a plain list, oldest first.
func (h *PriceHistory) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.Values())
}

// UnmarshalJSON decodes a plain list.
func (h *PriceHistory) UnmarshalJSON(b []byte) error {
	var values []decimal.Decimal
	if err := json.Unmarshal(b, &values); err != nil {
		return err
	}
	*h = PriceHistory{buf: values}
	return nil
}
