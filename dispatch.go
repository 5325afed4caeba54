package decodefuzz

// Dispatch is a fixed table of alternatives chosen by the first byte of a fuzz input. Selector
// value v picks entry v % len(d), so every byte value maps to exactly one entry.
type Dispatch[T any] []T

// Select splits data into the chosen entry and the remaining payload. It reports false when the
// table or the input is empty.
func (d Dispatch[T]) Select(data []byte) (entry T, payload []byte, ok bool) {
	if len(d) == 0 || len(data) == 0 {
		return entry, nil, false
	}
	return d[int(data[0])%len(d)], data[1:], true
}

