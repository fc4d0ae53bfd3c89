package queue

// RawItem is a payload popped from a queue, still encoded.
type RawItem struct {
	// Key is the name of the list the item was popped from.
	Key string

	// Value is the encoded payload.
	Value string
}

// Len returns the payload size in bytes.
func (r *RawItem) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Value)
}
