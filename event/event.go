package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// ErrMalformed is wrapped by every Decode failure.
var ErrMalformed = errors.New("malformed event")

// MaxAmount bounds the magnitude of price and total. Larger values lose
// cent precision in float64.
const MaxAmount = 1e15

// Event is a decoded queue item.
// Field order is significant: it fixes the JSON encoding used by Fingerprint.
type Event struct {
	// Index identifies the event within its producer's batch.
	Index int32 `json:"index"`

	// Wday selects the discount applied by Transform (0-6).
	Wday uint8 `json:"wday"`

	// Payload is opaque producer data carried through unchanged.
	Payload string `json:"payload"`

	// Price is the raw value the discount is applied to.
	Price float64 `json:"price"`

	// UserID identifies the user the event belongs to.
	UserID int32 `json:"user_id"`

	// Total is derived by Transform and zero until then.
	Total float64 `json:"total"`
}

// wireEvent mirrors Event with pointers so missing required fields can be
// told apart from zero values.
type wireEvent struct {
	Index   *int32   `json:"index"`
	Wday    *uint8   `json:"wday"`
	Payload *string  `json:"payload"`
	Price   *float64 `json:"price"`
	UserID  *int32   `json:"user_id"`
	Total   *float64 `json:"total"`
}

// Decode parses a JSON payload into an Event.
// index, wday, payload, price and user_id are required; total is optional.
// Unknown fields are ignored. Every failure wraps ErrMalformed.
func Decode(payload string) (Event, error) {
	if payload == "" {
		return Event{}, fmt.Errorf("%w: empty payload", ErrMalformed)
	}

	var w wireEvent
	if err := json.Unmarshal([]byte(payload), &w); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	switch {
	case w.Index == nil:
		return Event{}, fmt.Errorf("%w: index is required", ErrMalformed)
	case w.Wday == nil:
		return Event{}, fmt.Errorf("%w: wday is required", ErrMalformed)
	case w.Payload == nil:
		return Event{}, fmt.Errorf("%w: payload is required", ErrMalformed)
	case w.Price == nil:
		return Event{}, fmt.Errorf("%w: price is required", ErrMalformed)
	case w.UserID == nil:
		return Event{}, fmt.Errorf("%w: user_id is required", ErrMalformed)
	}

	if err := checkAmount("price", *w.Price); err != nil {
		return Event{}, err
	}
	if w.Total != nil {
		if err := checkAmount("total", *w.Total); err != nil {
			return Event{}, err
		}
	}

	ev := Event{
		Index:   *w.Index,
		Wday:    *w.Wday,
		Payload: *w.Payload,
		Price:   *w.Price,
		UserID:  *w.UserID,
	}
	if w.Total != nil {
		ev.Total = *w.Total
	}
	return ev, nil
}

func checkAmount(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || math.Abs(v) > MaxAmount {
		return fmt.Errorf("%w: %s %g out of range", ErrMalformed, name, v)
	}
	return nil
}

// Encode returns the JSON encoding of the event.
func (e Event) Encode() (string, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return "", fmt.Errorf("failed to marshal event: %w", err)
	}
	return string(data), nil
}
