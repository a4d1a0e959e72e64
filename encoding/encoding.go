package encoding

import (
	"encoding/json"
)

// Marshaler defines methods to marshal/unmarshal values to/from byte slices.
type Marshaler interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// DefaultMarshaler is the package-wide default marshaler, used to serialize lock
// payloads (themis.PrimaryLock/SecondaryLock) for transport to the backing store.
var DefaultMarshaler = NewMarshaler()

// LockMarshaler handles lock payload encoding specifically. Defaults to
// DefaultMarshaler but can be swapped for a wire-compatible codec.
var LockMarshaler = DefaultMarshaler

type defaultMarshaler struct{}

// NewMarshaler returns a Marshaler implemented with the standard library JSON package.
func NewMarshaler() Marshaler {
	return &defaultMarshaler{}
}

func (m defaultMarshaler) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (m defaultMarshaler) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// Marshal is a generic helper that serializes v via LockMarshaler, passing byte
// slices through without copying.
func Marshal[T any](v T) ([]byte, error) {
	if ba, ok := any(v).([]byte); ok {
		return ba, nil
	}
	return LockMarshaler.Marshal(v)
}

// Unmarshal is a generic helper that deserializes ba into v via LockMarshaler,
// passing byte slices through without copying.
func Unmarshal[T any](ba []byte, v *T) error {
	if bv, ok := any(v).(*[]byte); ok {
		*bv = ba
		return nil
	}
	return LockMarshaler.Unmarshal(ba, v)
}
