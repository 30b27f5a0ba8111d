package cache

import (
	"github.com/12dTa05/CoLy2/pkg/codec"
)

// Entry is a cached value as held by a Store. An entry read from the primary
// store carries only encoded bytes; an entry read from the fallback store
// carries only the original value. Entries built by NewEntry carry both.
type Entry struct {
	value any
	data  []byte
}

// NewEntry encodes value for storage. It fails with a *codec.EncodeError when
// the value is not cacheable.
func NewEntry(value any) (Entry, error) {
	data, err := codec.Encode(value)
	if err != nil {
		return Entry{}, err
	}
	return Entry{value: value, data: data}, nil
}

// EncodedEntry wraps bytes previously produced by codec.Encode.
func EncodedEntry(data []byte) Entry {
	return Entry{data: data}
}

// ValueEntry wraps an in-process value without encoding it.
func ValueEntry(value any) Entry {
	return Entry{value: value}
}

// Bytes returns the encoded form, or nil for value-only entries.
func (e Entry) Bytes() []byte {
	return e.data
}

// Size returns the encoded size in bytes.
func (e Entry) Size() int {
	return len(e.data)
}

// Value returns the cached value. Encoded entries are decoded into generic
// JSON values; value-only entries return the stored value unchanged.
func (e Entry) Value() (any, error) {
	if e.data != nil {
		return codec.Decode(e.data)
	}
	return e.value, nil
}

// Into stores the cached value in dst, which must be a non-nil pointer.
func (e Entry) Into(dst any) error {
	if e.data != nil {
		return codec.DecodeInto(e.data, dst)
	}
	return codec.Convert(e.value, dst)
}

// withoutBytes drops the encoded form so the entry holds the live value only.
func (e Entry) withoutBytes() Entry {
	return Entry{value: e.value}
}
