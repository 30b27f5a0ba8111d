package codec

import (
	"errors"
	"fmt"
)

// ErrNotCacheable matches every *EncodeError via errors.Is.
var ErrNotCacheable = errors.New("value not cacheable")

// EncodeError reports a value that could not be turned into its stored form.
type EncodeError struct {
	Err error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("codec encode: %v", e.Err)
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}

func (e *EncodeError) Is(target error) bool {
	return target == ErrNotCacheable
}

// DecodeError reports stored bytes that could not be turned back into a value.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("codec decode: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
