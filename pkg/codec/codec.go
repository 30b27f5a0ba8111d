// Package codec converts cached values to and from their stored byte form.
//
// The wire format is JSON compressed with gzip. Document references
// (DocumentID, uuid.UUID) are rewritten to their canonical string form before
// serialization so that encoding never fails merely because a value carries
// a reference.
package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"reflect"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
)

// Encode canonicalizes v, serializes it to JSON and gzip-compresses the result.
func Encode(v any) ([]byte, error) {
	payload, err := json.Marshal(Canonicalize(v))
	if err != nil {
		return nil, &EncodeError{Err: err}
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(payload); err != nil {
		return nil, &EncodeError{Err: fmt.Errorf("compress: %w", err)}
	}
	if err := zw.Close(); err != nil {
		return nil, &EncodeError{Err: fmt.Errorf("compress: %w", err)}
	}

	return buf.Bytes(), nil
}

// Decode reverses Encode into generic JSON values
// (map[string]any, []any, string, float64, bool, nil).
func Decode(data []byte) (any, error) {
	var v any
	if err := DecodeInto(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// DecodeInto reverses Encode into dst, which must be a non-nil pointer.
func DecodeInto(data []byte, dst any) error {
	payload, err := decompress(data)
	if err != nil {
		return &DecodeError{Err: err}
	}
	if err := json.Unmarshal(payload, dst); err != nil {
		return &DecodeError{Err: err}
	}
	return nil
}

// Convert copies src into dst, which must be a non-nil pointer. When src is
// directly assignable to *dst the value is assigned as-is; otherwise it is
// round-tripped through JSON.
func Convert(src, dst any) error {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return &DecodeError{Err: fmt.Errorf("destination must be a non-nil pointer, got %T", dst)}
	}

	target := rv.Elem()
	if src == nil {
		target.Set(reflect.Zero(target.Type()))
		return nil
	}

	sv := reflect.ValueOf(src)
	if sv.Type().AssignableTo(target.Type()) {
		target.Set(sv)
		return nil
	}

	payload, err := json.Marshal(Canonicalize(src))
	if err != nil {
		return &DecodeError{Err: err}
	}
	if err := json.Unmarshal(payload, dst); err != nil {
		return &DecodeError{Err: err}
	}
	return nil
}

// Canonicalize returns v with every document reference replaced by its
// canonical string form, recursing through maps and slices. Structs are left
// untouched: DocumentID implements encoding.TextMarshaler, so references held
// in struct fields serialize as strings on their own.
func Canonicalize(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case DocumentID:
		return val.Hex()
	case *DocumentID:
		if val == nil {
			return nil
		}
		return val.Hex()
	case uuid.UUID:
		return val.String()
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = Canonicalize(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = Canonicalize(item)
		}
		return out
	case string, bool, float64, float32, int, int64, int32, uint, uint64, uint32, []byte, json.RawMessage:
		return v
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return v
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = Canonicalize(iter.Value().Interface())
		}
		return out
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return v
		}
		out := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out[i] = Canonicalize(rv.Index(i).Interface())
		}
		return out
	default:
		return v
	}
}

func decompress(data []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decompress: %w", err)
	}
	defer zr.Close()

	payload, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("decompress: %w", err)
	}
	return payload, nil
}
