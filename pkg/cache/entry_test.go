package cache

import (
	"errors"
	"testing"

	"github.com/12dTa05/CoLy2/pkg/codec"
)

type testPage struct {
	Videos []string `json:"videos"`
	Total  int      `json:"total"`
}

func TestNewEntry(t *testing.T) {
	tests := []struct {
		name    string
		value   any
		wantErr bool
	}{
		{name: "document", value: map[string]any{"title": "clip"}},
		{name: "struct", value: testPage{Videos: []string{"a"}, Total: 1}},
		{name: "reference", value: codec.NewDocumentID()},
		{name: "channel", value: make(chan struct{}), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry, err := NewEntry(tt.value)
			if tt.wantErr {
				var encErr *codec.EncodeError
				if !errors.As(err, &encErr) {
					t.Fatalf("NewEntry() error = %v, want EncodeError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewEntry() error = %v", err)
			}
			if entry.Size() == 0 {
				t.Error("NewEntry() produced no encoded bytes")
			}
		})
	}
}

func TestEntry_Into(t *testing.T) {
	page := &testPage{Videos: []string{"a", "b"}, Total: 2}

	entry, err := NewEntry(page)
	if err != nil {
		t.Fatalf("NewEntry() error = %v", err)
	}

	t.Run("encoded", func(t *testing.T) {
		var got *testPage
		if err := EncodedEntry(entry.Bytes()).Into(&got); err != nil {
			t.Fatalf("Into() error = %v", err)
		}
		if got.Total != 2 || len(got.Videos) != 2 {
			t.Errorf("Into() = %+v, want %+v", got, page)
		}
	})

	t.Run("value only", func(t *testing.T) {
		var got *testPage
		if err := entry.withoutBytes().Into(&got); err != nil {
			t.Fatalf("Into() error = %v", err)
		}
		if got != page {
			t.Errorf("Into() should return the stored pointer for value entries")
		}
	})
}

func TestEntry_Value(t *testing.T) {
	entry, err := NewEntry(map[string]any{"total": 3})
	if err != nil {
		t.Fatalf("NewEntry() error = %v", err)
	}

	decoded, err := EncodedEntry(entry.Bytes()).Value()
	if err != nil {
		t.Fatalf("Value() error = %v", err)
	}
	doc, ok := decoded.(map[string]any)
	if !ok || doc["total"] != 3.0 {
		t.Errorf("Value() = %#v, want map with total=3", decoded)
	}

	raw, err := ValueEntry("plain").Value()
	if err != nil || raw != "plain" {
		t.Errorf("ValueEntry.Value() = %v, %v", raw, err)
	}
}

func TestEntry_CorruptedBytes(t *testing.T) {
	_, err := EncodedEntry([]byte("garbage")).Value()
	var decErr *codec.DecodeError
	if !errors.As(err, &decErr) {
		t.Errorf("Value() error = %v, want DecodeError", err)
	}
}
