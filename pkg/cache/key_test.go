package cache

import (
	"strings"
	"testing"

	"github.com/12dTa05/CoLy2/pkg/codec"
)

func TestKey_String(t *testing.T) {
	id, err := codec.ParseDocumentID("65f1c0ffee0000000000abcd")
	if err != nil {
		t.Fatalf("ParseDocumentID: %v", err)
	}

	tests := []struct {
		name string
		key  Key
		want string
	}{
		{
			name: "namespace only",
			key:  Key{Namespace: "public_videos"},
			want: "public_videos:",
		},
		{
			name: "positional args",
			key:  Key{Namespace: "p", Args: []any{1, 2}},
			want: "p:1:2",
		},
		{
			name: "positional and named args",
			key:  Key{Namespace: "p", Args: []any{1, 2}, Named: Named{"sort": "a"}},
			want: "p:1:2:sort=a",
		},
		{
			name: "named args sorted",
			key: Key{
				Namespace: "search_results",
				Args:      []any{"golang"},
				Named:     Named{"page": 1, "limit": 10, "category": "music"},
			},
			want: "search_results:golang:category=music:limit=10:page=1",
		},
		{
			name: "named args without positional",
			key:  Key{Namespace: "p", Named: Named{"x": true}},
			want: "p::x=true",
		},
		{
			name: "document reference rendered as hex",
			key:  Key{Namespace: "video_details", Args: []any{id}},
			want: "video_details:65f1c0ffee0000000000abcd",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.key.String(); got != tt.want {
				t.Errorf("Key.String() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestBuild_Determinism ensures identical logical arguments produce identical keys
func TestBuild_Determinism(t *testing.T) {
	first := Build("p", 1, 2, Named{"sort": "a", "page": 3})

	for i := 0; i < 10; i++ {
		if got := Build("p", 1, 2, Named{"sort": "a", "page": 3}); got != first {
			t.Errorf("Build() run %d = %v, want %v (not deterministic)", i, got, first)
		}
	}

	swapped := Named{}
	swapped["page"] = 3
	swapped["sort"] = "a"
	if got := Build("p", 1, 2, swapped); got != first {
		t.Errorf("Build() with swapped named order = %v, want %v", got, first)
	}
}

func TestBuild_PositionalOrderMatters(t *testing.T) {
	if Build("p", 1, 2) == Build("p", 2, 1) {
		t.Error("positional argument order must change the key")
	}
}

func TestBuild_NamedAnywhere(t *testing.T) {
	want := "p:1:2:a=x:b=y"
	got := Build("p", Named{"b": "y"}, 1, 2, Named{"a": "x"})
	if got != want {
		t.Errorf("Build() = %v, want %v", got, want)
	}
}

func TestBuild_OversizeCollapse(t *testing.T) {
	long := strings.Repeat("x", 250)

	key := Build("search_results", long, Named{"page": 1})
	if !strings.HasPrefix(key, "search_results:") {
		t.Fatalf("collapsed key %q does not start with namespace", key)
	}

	hash := strings.TrimPrefix(key, "search_results:")
	if len(hash) != 32 {
		t.Errorf("hash segment length = %d, want 32", len(hash))
	}
	if strings.Contains(hash, ":") {
		t.Errorf("hash segment %q should not contain separators", hash)
	}

	other := Build("search_results", long, Named{"page": 2})
	if other == key {
		t.Error("distinct oversize keys collapsed to the same value")
	}
	if len(other) != len(key) {
		t.Errorf("collapsed keys should be fixed width: %d vs %d", len(other), len(key))
	}
}

func TestBuild_BoundaryLength(t *testing.T) {
	// "n:" + 198 chars = exactly MaxKeyLength, kept verbatim
	arg := strings.Repeat("a", MaxKeyLength-2)
	if got := Build("n", arg); got != "n:"+arg {
		t.Errorf("key at MaxKeyLength should be kept verbatim, got %q", got)
	}

	if got := Build("n", arg+"a"); got == "n:"+arg+"a" {
		t.Error("key over MaxKeyLength should be collapsed")
	}
}
