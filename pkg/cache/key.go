package cache

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// MaxKeyLength is the longest key kept verbatim. Longer keys collapse to
// <namespace>:<md5 of full key>.
const MaxKeyLength = 200

// Named carries keyword arguments for key derivation. Order of insertion is
// irrelevant: names are sorted before rendering.
type Named map[string]any

// Key identifies a cacheable computation instance.
type Key struct {
	// Namespace is the key prefix (e.g., "video_details")
	Namespace string

	// Args are positional arguments, rendered in call order
	Args []any

	// Named are keyword arguments, rendered sorted by name as name=value
	Named Named
}

// String generates a deterministic cache key string.
// Format: namespace:arg1:arg2[:kw1=v1:kw2=v2]
//
// Example:
//
//	search_results:golang:limit=10:page=1
func (k Key) String() string {
	args := make([]string, len(k.Args))
	for i, arg := range k.Args {
		args[i] = render(arg)
	}
	key := k.Namespace + ":" + strings.Join(args, ":")

	// Add named args (sorted for determinism)
	if len(k.Named) > 0 {
		names := make([]string, 0, len(k.Named))
		for name := range k.Named {
			names = append(names, name)
		}
		sort.Strings(names)

		pairs := make([]string, len(names))
		for i, name := range names {
			pairs[i] = name + "=" + render(k.Named[name])
		}
		key += ":" + strings.Join(pairs, ":")
	}

	if len(key) > MaxKeyLength {
		sum := md5.Sum([]byte(key))
		key = k.Namespace + ":" + hex.EncodeToString(sum[:])
	}

	return key
}

// Build derives a key from a namespace and arguments. Any Named argument is
// merged into the keyword set regardless of its position; every other
// argument is positional.
func Build(namespace string, args ...any) string {
	return NewKey(namespace, args...).String()
}

// NewKey splits args into positional and named parts.
func NewKey(namespace string, args ...any) Key {
	key := Key{Namespace: namespace}
	for _, arg := range args {
		named, ok := arg.(Named)
		if !ok {
			key.Args = append(key.Args, arg)
			continue
		}
		if key.Named == nil {
			key.Named = make(Named, len(named))
		}
		for name, value := range named {
			key.Named[name] = value
		}
	}
	return key
}

func render(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
