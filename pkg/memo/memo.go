// Package memo provides cache-aside memoization of expensive lookups.
//
// A wrapped function is keyed by namespace and arguments (see cache.Build).
// On a hit the cached value is returned without calling the function; on a
// miss the function runs once per key across concurrent callers and its
// result is cached unless it is nil or the call failed.
//
//	m := memo.New(c, mon, logger)
//	trending := memo.Wrap(m, "trending", 30*time.Minute,
//		func(ctx context.Context, args ...any) ([]Video, error) {
//			return source.Trending(ctx, args[0].(string), args[1].(int))
//		})
//
//	videos, err := trending(ctx, "music", 20)
package memo

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/12dTa05/CoLy2/pkg/cache"
	"github.com/12dTa05/CoLy2/pkg/monitor"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Cache is the subset of the cache facade the memoizer needs.
type Cache interface {
	GetInto(ctx context.Context, key string, dst any) bool
	Set(ctx context.Context, key string, value any, ttl time.Duration) bool
}

// Func is a memoizable lookup.
type Func[T any] func(ctx context.Context, args ...any) (T, error)

// KeyFunc derives a cache key from call arguments.
type KeyFunc func(args ...any) string

// Memoizer performs cache-aside lookups against a shared cache.
type Memoizer struct {
	cache   Cache
	monitor *monitor.Monitor
	group   singleflight.Group
	logger  zerolog.Logger
}

// New creates a memoizer. mon may be nil.
func New(c Cache, mon *monitor.Monitor, logger zerolog.Logger) *Memoizer {
	if c == nil {
		panic("cache cannot be nil")
	}
	return &Memoizer{
		cache:   c,
		monitor: mon,
		logger:  logger,
	}
}

type options struct {
	keyFunc   KeyFunc
	operation string
}

// Option configures a wrapped function.
type Option func(*options)

// WithKeyFunc replaces the default namespace:args key derivation.
func WithKeyFunc(fn KeyFunc) Option {
	return func(o *options) {
		o.keyFunc = fn
	}
}

// WithOperation sets the name recorded in the performance monitor. The
// namespace is used by default.
func WithOperation(name string) Option {
	return func(o *options) {
		o.operation = name
	}
}

// Wrap returns fn decorated with cache-aside behaviour under namespace.
// A non-positive ttl selects the cache default.
func Wrap[T any](m *Memoizer, namespace string, ttl time.Duration, fn Func[T], opts ...Option) Func[T] {
	o := options{operation: namespace}
	for _, opt := range opts {
		opt(&o)
	}

	keyFor := o.keyFunc
	if keyFor == nil {
		keyFor = func(args ...any) string {
			return cache.Build(namespace, args...)
		}
	}

	return func(ctx context.Context, args ...any) (T, error) {
		return Get(ctx, m, keyFor(args...), ttl, func(ctx context.Context) (T, error) {
			return fn(ctx, args...)
		}, WithOperation(o.operation))
	}
}

// Get returns the value cached under key, computing and caching it with fn
// on a miss. Concurrent misses on the same key share one call of fn, which
// is not cancelled when one of the waiting callers gives up. The
// monitor records the call under the key's namespace unless WithOperation is
// given.
func Get[T any](ctx context.Context, m *Memoizer, key string, ttl time.Duration, fn func(ctx context.Context) (T, error), opts ...Option) (T, error) {
	namespace, _, _ := strings.Cut(key, ":")
	o := options{operation: namespace}
	for _, opt := range opts {
		opt(&o)
	}

	start := time.Now()

	var cached T
	if m.cache.GetInto(ctx, key, &cached) {
		m.logger.Debug().Str("key", key).Msg("Memo cache hit")
		m.record(o.operation, start, true)
		return cached, nil
	}

	m.logger.Debug().Str("key", key).Msg("Memo cache miss")

	// The shared call outlives any single caller: it keeps ctx's values but
	// not its cancellation, and each caller stops waiting on its own ctx.
	shared := context.WithoutCancel(ctx)
	ch := m.group.DoChan(key, func() (interface{}, error) {
		result, err := fn(shared)
		if err != nil {
			return result, err
		}

		if isAbsent(result) {
			return result, nil
		}

		if !m.cache.Set(shared, key, result, ttl) {
			m.logger.Warn().Str("key", key).Msg("Memo result not cached")
		}
		return result, nil
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		m.record(o.operation+"_error", start, false)
		var zero T
		return zero, ctx.Err()
	}

	v, err := res.Val, res.Err
	if err != nil {
		m.record(o.operation+"_error", start, false)
		var zero T
		return zero, err
	}
	if res.Shared {
		m.logger.Debug().Str("key", key).Msg("Memo miss shared with in-flight call")
	}

	m.record(o.operation, start, false)

	result, ok := v.(T)
	if !ok && v != nil {
		return result, fmt.Errorf("memo: unexpected result type %T for key %s", v, key)
	}
	return result, nil
}

func (m *Memoizer) record(operation string, start time.Time, hit bool) {
	if m.monitor == nil {
		return
	}
	m.monitor.RecordMetric(operation, time.Since(start), hit)
}

// isAbsent reports whether v is nil or a nil pointer, map, slice or interface.
func isAbsent(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Chan, reflect.Func:
		return rv.IsNil()
	}
	return false
}
