package resilience

import "golang.org/x/sync/singleflight"

// Flight collapses concurrent calls for the same key into one execution and
// hands every caller the same typed result.
type Flight[T any] struct {
	group singleflight.Group
}

// Do runs fn once per key among concurrent callers. shared reports whether
// the result was handed to more than one caller.
func (f *Flight[T]) Do(key string, fn func() (T, error)) (value T, shared bool, err error) {
	out, err, shared := f.group.Do(key, func() (any, error) {
		return fn()
	})
	if out != nil {
		value = out.(T)
	}
	return value, shared, err
}

// Forget drops key so the next Do starts a fresh call.
func (f *Flight[T]) Forget(key string) {
	f.group.Forget(key)
}
