// Package lock provides per-key exclusive locks used to serialise booking
// attempts that touch the same user or stand. Attempts on disjoint keys
// never wait on each other.
package lock

import (
	"context"
	"sort"
	"sync"
)

// Locker acquires every key or none. The returned function releases
// the keys; calling it more than once is a no-op.
type Locker interface {
	Lock(ctx context.Context, keys ...string) (unlock func(), err error)
}

// normalize sorts and de-duplicates keys. Acquiring in a global order
// keeps two multi-key callers from deadlocking each other.
func normalize(keys []string) []string {
	out := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// lockAll acquires keys in order through acquire and unwinds on failure.
func lockAll(ctx context.Context, keys []string, acquire func(context.Context, string) (func(), error)) (func(), error) {
	keys = normalize(keys)
	releases := make([]func(), 0, len(keys))
	unlock := func() {
		for i := len(releases) - 1; i >= 0; i-- {
			releases[i]()
		}
	}
	for _, k := range keys {
		release, err := acquire(ctx, k)
		if err != nil {
			unlock()
			return nil, err
		}
		releases = append(releases, release)
	}
	var once sync.Once
	return func() { once.Do(unlock) }, nil
}
