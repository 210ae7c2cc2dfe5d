package cache

import (
	"context"
	"time"
)

// NullCache discards every write, so each graph and render is recomputed.
// It backs `[cache] type = "null"`, the --no-cache flag and runners
// created without a cache.
type NullCache struct{}

var _ Cache = (*NullCache)(nil)

// NewNullCache returns a cache that stores nothing.
func NewNullCache() Cache { return &NullCache{} }

func (*NullCache) Get(context.Context, string) ([]byte, bool, error)        { return nil, false, nil }
func (*NullCache) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (*NullCache) Delete(context.Context, string) error                     { return nil }
func (*NullCache) Close() error                                             { return nil }
