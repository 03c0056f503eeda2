package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tendant/simple-cms/pkg/simplecms"
)

// FromURL builds a TreeCache from a CACHE_URL value. An empty url disables
// caching and returns nil.
//
//	""                     no cache
//	memory://              in-process cache
//	redis://host:6379/0    shared Redis cache
func FromURL(ctx context.Context, url, prefix string, ttl time.Duration) (simplecms.TreeCache, error) {
	switch {
	case url == "":
		return nil, nil
	case strings.HasPrefix(url, "memory://"):
		return NewMemory(ttl), nil
	case strings.HasPrefix(url, "redis://"), strings.HasPrefix(url, "rediss://"):
		r, err := NewRedisFromURL(ctx, url, prefix, ttl)
		if err != nil {
			return nil, err
		}
		return r, nil
	default:
		return nil, fmt.Errorf("unsupported cache url %q", url)
	}
}
