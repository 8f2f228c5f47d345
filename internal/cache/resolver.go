package cache

import (
	"context"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"scbulk/internal/soundcloud"
)

const defaultResolveTTL = 5 * time.Minute

// ResolveFunc is the upstream resolve call the Resolver memoizes.
type ResolveFunc func(ctx context.Context, cred *soundcloud.Credential, permalink string) (*soundcloud.Resource, error)

// Resolver memoizes permalink resolution. Concurrent first-time lookups of the
// same normalized URL are coalesced into one upstream call via singleflight;
// later lookups inside the TTL are served from the cache.
type Resolver struct {
	cache   Cache
	resolve ResolveFunc
	ttl     time.Duration
	group   singleflight.Group
}

// NewResolver creates a Resolver over the given cache and upstream call. A
// non-positive ttl falls back to five minutes.
func NewResolver(c Cache, fn ResolveFunc, ttl time.Duration) *Resolver {
	if ttl <= 0 {
		ttl = defaultResolveTTL
	}
	return &Resolver{
		cache:   c,
		resolve: fn,
		ttl:     ttl,
	}
}

// Resolve returns the resource behind a permalink URL, from cache when fresh.
func (r *Resolver) Resolve(ctx context.Context, cred *soundcloud.Credential, permalink string) (*soundcloud.Resource, error) {
	key := NormalizeURL(permalink)

	if entry, ok := r.cache.Get(key); ok {
		if res, ok := entry.Value.(*soundcloud.Resource); ok {
			return res, nil
		}
	}

	value, err, _ := r.group.Do(key, func() (any, error) {
		// Re-check under the flight: another caller may have just filled it.
		if entry, ok := r.cache.Get(key); ok {
			if res, ok := entry.Value.(*soundcloud.Resource); ok {
				return res, nil
			}
		}

		res, err := r.resolve(ctx, cred, permalink)
		if err != nil {
			return nil, err
		}

		r.cache.Put(key, res, r.ttl)
		return res, nil
	})
	if err != nil {
		return nil, err
	}

	return value.(*soundcloud.Resource), nil
}

// NormalizeURL canonicalizes a permalink for use as a cache key: lowercase
// scheme/host, no default ports, no trailing slash, no query or fragment.
func NormalizeURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return strings.TrimSpace(raw)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Host = strings.TrimSuffix(u.Host, ":443")
	u.Host = strings.TrimSuffix(u.Host, ":80")
	u.Path = strings.TrimSuffix(u.Path, "/")
	u.RawQuery = ""
	u.Fragment = ""

	return u.String()
}
