package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"scbulk/internal/models"
	"scbulk/internal/soundcloud"
)

func TestMemoryCache_LazyExpiry(t *testing.T) {
	current := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c := NewMemoryCache()
	c.now = func() time.Time { return current }

	c.Put("key", "value", time.Minute)

	entry, ok := c.Get("key")
	if !ok {
		t.Fatal("expected fresh entry to be present")
	}
	if entry.Value != "value" {
		t.Errorf("unexpected value %v", entry.Value)
	}

	// One second before expiry: still present.
	current = current.Add(59 * time.Second)
	if _, ok := c.Get("key"); !ok {
		t.Error("entry expired early")
	}

	// At the expiry instant the entry is treated as absent.
	current = current.Add(time.Second)
	if _, ok := c.Get("key"); ok {
		t.Error("expected entry to be absent at expiry instant")
	}

	// A new Put for the same key overwrites the stale entry.
	c.Put("key", "fresh", time.Minute)
	entry, ok = c.Get("key")
	if !ok || entry.Value != "fresh" {
		t.Errorf("expected overwritten entry, got %v (%v)", entry.Value, ok)
	}
}

func TestMemoryCache_MissingKey(t *testing.T) {
	c := NewMemoryCache()
	if _, ok := c.Get("absent"); ok {
		t.Error("expected miss for unknown key")
	}
}

func TestResolver_CachesWithinTTL(t *testing.T) {
	var upstreamCalls int32
	fn := func(ctx context.Context, cred *soundcloud.Credential, permalink string) (*soundcloud.Resource, error) {
		atomic.AddInt32(&upstreamCalls, 1)
		return &soundcloud.Resource{
			Kind:     "playlist",
			Playlist: &models.Playlist{ID: 99, Title: "Mix"},
		}, nil
	}

	current := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	mem := NewMemoryCache()
	mem.now = func() time.Time { return current }

	resolver := NewResolver(mem, fn, time.Minute)
	cred := &soundcloud.Credential{AccessToken: "token"}
	ctx := context.Background()

	for range 3 {
		res, err := resolver.Resolve(ctx, cred, "https://soundcloud.com/artist/sets/mix")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Playlist.ID != 99 {
			t.Errorf("unexpected resource %+v", res)
		}
	}

	if upstreamCalls != 1 {
		t.Errorf("expected a single upstream call within TTL, got %d", upstreamCalls)
	}

	// Equivalent spellings of the URL hit the same cache entry.
	if _, err := resolver.Resolve(ctx, cred, "HTTPS://SoundCloud.com/artist/sets/mix/"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if upstreamCalls != 1 {
		t.Errorf("normalized variants must share an entry, got %d upstream calls", upstreamCalls)
	}

	// After the TTL the next lookup goes upstream again.
	current = current.Add(2 * time.Minute)
	if _, err := resolver.Resolve(ctx, cred, "https://soundcloud.com/artist/sets/mix"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if upstreamCalls != 2 {
		t.Errorf("expected re-resolve after expiry, got %d upstream calls", upstreamCalls)
	}
}

func TestResolver_ErrorsAreNotCached(t *testing.T) {
	var upstreamCalls int32
	fn := func(ctx context.Context, cred *soundcloud.Credential, permalink string) (*soundcloud.Resource, error) {
		if atomic.AddInt32(&upstreamCalls, 1) == 1 {
			return nil, errors.New("upstream down")
		}
		return &soundcloud.Resource{Kind: "track", Track: &models.Track{ID: 5}}, nil
	}

	resolver := NewResolver(NewMemoryCache(), fn, time.Minute)
	cred := &soundcloud.Credential{AccessToken: "token"}
	ctx := context.Background()

	if _, err := resolver.Resolve(ctx, cred, "https://soundcloud.com/a/b"); err == nil {
		t.Fatal("expected first resolve to fail")
	}

	res, err := resolver.Resolve(ctx, cred, "https://soundcloud.com/a/b")
	if err != nil {
		t.Fatalf("expected retry to succeed: %v", err)
	}
	if res.Track.ID != 5 {
		t.Errorf("unexpected resource %+v", res)
	}
	if upstreamCalls != 2 {
		t.Errorf("expected 2 upstream calls, got %d", upstreamCalls)
	}
}

func TestResolver_CoalescesConcurrentLookups(t *testing.T) {
	var upstreamCalls int32
	started := make(chan struct{})
	release := make(chan struct{})

	fn := func(ctx context.Context, cred *soundcloud.Credential, permalink string) (*soundcloud.Resource, error) {
		if atomic.AddInt32(&upstreamCalls, 1) == 1 {
			close(started)
		}
		<-release
		return &soundcloud.Resource{Kind: "user", User: &models.User{ID: 7}}, nil
	}

	resolver := NewResolver(NewMemoryCache(), fn, time.Minute)
	cred := &soundcloud.Credential{AccessToken: "token"}

	var wg sync.WaitGroup
	results := make([]*soundcloud.Resource, 4)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := resolver.Resolve(context.Background(), cred, "https://soundcloud.com/artist")
			if err != nil {
				t.Errorf("goroutine %d: %v", i, err)
				return
			}
			results[i] = res
		}(i)
	}

	<-started
	close(release)
	wg.Wait()

	if upstreamCalls != 1 {
		t.Errorf("expected concurrent lookups to share one upstream call, got %d", upstreamCalls)
	}
	for i, res := range results {
		if res == nil || res.User.ID != 7 {
			t.Errorf("goroutine %d got %+v", i, res)
		}
	}
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercases scheme and host", "HTTPS://SoundCloud.com/Artist", "https://soundcloud.com/Artist"},
		{"strips default https port", "https://soundcloud.com:443/artist", "https://soundcloud.com/artist"},
		{"strips default http port", "http://soundcloud.com:80/artist", "http://soundcloud.com/artist"},
		{"strips trailing slash", "https://soundcloud.com/artist/", "https://soundcloud.com/artist"},
		{"strips query and fragment", "https://soundcloud.com/artist?utm=x#top", "https://soundcloud.com/artist"},
		{"trims whitespace", "  https://soundcloud.com/artist  ", "https://soundcloud.com/artist"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeURL(tt.in); got != tt.want {
				t.Errorf("NormalizeURL(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
