// Package store implements the per-resource record stores and the
// cross-store invalidation bus. A store fetches, normalizes, caches and
// mutates one resource's list; the bus keeps every store caching the same
// backend resource in agreement after a mutation.
package store

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/godeps/schoolsdk-go/pkg/client"
	"github.com/godeps/schoolsdk-go/pkg/envelope"
)

// Record is the minimal surface a cached record must expose.
type Record interface {
	RecordID() int64
	// SearchFields returns the values client-side search matches against.
	SearchFields() []string
}

// Resolver locates the concrete path for a logical resource.
type Resolver interface {
	Resolve(ctx context.Context, resource string, candidates []string) (string, error)
}

// Options configures a store.
type Options[T Record] struct {
	// Resource is the logical resource identity, shared with the bus.
	Resource string
	// Candidates are the ordered candidate paths handed to the resolver.
	Candidates []string
	// Validate, when set, runs against every Create payload before any
	// network traffic.
	Validate func(T) error
}

// Store caches the canonical list for one resource variant.
//
// Concurrency model: network calls may be in flight concurrently; every
// outgoing load is tagged with a per-store monotonically increasing
// sequence number and a response is applied only while its number is still
// the highest dispatched. A slower, superseded response is discarded on
// arrival, so the cache never moves backwards.
type Store[T Record] struct {
	resource   string
	candidates []string
	client     client.Doer
	resolver   Resolver
	bus        *Bus
	validate   func(T) error

	mu         sync.Mutex
	cache      []T
	seq        uint64
	lastFilter url.Values
	loaded     bool
}

// New builds a store and registers it on the bus for its resource.
func New[T Record](d client.Doer, r Resolver, bus *Bus, opts Options[T]) (*Store[T], error) {
	if d == nil || r == nil {
		return nil, fmt.Errorf("store: client and resolver are required")
	}
	if strings.TrimSpace(opts.Resource) == "" {
		return nil, fmt.Errorf("store: resource name is required")
	}
	s := &Store[T]{
		resource:   opts.Resource,
		candidates: append([]string(nil), opts.Candidates...),
		client:     d,
		resolver:   r,
		bus:        bus,
		validate:   opts.Validate,
	}
	if bus != nil {
		bus.Subscribe(opts.Resource, s)
	}
	return s, nil
}

// Resource returns the logical resource identity.
func (s *Store[T]) Resource() string { return s.resource }

// Load fetches the list (optionally filtered), normalizes it and replaces
// the cache. If a newer load was dispatched while this one was in flight,
// the response is discarded and the fresher cache is returned. On any
// failure the cache keeps its last valid value.
func (s *Store[T]) Load(ctx context.Context, filter url.Values) ([]T, error) {
	path, err := s.resolver.Resolve(ctx, s.resource, s.candidates)
	if err != nil {
		return nil, fmt.Errorf("store %s: %w", s.resource, err)
	}

	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.lastFilter = cloneValues(filter)
	s.mu.Unlock()

	resp, err := s.client.Do(ctx, "GET", path, nil, filter)
	if err != nil {
		return nil, fmt.Errorf("store %s: load: %w", s.resource, err)
	}
	list := envelope.Normalize(resp.Payload)
	records, err := envelope.Decode[T](list)
	if err != nil {
		return nil, fmt.Errorf("store %s: decode: %w", s.resource, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.seq {
		// Superseded while in flight; a fresher request owns the cache.
		return snapshot(s.cache), nil
	}
	s.cache = records
	s.loaded = true
	return snapshot(s.cache), nil
}

// Reload re-runs Load with the last-used filter. The bus calls this on
// invalidation.
func (s *Store[T]) Reload(ctx context.Context) error {
	s.mu.Lock()
	filter := cloneValues(s.lastFilter)
	s.mu.Unlock()
	_, err := s.Load(ctx, filter)
	return err
}

// Invalidate bumps the sequence counter, discarding any response still in
// flight. Selection changes call this so a slow response for the previous
// selection can never overwrite the new one.
func (s *Store[T]) Invalidate() {
	s.mu.Lock()
	s.seq++
	s.mu.Unlock()
}

// Records returns the current cache snapshot.
func (s *Store[T]) Records() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return snapshot(s.cache)
}

// Loaded reports whether at least one load has been applied.
func (s *Store[T]) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// Create validates payload locally, posts it, reloads this store and
// publishes an invalidation for the resource. On failure the cache is left
// untouched and the typed error propagates.
func (s *Store[T]) Create(ctx context.Context, payload T) error {
	if s.validate != nil {
		if err := s.validate(payload); err != nil {
			return err
		}
	}
	path, err := s.resolver.Resolve(ctx, s.resource, s.candidates)
	if err != nil {
		return fmt.Errorf("store %s: %w", s.resource, err)
	}
	if _, err := s.client.Do(ctx, "POST", path, payload, nil); err != nil {
		return fmt.Errorf("store %s: create: %w", s.resource, err)
	}
	if err := s.Reload(ctx); err != nil {
		return err
	}
	if s.bus != nil {
		s.bus.PublishFrom(ctx, s.resource, s)
	}
	return nil
}

// Remove optimistically drops the record from the cache, then issues the
// DELETE. If the backend rejects it, the record is reinserted at its
// original position and the error surfaces.
func (s *Store[T]) Remove(ctx context.Context, id int64) error {
	path, err := s.resolver.Resolve(ctx, s.resource, s.candidates)
	if err != nil {
		return fmt.Errorf("store %s: %w", s.resource, err)
	}

	s.mu.Lock()
	idx := -1
	var removed T
	for i, rec := range s.cache {
		if rec.RecordID() == id {
			idx = i
			removed = rec
			break
		}
	}
	if idx >= 0 {
		s.cache = append(s.cache[:idx:idx], s.cache[idx+1:]...)
		// A list response still in flight predates the removal and
		// would reinstate the record; supersede it.
		s.seq++
	}
	s.mu.Unlock()

	target := fmt.Sprintf("%s%d/", path, id)
	if _, err := s.client.Do(ctx, "DELETE", target, nil, nil); err != nil {
		if idx >= 0 {
			s.mu.Lock()
			at := idx
			if at > len(s.cache) {
				at = len(s.cache)
			}
			s.cache = append(s.cache[:at], append([]T{removed}, s.cache[at:]...)...)
			s.mu.Unlock()
		}
		return fmt.Errorf("store %s: remove %d: %w", s.resource, id, err)
	}
	if s.bus != nil {
		s.bus.PublishFrom(ctx, s.resource, s)
	}
	return nil
}

// Search filters the cache with a case-insensitive substring match over
// each record's search fields. It recomputes on every call and never
// touches the backend.
func (s *Store[T]) Search(term string) []T {
	records := s.Records()
	needle := strings.ToLower(strings.TrimSpace(term))
	if needle == "" {
		return records
	}
	out := make([]T, 0, len(records))
	for _, rec := range records {
		for _, field := range rec.SearchFields() {
			if strings.Contains(strings.ToLower(field), needle) {
				out = append(out, rec)
				break
			}
		}
	}
	return out
}

func snapshot[T any](in []T) []T {
	out := make([]T, len(in))
	copy(out, in)
	return out
}

func cloneValues(in url.Values) url.Values {
	if in == nil {
		return nil
	}
	out := make(url.Values, len(in))
	for k, vs := range in {
		out[k] = append([]string(nil), vs...)
	}
	return out
}

var _ Reloader = (*Store[dummyRecord])(nil)

// dummyRecord satisfies Record for the interface assertion above.
type dummyRecord struct{}

func (dummyRecord) RecordID() int64        { return 0 }
func (dummyRecord) SearchFields() []string { return nil }
