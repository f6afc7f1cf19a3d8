package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/godeps/schoolsdk-go/pkg/apierror"
	"github.com/godeps/schoolsdk-go/pkg/client"
)

type note struct {
	ID   int64  `json:"id"`
	Text string `json:"text"`
}

func (n note) RecordID() int64        { return n.ID }
func (n note) SearchFields() []string { return []string{n.Text} }

// staticResolver always binds the first candidate.
type staticResolver struct{}

func (staticResolver) Resolve(_ context.Context, _ string, candidates []string) (string, error) {
	if len(candidates) == 0 {
		return "", fmt.Errorf("no candidates")
	}
	return candidates[0], nil
}

type call struct {
	method string
	path   string
	query  url.Values
}

// fakeDoer serves responses keyed by call index and records every call.
// An optional gate per index lets a test hold a response in flight.
type fakeDoer struct {
	mu      sync.Mutex
	calls   []call
	payload func(idx int, method, path string) (client.Response, error)
	gates   map[int]chan struct{}
}

func (f *fakeDoer) Do(ctx context.Context, method, path string, body any, query url.Values) (client.Response, error) {
	f.mu.Lock()
	n := len(f.calls)
	f.calls = append(f.calls, call{method: method, path: path, query: query})
	gate := f.gates[n]
	fn := f.payload
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return client.Response{}, ctx.Err()
		}
	}
	return fn(n, method, path)
}

func (f *fakeDoer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeDoer) setPayload(fn func(idx int, method, path string) (client.Response, error)) {
	f.mu.Lock()
	f.payload = fn
	f.mu.Unlock()
}

func (f *fakeDoer) waitForCalls(t *testing.T, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for f.callCount() < n {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d calls, have %d", n, f.callCount())
		}
		time.Sleep(time.Millisecond)
	}
}

func notesPayload(notes ...note) func(int, string, string) (client.Response, error) {
	raw, _ := json.Marshal(notes)
	return func(int, string, string) (client.Response, error) {
		return client.Response{Status: 200, Payload: raw}, nil
	}
}

func newNoteStore(t *testing.T, d client.Doer, bus *Bus) *Store[note] {
	t.Helper()
	s, err := New[note](d, staticResolver{}, bus, Options[note]{
		Resource:   "notes",
		Candidates: []string{"/notes/"},
	})
	require.NoError(t, err)
	return s
}

func TestStoreLoad(t *testing.T) {
	doer := &fakeDoer{payload: notesPayload(note{ID: 1, Text: "a"}, note{ID: 2, Text: "b"})}
	s := newNoteStore(t, doer, nil)

	got, err := s.Load(context.Background(), url.Values{"year": {"3"}})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.True(t, s.Loaded())
	assert.Equal(t, url.Values{"year": {"3"}}, doer.calls[0].query)
	assert.Equal(t, "GET", doer.calls[0].method)
	assert.Equal(t, "/notes/", doer.calls[0].path)
}

func TestStoreLoadErrorKeepsCache(t *testing.T) {
	doer := &fakeDoer{payload: notesPayload(note{ID: 1, Text: "a"})}
	s := newNoteStore(t, doer, nil)
	_, err := s.Load(context.Background(), nil)
	require.NoError(t, err)

	doer.setPayload(func(int, string, string) (client.Response, error) {
		return client.Response{}, apierror.New(apierror.KindServer, "client.do", errors.New("boom"))
	})

	_, err = s.Load(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, apierror.KindServer, apierror.KindOf(err))
	assert.Len(t, s.Records(), 1, "cache keeps last valid value")
}

func TestStoreStaleResponseDiscarded(t *testing.T) {
	gate := make(chan struct{})
	old, _ := json.Marshal([]note{{ID: 1, Text: "old"}})
	fresh, _ := json.Marshal([]note{{ID: 2, Text: "fresh"}})
	doer := &fakeDoer{
		gates: map[int]chan struct{}{0: gate},
		payload: func(idx int, _, _ string) (client.Response, error) {
			if idx == 0 {
				return client.Response{Status: 200, Payload: old}, nil
			}
			return client.Response{Status: 200, Payload: fresh}, nil
		},
	}
	s := newNoteStore(t, doer, nil)

	type result struct {
		notes []note
		err   error
	}
	done := make(chan result, 1)
	go func() {
		got, err := s.Load(context.Background(), nil)
		done <- result{got, err}
	}()

	// Wait for the first request to be in flight, then dispatch a newer one.
	doer.waitForCalls(t, 1)
	fresher, err := s.Load(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, fresher, 1)
	assert.Equal(t, int64(2), fresher[0].ID)

	close(gate)
	slow := <-done
	require.NoError(t, slow.err)
	require.Len(t, slow.notes, 1)
	assert.Equal(t, int64(2), slow.notes[0].ID, "superseded response returns the fresher cache")
	assert.Equal(t, int64(2), s.Records()[0].ID)
}

func TestStoreInvalidateDiscardsInFlight(t *testing.T) {
	gate := make(chan struct{})
	doer := &fakeDoer{
		gates:   map[int]chan struct{}{0: gate},
		payload: notesPayload(note{ID: 9, Text: "late"}),
	}
	s := newNoteStore(t, doer, nil)

	done := make(chan error, 1)
	go func() {
		_, err := s.Load(context.Background(), nil)
		done <- err
	}()
	doer.waitForCalls(t, 1)
	s.Invalidate()
	close(gate)
	require.NoError(t, <-done)
	assert.Empty(t, s.Records(), "invalidated response never lands")
}

func TestStoreCreate(t *testing.T) {
	var mu sync.Mutex
	records := []note{{ID: 1, Text: "a"}}
	doer := &fakeDoer{}
	doer.payload = func(_ int, method, _ string) (client.Response, error) {
		mu.Lock()
		defer mu.Unlock()
		if method == "POST" {
			records = append(records, note{ID: 2, Text: "b"})
			return client.Response{Status: 201, Payload: []byte(`{"id":2}`)}, nil
		}
		raw, _ := json.Marshal(records)
		return client.Response{Status: 200, Payload: raw}, nil
	}
	s := newNoteStore(t, doer, nil)
	_, err := s.Load(context.Background(), nil)
	require.NoError(t, err)

	require.NoError(t, s.Create(context.Background(), note{ID: 2, Text: "b"}))
	assert.Len(t, s.Records(), 2, "create reloads the canonical list")
}

func TestStoreCreateValidateShortCircuits(t *testing.T) {
	doer := &fakeDoer{payload: notesPayload()}
	s, err := New[note](doer, staticResolver{}, nil, Options[note]{
		Resource:   "notes",
		Candidates: []string{"/notes/"},
		Validate: func(n note) error {
			return apierror.Validation("notes.create")
		},
	})
	require.NoError(t, err)

	err = s.Create(context.Background(), note{ID: 1})
	require.Error(t, err)
	assert.Equal(t, apierror.KindValidation, apierror.KindOf(err))
	assert.Zero(t, doer.callCount(), "invalid payload never reaches the network")
}

func TestStoreRemoveOptimistic(t *testing.T) {
	doer := &fakeDoer{payload: notesPayload(note{ID: 1, Text: "a"}, note{ID: 2, Text: "b"}, note{ID: 3, Text: "c"})}
	s := newNoteStore(t, doer, nil)
	_, err := s.Load(context.Background(), nil)
	require.NoError(t, err)

	doer.setPayload(func(int, string, string) (client.Response, error) {
		return client.Response{Status: 204}, nil
	})

	require.NoError(t, s.Remove(context.Background(), 2))
	got := s.Records()
	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].ID)
	assert.Equal(t, int64(3), got[1].ID)
	assert.Equal(t, "/notes/2/", doer.calls[1].path)
	assert.Equal(t, "DELETE", doer.calls[1].method)
}

func TestStoreRemoveRollback(t *testing.T) {
	doer := &fakeDoer{payload: notesPayload(note{ID: 1, Text: "a"}, note{ID: 2, Text: "b"}, note{ID: 3, Text: "c"})}
	s := newNoteStore(t, doer, nil)
	_, err := s.Load(context.Background(), nil)
	require.NoError(t, err)

	doer.setPayload(func(int, string, string) (client.Response, error) {
		return client.Response{}, apierror.FromStatus("client.do", 500, nil)
	})

	err = s.Remove(context.Background(), 2)
	require.Error(t, err)
	got := s.Records()
	require.Len(t, got, 3)
	assert.Equal(t, int64(2), got[1].ID, "record returns to its original position")
}

func TestStoreRemoveSupersedesInFlightLoad(t *testing.T) {
	gate := make(chan struct{})
	full, _ := json.Marshal([]note{{ID: 1, Text: "a"}, {ID: 2, Text: "b"}})
	doer := &fakeDoer{
		gates: map[int]chan struct{}{1: gate},
		payload: func(_ int, method, _ string) (client.Response, error) {
			if method == "DELETE" {
				return client.Response{Status: 204}, nil
			}
			return client.Response{Status: 200, Payload: full}, nil
		},
	}
	s := newNoteStore(t, doer, nil)
	_, err := s.Load(context.Background(), nil)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := s.Load(context.Background(), nil)
		done <- err
	}()
	doer.waitForCalls(t, 2)
	require.NoError(t, s.Remove(context.Background(), 1))

	close(gate)
	require.NoError(t, <-done)
	got := s.Records()
	require.Len(t, got, 1)
	assert.Equal(t, int64(2), got[0].ID, "a pre-removal list must not reinstate the record")
}

func TestStoreRemoveUnknownID(t *testing.T) {
	doer := &fakeDoer{payload: notesPayload(note{ID: 1, Text: "a"})}
	s := newNoteStore(t, doer, nil)
	_, err := s.Load(context.Background(), nil)
	require.NoError(t, err)

	doer.setPayload(func(int, string, string) (client.Response, error) {
		return client.Response{}, apierror.FromStatus("client.do", 404, nil)
	})

	err = s.Remove(context.Background(), 99)
	require.Error(t, err)
	assert.Len(t, s.Records(), 1, "nothing to roll back for an unknown id")
}

func TestStoreSearch(t *testing.T) {
	doer := &fakeDoer{payload: notesPayload(
		note{ID: 1, Text: "Ali Hassan"},
		note{ID: 2, Text: "Sara Karimi"},
		note{ID: 3, Text: "HASSANI"},
	)}
	s := newNoteStore(t, doer, nil)
	_, err := s.Load(context.Background(), nil)
	require.NoError(t, err)

	assert.Len(t, s.Search("hassan"), 2)
	assert.Len(t, s.Search("  Sara "), 1)
	assert.Len(t, s.Search(""), 3, "empty term returns everything")
	assert.Empty(t, s.Search("zzz"))
}

func TestStoreReloadUsesLastFilter(t *testing.T) {
	doer := &fakeDoer{payload: notesPayload(note{ID: 1, Text: "a"})}
	s := newNoteStore(t, doer, nil)
	_, err := s.Load(context.Background(), url.Values{"class": {"7"}})
	require.NoError(t, err)

	require.NoError(t, s.Reload(context.Background()))
	assert.Equal(t, url.Values{"class": {"7"}}, doer.calls[1].query)
}
