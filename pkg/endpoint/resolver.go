// Package endpoint discovers which concrete path serves a logical resource.
// Backend path naming is unstable across deployments, so each resource names
// an ordered list of candidate paths; the resolver probes them once per
// session and memoizes the first one that is not 404.
package endpoint

import (
	"context"
	"log"
	"net/http"
	"sync"

	"github.com/godeps/schoolsdk-go/pkg/apierror"
	"github.com/godeps/schoolsdk-go/pkg/client"
)

// Resolver memoizes logical-resource → concrete-path bindings for the
// current session. Bindings are cleared on Reset; a fresh session may face a
// different backend deployment.
type Resolver struct {
	client client.Doer

	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	mu          sync.Mutex
	resolved    bool
	path        string
	unavailable bool
}

// NewResolver builds a resolver probing through d.
func NewResolver(d client.Doer) *Resolver {
	return &Resolver{
		client:  d,
		entries: make(map[string]*entry),
	}
}

// Resolve returns the bound path for resource, probing candidates strictly
// in order on first use. A 404-class outcome moves to the next candidate.
// Any other response, including validation or server failures, binds the
// candidate, since the route evidently exists. When every candidate is 404
// the resource is marked unavailable for the rest of the session and every
// call fails fast with KindUnavailable.
func (r *Resolver) Resolve(ctx context.Context, resource string, candidates []string) (string, error) {
	e := r.entryFor(resource)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.unavailable {
		return "", unavailable(resource)
	}
	if e.resolved {
		return e.path, nil
	}
	if len(candidates) == 0 {
		e.unavailable = true
		return "", unavailable(resource)
	}

	for _, candidate := range candidates {
		_, err := r.client.Do(ctx, http.MethodGet, candidate, nil, nil)
		if err != nil && apierror.IsNotFound(err) {
			continue
		}
		if err != nil && !bindsDespiteError(err) {
			// Transport-level failures say nothing about routing;
			// leave the resource unresolved so a later call can
			// probe again.
			return "", err
		}
		e.resolved = true
		e.path = candidate
		if err != nil {
			log.Printf("endpoint: bound %s to %s despite %s outcome", resource, candidate, apierror.KindOf(err))
		}
		return candidate, nil
	}

	e.unavailable = true
	return "", unavailable(resource)
}

// Binding reports the memoized path for resource, if any.
func (r *Resolver) Binding(resource string) (string, bool) {
	e := r.entryFor(resource)
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.resolved {
		return "", false
	}
	return e.path, true
}

// Reset drops every binding and unavailable mark. Wired to session state
// changes: logout or a new login may land on a different deployment.
func (r *Resolver) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = make(map[string]*entry)
}

func (r *Resolver) entryFor(resource string) *entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[resource]
	if !ok {
		e = &entry{}
		r.entries[resource] = e
	}
	return e
}

// bindsDespiteError reports whether a probe failure still proves the route
// exists. Auth, validation, conflict and server failures all come from the
// application behind the path; network-level failures do not.
func bindsDespiteError(err error) bool {
	switch apierror.KindOf(err) {
	case apierror.KindAuth, apierror.KindValidation, apierror.KindConflict, apierror.KindServer:
		return true
	default:
		return false
	}
}

func unavailable(resource string) *apierror.Error {
	return &apierror.Error{Kind: apierror.KindUnavailable, Op: resource}
}
