// Package school is the top-level entry point. It wires the HTTP client,
// session manager, endpoint resolver, invalidation bus and the per-resource
// stores into one handle an application drives.
package school

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/godeps/schoolsdk-go/pkg/catalog"
	"github.com/godeps/schoolsdk-go/pkg/client"
	"github.com/godeps/schoolsdk-go/pkg/endpoint"
	"github.com/godeps/schoolsdk-go/pkg/record"
	"github.com/godeps/schoolsdk-go/pkg/session"
	"github.com/godeps/schoolsdk-go/pkg/store"
)

// School owns one backend connection and every store built on it.
//
// Discipline and DisciplineStats are two independent views over the same
// backend resource; a mutation through either reloads the other via the
// bus.
type School struct {
	client   *client.Client
	sess     *session.Manager
	resolver *endpoint.Resolver
	bus      *store.Bus
	catalog  catalog.Catalog

	Students        *store.Store[record.Student]
	Discipline      *store.Store[record.DisciplineRecord]
	DisciplineStats *store.Store[record.DisciplineRecord]
	Visits          *store.Store[record.ParentVisit]
	Years           *store.Store[record.AcademicYear]
	Classes         *store.Store[record.ClassOption]
}

// Option customizes New.
type Option func(*School)

// WithCatalog replaces the built-in resource catalog.
func WithCatalog(c catalog.Catalog) Option {
	return func(s *School) { s.catalog = c }
}

// New builds a School on top of an authenticated-or-not client. The
// session transitioning to anonymous drops every resolved endpoint and
// cached list; nothing survives a login boundary.
func New(c *client.Client, opts ...Option) (*School, error) {
	if c == nil {
		return nil, fmt.Errorf("school: client is required")
	}
	s := &School{
		client:   c,
		sess:     c.Session(),
		resolver: endpoint.NewResolver(c),
		bus:      store.NewBus(),
		catalog:  catalog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	var err error
	s.Students, err = newStore[record.Student](s, catalog.Students, true)
	if err != nil {
		return nil, err
	}
	s.Discipline, err = newStore[record.DisciplineRecord](s, catalog.DisciplineRecords, true)
	if err != nil {
		return nil, err
	}
	s.DisciplineStats, err = newStore[record.DisciplineRecord](s, catalog.DisciplineRecords, false)
	if err != nil {
		return nil, err
	}
	s.Visits, err = newStore[record.ParentVisit](s, catalog.ParentVisits, true)
	if err != nil {
		return nil, err
	}
	s.Years, err = newStore[record.AcademicYear](s, catalog.AcademicYears, false)
	if err != nil {
		return nil, err
	}
	s.Classes, err = newStore[record.ClassOption](s, catalog.Classes, false)
	if err != nil {
		return nil, err
	}

	s.sess.OnChange(func(state session.State) {
		if state == session.Anonymous {
			s.resolver.Reset()
			s.invalidateAll()
		}
	})
	return s, nil
}

func newStore[T store.Record](s *School, resource string, validate bool) (*store.Store[T], error) {
	opts := store.Options[T]{
		Resource:   resource,
		Candidates: s.catalog.Candidates(resource),
	}
	if validate {
		opts.Validate = func(rec T) error { return record.Validate(rec) }
	}
	return store.New[T](s.client, s.resolver, s.bus, opts)
}

func (s *School) invalidateAll() {
	s.Students.Invalidate()
	s.Discipline.Invalidate()
	s.DisciplineStats.Invalidate()
	s.Visits.Invalidate()
	s.Years.Invalidate()
	s.Classes.Invalidate()
}

// Session exposes the session manager.
func (s *School) Session() *session.Manager { return s.sess }

// Resolver exposes the endpoint resolver, mainly for diagnostics.
func (s *School) Resolver() *endpoint.Resolver { return s.resolver }

// Bus exposes the invalidation bus for additional subscribers.
func (s *School) Bus() *store.Bus { return s.bus }

// Login authenticates and persists the token pair.
func (s *School) Login(ctx context.Context, username, password string) error {
	return s.client.Authenticate(ctx, username, password)
}

// Logout clears the persisted token pair and the in-memory session.
func (s *School) Logout() error {
	return s.sess.Logout()
}

// ClassesByGradeField loads the class options for one grade and study
// field within an academic year.
func (s *School) ClassesByGradeField(ctx context.Context, yearID int64, grade, field string) ([]record.ClassOption, error) {
	q := url.Values{
		"academic_year": {strconv.FormatInt(yearID, 10)},
		"grade":         {grade},
		"field":         {field},
	}
	return s.Classes.Load(ctx, q)
}

// DisciplineForStudent loads the discipline records of one student through
// the stats view, leaving the main list cache untouched.
func (s *School) DisciplineForStudent(ctx context.Context, studentID int64) ([]record.DisciplineRecord, error) {
	q := url.Values{"student": {strconv.FormatInt(studentID, 10)}}
	return s.DisciplineStats.Load(ctx, q)
}

// VisitsForStudent loads the parent visits of one student.
func (s *School) VisitsForStudent(ctx context.Context, studentID int64) ([]record.ParentVisit, error) {
	q := url.Values{"student": {strconv.FormatInt(studentID, 10)}}
	return s.Visits.Load(ctx, q)
}
