package school

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"sync"

	"github.com/godeps/schoolsdk-go/pkg/catalog"
	"github.com/godeps/schoolsdk-go/pkg/envelope"
	"github.com/godeps/schoolsdk-go/pkg/record"
)

// Dossier aggregates everything known about one student. The parts are
// fetched independently; a failure in one leaves the others intact and is
// reported per part.
type Dossier struct {
	StudentID  int64
	Discipline []record.DisciplineRecord
	// DisciplineErr is set when the discipline fetch failed.
	DisciplineErr error
	Visits        []record.ParentVisit
	// VisitsErr is set when the visits fetch failed.
	VisitsErr error
}

// Stats summarizes a dossier for display.
type Stats struct {
	Delays       int
	Absences     int
	VisitCount   int
	AbsenceDates []string
}

// Dossier fetches a student's discipline records and parent visits
// concurrently, bypassing the list caches. Partial failure is not an
// error; inspect the per-part fields.
func (s *School) Dossier(ctx context.Context, studentID int64) Dossier {
	d := Dossier{StudentID: studentID}
	q := url.Values{"student": {strconv.FormatInt(studentID, 10)}}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		d.Discipline, d.DisciplineErr = fetchList[record.DisciplineRecord](ctx, s, catalog.DisciplineRecords, q)
	}()
	go func() {
		defer wg.Done()
		d.Visits, d.VisitsErr = fetchList[record.ParentVisit](ctx, s, catalog.ParentVisits, q)
	}()
	wg.Wait()
	return d
}

// Stats computes the summary counters from a dossier. Absence dates keep
// backend order.
func (d Dossier) Stats() Stats {
	st := Stats{VisitCount: len(d.Visits)}
	for _, rec := range d.Discipline {
		switch rec.RecordType {
		case record.Delay:
			st.Delays++
		case record.Absence:
			st.Absences++
			st.AbsenceDates = append(st.AbsenceDates, rec.RecordDate)
		}
	}
	return st
}

// fetchList resolves a resource and fetches one filtered list without
// touching any store cache.
func fetchList[T any](ctx context.Context, s *School, resource string, q url.Values) ([]T, error) {
	path, err := s.resolver.Resolve(ctx, resource, s.catalog.Candidates(resource))
	if err != nil {
		return nil, fmt.Errorf("school: %s: %w", resource, err)
	}
	resp, err := s.client.Do(ctx, "GET", path, nil, q)
	if err != nil {
		return nil, fmt.Errorf("school: %s: %w", resource, err)
	}
	records, err := envelope.Decode[T](envelope.Normalize(resp.Payload))
	if err != nil {
		return nil, fmt.Errorf("school: %s: decode: %w", resource, err)
	}
	return records, nil
}
