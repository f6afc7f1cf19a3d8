package school

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/godeps/schoolsdk-go/pkg/catalog"
)

// ImportRowError describes one rejected spreadsheet row.
type ImportRowError struct {
	Row   int             `json:"row"`
	Error string          `json:"error"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// ImportResult reports the outcome of a bulk student import.
type ImportResult struct {
	Success bool `json:"success"`
	Results struct {
		Success int              `json:"success"`
		Total   int              `json:"total"`
		Errors  []ImportRowError `json:"errors"`
	} `json:"results"`
}

// ImportStudents uploads a spreadsheet of students for bulk creation. Row
// failures do not abort the batch; the result carries them per row. After
// any upload the students list is reloaded so partial imports surface
// immediately.
func (s *School) ImportStudents(ctx context.Context, filename string, file io.Reader) (ImportResult, error) {
	var res ImportResult
	base, err := s.resolver.Resolve(ctx, catalog.Students, s.catalog.Candidates(catalog.Students))
	if err != nil {
		return res, fmt.Errorf("school: import: %w", err)
	}
	resp, err := s.client.Upload(ctx, base+"import-excel/", "file", filename, file, nil)
	if err != nil {
		return res, fmt.Errorf("school: import: %w", err)
	}
	if err := json.Unmarshal(resp.Payload, &res); err != nil {
		return res, fmt.Errorf("school: import: decode response: %w", err)
	}
	if err := s.Students.Reload(ctx); err != nil {
		return res, err
	}
	s.bus.PublishFrom(ctx, catalog.Students, s.Students)
	return res, nil
}
