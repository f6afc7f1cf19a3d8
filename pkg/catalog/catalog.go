// Package catalog names the logical backend resources and the ordered
// candidate paths each may live under. The built-in catalog matches the
// deployments seen so far; an operator can override it from a YAML file
// when a backend moves again.
package catalog

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Well-known logical resource names.
const (
	Students          = "students"
	DisciplineRecords = "discipline-records"
	ParentVisits      = "parent-visits"
	AcademicYears     = "academic-years"
	Classes           = "classes"
)

// Resource describes one logical resource.
type Resource struct {
	// Name is the logical resource identity used by stores and the
	// invalidation bus.
	Name string `yaml:"name"`
	// Candidates are probed strictly in this order.
	Candidates []string `yaml:"candidates"`
}

// Catalog maps logical resource names to candidate path lists.
type Catalog map[string][]string

// Default returns the built-in catalog.
func Default() Catalog {
	return Catalog{
		Students: {"/students/"},
		DisciplineRecords: {
			"/discipline-records/",
			"/discipline-stats/",
			"/discipline/",
			"/disciplinary-records/",
		},
		ParentVisits:  {"/parent-visits/"},
		AcademicYears: {"/academic-years/"},
		Classes:       {"/classes/by_grade_field/"},
	}
}

// Candidates returns the candidate paths for resource, or nil when the
// resource is unknown.
func (c Catalog) Candidates(resource string) []string {
	paths := c[resource]
	out := make([]string, len(paths))
	copy(out, paths)
	return out
}

type fileFormat struct {
	Resources []Resource `yaml:"resources"`
}

// Load reads a YAML override file and merges it over the default catalog:
// listed resources replace their default candidate lists, unlisted ones
// keep the built-ins.
func Load(path string) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a YAML catalog document and merges it over Default.
func Parse(data []byte) (Catalog, error) {
	var doc fileFormat
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("catalog: decode yaml: %w", err)
	}
	merged := Default()
	for _, res := range doc.Resources {
		name := strings.TrimSpace(res.Name)
		if name == "" {
			return nil, fmt.Errorf("catalog: resource entry without a name")
		}
		if len(res.Candidates) == 0 {
			return nil, fmt.Errorf("catalog: resource %s has no candidates", name)
		}
		for _, p := range res.Candidates {
			if !strings.HasPrefix(p, "/") {
				return nil, fmt.Errorf("catalog: resource %s candidate %q must be rooted", name, p)
			}
		}
		merged[name] = append([]string(nil), res.Candidates...)
	}
	return merged, nil
}
