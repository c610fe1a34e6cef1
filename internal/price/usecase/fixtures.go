package usecase

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// Fixture is one seed comparison entry for environments without real feed
// history (test, staging, demos). Entries come from an external JSON file and
// are only consulted when the store has no records for a product; the file is
// disabled entirely unless a path is configured.
type Fixture struct {
	Keyword             string             `json:"keyword"`
	LastMonthAverage    float64            `json:"lastMonthAverage"`
	CurrentMonthAverage float64            `json:"currentMonthAverage"`
	GradeAverages       map[string]float64 `json:"gradeAverages"`
	UnitAverages        map[string]float64 `json:"unitAverages"`
}

type Fixtures struct {
	entries []Fixture
}

// LoadFixtures reads the fixture file. An empty path disables fixtures and
// returns nil without error.
func LoadFixtures(path string) (*Fixtures, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read price fixtures %s", path)
	}
	var entries []Fixture
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, errors.Wrap(err, "parse price fixtures")
	}
	return &Fixtures{entries: entries}, nil
}

// Lookup finds the first fixture whose keyword occurs in productName.
func (f *Fixtures) Lookup(productName string) (*Fixture, bool) {
	if f == nil {
		return nil, false
	}
	for i := range f.entries {
		if f.entries[i].Keyword != "" && strings.Contains(productName, f.entries[i].Keyword) {
			return &f.entries[i], true
		}
	}
	return nil, false
}
