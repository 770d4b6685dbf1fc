package schedule

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/samraisbeck/MEDS/internal/inventory"
)

// yamlSchedule is the YAML layout of a schedule. Each key holds seven counts,
// Sunday first.
type yamlSchedule struct {
	Red    []int `yaml:"red"`
	Yellow []int `yaml:"yellow"`
	Green  []int `yaml:"green"`
}

// LoadYAML parses the YAML schedule format. Unknown keys and missing colors
// fail the load.
func LoadYAML(r io.Reader) (*inventory.Grid, int, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var raw yamlSchedule
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, 0, inventory.NewLoadError("", fmt.Errorf("%w: empty schedule", inventory.ErrSectionCount))
		}
		return nil, 0, inventory.NewLoadError("", fmt.Errorf("parse YAML: %w", err))
	}

	rows := []struct {
		color  string
		counts []int
	}{
		{"red", raw.Red},
		{"yellow", raw.Yellow},
		{"green", raw.Green},
	}

	sections := make([]inventory.Section, 0, len(rows))
	for _, row := range rows {
		if row.counts == nil {
			return nil, 0, inventory.NewLoadError(row.color, inventory.ErrMissingColor)
		}
		sections = append(sections, inventory.Section{Color: row.color, Counts: row.counts})
	}

	return inventory.Load(sections)
}
