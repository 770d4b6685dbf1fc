// Package schedule reads weekly pill schedules from disk and turns them into
// inventory sections.
package schedule

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/shlex"

	"github.com/samraisbeck/MEDS/internal/inventory"
)

// headerFields is the width of the column header line: a color label plus one
// column per day.
const headerFields = 1 + inventory.NumDays

// LoadFile reads the schedule at path and loads it into a Grid. YAML files are
// recognised by extension; everything else is parsed as the text format.
func LoadFile(path string) (*inventory.Grid, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, inventory.NewLoadError(path, err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return LoadYAML(f)
	default:
		return LoadText(f)
	}
}

// LoadText parses the text format: one header line that is discarded, then
// exactly three lines of a color token followed by seven integer counts.
// Blank lines and '#' comments are ignored.
func LoadText(r io.Reader) (*inventory.Grid, int, error) {
	sections, err := ParseText(r)
	if err != nil {
		return nil, 0, err
	}
	return inventory.Load(sections)
}

// ParseText splits a text schedule into sections without validating counts
// against the grid rules.
func ParseText(r io.Reader) ([]inventory.Section, error) {
	scanner := bufio.NewScanner(r)

	var (
		sections []inventory.Section
		header   bool
		lineNo   int
	)
	for scanner.Scan() {
		lineNo++
		fields, err := shlex.Split(scanner.Text())
		if err != nil {
			return nil, inventory.NewLoadError(lineLocation(lineNo), err)
		}
		if len(fields) == 0 {
			continue
		}

		if !header {
			if len(fields) != headerFields {
				return nil, inventory.NewLoadError(lineLocation(lineNo),
					fmt.Errorf("%w: header has %d fields, want %d", inventory.ErrFieldCount, len(fields), headerFields))
			}
			header = true
			continue
		}

		if len(sections) == inventory.NumColors {
			return nil, inventory.NewLoadError(lineLocation(lineNo),
				fmt.Errorf("%w: unexpected section %q", inventory.ErrSectionCount, fields[0]))
		}
		if len(fields) != headerFields {
			return nil, inventory.NewLoadError(lineLocation(lineNo),
				fmt.Errorf("%w: got %d", inventory.ErrFieldCount, len(fields)-1))
		}

		counts := make([]int, 0, inventory.NumDays)
		for _, raw := range fields[1:] {
			n, err := strconv.Atoi(raw)
			if err != nil {
				return nil, inventory.NewLoadError(lineLocation(lineNo), fmt.Errorf("%w: %q", inventory.ErrInvalidCount, raw))
			}
			counts = append(counts, n)
		}
		sections = append(sections, inventory.Section{Color: fields[0], Counts: counts})
	}
	if err := scanner.Err(); err != nil {
		return nil, inventory.NewLoadError("", err)
	}
	if !header {
		return nil, inventory.NewLoadError("", fmt.Errorf("%w: empty schedule", inventory.ErrSectionCount))
	}
	if len(sections) != inventory.NumColors {
		return nil, inventory.NewLoadError("", fmt.Errorf("%w: got %d", inventory.ErrSectionCount, len(sections)))
	}

	return sections, nil
}

func lineLocation(n int) string {
	return "line " + strconv.Itoa(n)
}
