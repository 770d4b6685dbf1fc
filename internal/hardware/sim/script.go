package sim

import (
	"fmt"
	"strings"

	"github.com/samraisbeck/MEDS/internal/inventory"
)

// ParseScript turns color names into a feed script. "unknown" (or "-")
// feeds a pill the sensor cannot classify.
func ParseScript(names []string) ([]inventory.Color, error) {
	script := make([]inventory.Color, 0, len(names))
	for _, name := range names {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "":
			continue
		case "green":
			script = append(script, inventory.Green)
		case "yellow":
			script = append(script, inventory.Yellow)
		case "red":
			script = append(script, inventory.Red)
		case "unknown", "-":
			script = append(script, inventory.Unknown)
		default:
			return nil, fmt.Errorf("sim: unknown color %q", name)
		}
	}
	return script, nil
}

// ScriptFor returns a feed script holding exactly the pills in counts,
// colors in grid order.
func ScriptFor(counts inventory.Counts) []inventory.Color {
	var script []inventory.Color
	for _, color := range inventory.Colors() {
		for _, day := range inventory.Days() {
			for i := 0; i < counts[color][day]; i++ {
				script = append(script, color)
			}
		}
	}
	return script
}
