package hardware

import (
	"testing"

	"github.com/samraisbeck/MEDS/internal/inventory"
)

func TestColorFromClass(t *testing.T) {
	t.Parallel()

	tests := map[int]inventory.Color{
		-1:          inventory.Unknown,
		0:           inventory.Unknown,
		ClassBlack:  inventory.Unknown,
		ClassBlue:   inventory.Unknown,
		ClassGreen:  inventory.Green,
		ClassYellow: inventory.Yellow,
		ClassRed:    inventory.Red,
		ClassWhite:  inventory.Unknown,
		7:           inventory.Unknown,
	}

	for class, want := range tests {
		if got := ColorFromClass(class); got != want {
			t.Fatalf("class %d: expected %s, got %s", class, want, got)
		}
	}
}

func TestClassFromColorRoundTrips(t *testing.T) {
	t.Parallel()

	for _, c := range append(inventory.Colors(), inventory.Unknown) {
		if got := ColorFromClass(ClassFromColor(c)); got != c {
			t.Fatalf("expected %s to round trip, got %s", c, got)
		}
	}
}
