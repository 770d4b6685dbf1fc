package position

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/samraisbeck/MEDS/internal/inventory"
)

func TestForDay(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Home, ForDay(inventory.Sunday))
	for _, day := range inventory.Days() {
		assert.InDelta(t, -float64(day.Index())*float64(BoxLength), float64(ForDay(day)), 1e-9, day.String())
	}
	assert.Less(t, ForDay(inventory.Saturday), ForDay(inventory.Friday))
}

func TestLandmarks(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 46.98, float64(BoxLength), 0.01)
	assert.InDelta(t, float64(-6*BoxLength-31), float64(Garbage()), 1e-9)
	assert.InDelta(t, float64(-8*BoxLength), float64(Eject()), 1e-9)

	// the discard opening is past Saturday and short of the eject landmark
	assert.Less(t, Garbage(), ForDay(inventory.Saturday))
	assert.Greater(t, Garbage(), Eject())

	assert.Equal(t, 358, FullRotation)
}
