package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samraisbeck/MEDS/internal/inventory"
)

func TestResolve(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		counts inventory.Counts
		color  inventory.Color
		want   Decision
	}{
		{
			name:   "SingleSundayPill",
			counts: inventory.Counts{inventory.Green: {inventory.Sunday: 1}},
			color:  inventory.Green,
			want:   Decision{Routed: true, Day: inventory.Sunday},
		},
		{
			name:   "EarliestDayWinsOverLargerBacklog",
			counts: inventory.Counts{inventory.Red: {inventory.Tuesday: 1, inventory.Friday: 9}},
			color:  inventory.Red,
			want:   Decision{Routed: true, Day: inventory.Tuesday},
		},
		{
			name:   "SkipsEmptyDays",
			counts: inventory.Counts{inventory.Yellow: {inventory.Saturday: 1}},
			color:  inventory.Yellow,
			want:   Decision{Routed: true, Day: inventory.Saturday},
		},
		{
			name:   "ExhaustedColor",
			counts: inventory.Counts{inventory.Green: {inventory.Sunday: 3}},
			color:  inventory.Red,
			want:   Decision{},
		},
		{
			name:   "UnknownColor",
			counts: inventory.Counts{inventory.Green: {inventory.Sunday: 3}},
			color:  inventory.Unknown,
			want:   Decision{},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			grid, err := inventory.NewGrid(tc.counts)
			require.NoError(t, err)
			before := grid.Snapshot()

			got := New().Resolve(tc.color, grid)
			assert.Equal(t, tc.want, got)

			after := grid.Snapshot()
			changed := 0
			for _, color := range inventory.Colors() {
				for _, day := range inventory.Days() {
					diff := before[color][day] - after[color][day]
					if diff == 0 {
						continue
					}
					changed++
					assert.Equal(t, 1, diff)
					assert.Equal(t, tc.color, color)
					assert.Equal(t, got.Day, day)
				}
			}
			if got.Routed {
				assert.Equal(t, 1, changed)
			} else {
				assert.Zero(t, changed)
			}
		})
	}
}

func TestResolveNilGrid(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Decision{}, New().Resolve(inventory.Red, nil))
}

func TestResolveDrainsInCalendarOrder(t *testing.T) {
	t.Parallel()

	grid, err := inventory.NewGrid(inventory.Counts{
		inventory.Yellow: {inventory.Monday: 2, inventory.Thursday: 1, inventory.Saturday: 2},
	})
	require.NoError(t, err)

	res := New()
	var days []inventory.Day
	for {
		decision := res.Resolve(inventory.Yellow, grid)
		if !decision.Routed {
			break
		}
		days = append(days, decision.Day)
	}

	assert.Equal(t, []inventory.Day{
		inventory.Monday, inventory.Monday,
		inventory.Thursday,
		inventory.Saturday, inventory.Saturday,
	}, days)
	assert.Zero(t, grid.Outstanding())
	assert.Equal(t, 5, grid.Total())
}

func BenchmarkResolve(b *testing.B) {
	res := New()
	for i := 0; i < b.N; i++ {
		grid, _ := inventory.NewGrid(inventory.Counts{inventory.Red: {inventory.Saturday: 1}})
		res.Resolve(inventory.Red, grid)
	}
}
