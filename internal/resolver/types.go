package resolver

import "github.com/samraisbeck/MEDS/internal/inventory"

// Decision is the destination chosen for one classified pill. When Routed is
// false the pill has no compartment and Day is meaningless.
type Decision struct {
	Routed bool
	Day    inventory.Day
}

// Resolver describes the behaviour required from a slot resolver.
type Resolver interface {
	Resolve(color inventory.Color, grid *inventory.Grid) Decision
}
