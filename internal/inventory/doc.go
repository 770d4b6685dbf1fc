// Package inventory models the weekly pill schedule as a grid of remaining
// counts per color and day. The grid is loaded once per run from three color
// sections and only ever decremented afterwards.
package inventory
