// Package status keeps a concurrency-safe view of the running dispense cycle
// for the HTTP status surface.
package status
