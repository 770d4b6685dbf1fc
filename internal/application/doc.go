// Package application wires a dispense run together. It loads the schedule,
// builds the machine driver and the console reporter, attaches the status
// store, metrics and event observers, and creates the optional status HTTP
// server, leaving the main package to CLI parsing and orchestration.
package application
