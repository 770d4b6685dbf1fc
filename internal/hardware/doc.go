// Package hardware declares the physical capabilities the dispense controller
// relies on. Each call blocks until its physical condition is met or the
// driver gives up; polling and timing live behind these interfaces.
//
// Drivers live in subpackages: sim for an in-memory machine, serial for a
// microcontroller reached over a serial line, and console for the operator
// report.
package hardware
