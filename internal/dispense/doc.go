// Package dispense runs one sorting cycle of the machine: calibrate, then feed,
// classify, route and drop pills one at a time until every scheduled pill is
// placed or too many consecutive pills cannot be classified, then eject the
// organizer and report the outcome.
//
// The controller is strictly sequential. Every hardware call blocks and the
// loop only checks its termination conditions between pills.
package dispense
