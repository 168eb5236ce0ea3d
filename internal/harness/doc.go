// Package harness runs contest scenarios end to end.
//
// A scenario names a fixture, an optional CUE ruleset and a list of steps
// (schedule, score, tabulate). Run imports the fixture into a fresh
// in-memory store, drives the engine through the steps with a sequential
// generation id source and evaluates the scenario's assertions against the
// persisted state.
//
// RunWithGolden additionally renders a plain-text report (running order,
// conflicts, results per event) and compares it with
// testdata/golden/<scenario>.golden. Regenerate with:
//
//	go test ./internal/harness -update
package harness
