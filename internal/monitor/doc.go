// Package monitor probes project endpoints and persists their liveness.
//
// This package is internal to projecthub. A [Monitor] performs on-demand
// checks via [Monitor.CheckProject] and owns one optional background sweep,
// started with [Monitor.Start] and halted with [Monitor.Stop].
//
// Manual checks and the sweep are not mutually excluded. Each persisted check
// is atomic at the store level, and the [MergePolicy] decides what happens
// when two checks of the same project overlap.
package monitor
