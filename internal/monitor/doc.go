// Package monitor implements the telemetry aggregation and rendering engine:
// parsing monitoring-target specifications into a validated registry of core
// or pid groups, resolving per-event scale factors, rendering snapshots in
// text, XML, or CSV, and driving the periodic polling loop.
//
// # Key Components
//
//	Registry    - deduplicated monitoring groups with accumulated event masks
//	Factors     - per-event unit-conversion factors from backend capabilities
//	ColumnPlan  - the process-wide active-column set shared by all encoders
//	Loop        - the single-threaded poll/sort/render/sleep scheduler
//
// The registry is built once from specification strings, finalized against
// the backend's capability descriptor and CPU topology, started before the
// loop begins, and stopped exactly once at shutdown. The loop owns the
// output stream for the run's duration; cancellation arrives through a
// context and is honored at the loop top and during the interval sleep.
package monitor
