// Package backend defines the monitoring backend contract: the event mask,
// the per-group counter snapshot, the capability descriptor, and the
// start/poll/stop operations the polling loop drives.
package backend

import "strings"

// Event is a bitwise-combinable set of hardware monitoring event types.
type Event uint32

const (
	// EventLLCOccupancy tracks last-level cache space attributed to a group.
	EventLLCOccupancy Event = 1 << iota
	// EventLocalBandwidth tracks memory traffic to the local NUMA node.
	EventLocalBandwidth
	// EventRemoteBandwidth tracks memory traffic to remote NUMA nodes.
	EventRemoteBandwidth
)

// EventAll is a sentinel meaning "every event the backend supports".
// All bits are set so that OR-merging a concrete mask into it leaves it
// unchanged; the registry replaces the sentinel with the concrete supported
// set before any group is started.
const EventAll Event = ^Event(0)

// Has reports whether any of the events in f are present in e.
func (e Event) Has(f Event) bool {
	return e&f != 0
}

// String returns a short textual form, e.g. "llc+mbl".
func (e Event) String() string {
	if e == EventAll {
		return "all"
	}
	var parts []string
	if e.Has(EventLLCOccupancy) {
		parts = append(parts, "llc")
	}
	if e.Has(EventLocalBandwidth) {
		parts = append(parts, "mbl")
	}
	if e.Has(EventRemoteBandwidth) {
		parts = append(parts, "mbr")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "+")
}

// Values is the counter snapshot for one group, updated in place by Poll.
// Occupancy is an absolute reading; bandwidth values are deltas since the
// previous poll.
type Values struct {
	LLC            uint64 // bytes
	MBMLocalDelta  uint64 // bytes since previous poll
	MBMRemoteDelta uint64 // bytes since previous poll
}

// Group is one monitoring group: an ordered set of cores or a single pid,
// the events accumulated for it, and the live snapshot the backend maintains.
// A group is started once, polled repeatedly, and stopped exactly once.
type Group struct {
	Desc   string
	Cores  []int // core mode: non-empty, ordered as given
	PID    int   // pid mode
	Events Event

	// Identity assigned by the backend at start time.
	Socket int
	RMID   int

	// Snapshot updated in place by Poll.
	Values Values

	// Handle holds backend-private state attached at start time.
	Handle interface{}
}

// FirstCore returns the first core id of a core-mode group, or -1 for a
// pid-mode group. Used for the default row ordering.
func (g *Group) FirstCore() int {
	if len(g.Cores) == 0 {
		return -1
	}
	return g.Cores[0]
}

// EventInfo describes one event type the backend can monitor.
type EventInfo struct {
	Type       Event
	PIDSupport bool
	// ScaleFactor is the native unit size of one counter increment in bytes.
	ScaleFactor uint64
}

// Capability enumerates the event types a backend supports.
type Capability struct {
	Events []EventInfo
}

// Lookup returns the descriptor for a single event type.
func (c *Capability) Lookup(e Event) (EventInfo, bool) {
	for _, info := range c.Events {
		if info.Type == e {
			return info, true
		}
	}
	return EventInfo{}, false
}

// CoreEvents returns the union of all supported event types.
func (c *Capability) CoreEvents() Event {
	var evts Event
	for _, info := range c.Events {
		evts |= info.Type
	}
	return evts
}

// PIDEvents returns the union of event types that support per-pid monitoring.
func (c *Capability) PIDEvents() Event {
	var evts Event
	for _, info := range c.Events {
		if info.PIDSupport {
			evts |= info.Type
		}
	}
	return evts
}

// CoreInfo identifies one logical core and its physical package.
type CoreInfo struct {
	ID     int
	Socket int
}

// CPUInfo describes the platform topology the backend monitors.
type CPUInfo struct {
	Cores []CoreInfo
}

// NumCores returns the number of logical cores on the platform.
func (c *CPUInfo) NumCores() int {
	return len(c.Cores)
}

// Socket returns the physical package id for a core, or 0 if unknown.
func (c *CPUInfo) Socket(core int) int {
	for _, ci := range c.Cores {
		if ci.ID == core {
			return ci.Socket
		}
	}
	return 0
}

// Backend is the monitoring backend consumed by the polling loop.
//
// Start and StartPID attach backend state to the group and begin counting;
// Poll refreshes the snapshot of every group in one batch; Stop releases a
// group's backend resources. Implementations mutate the Group in place, so
// a group must only ever be driven by one loop at a time.
type Backend interface {
	Capability() (*Capability, error)
	CPUInfo() (*CPUInfo, error)
	Start(g *Group) error
	StartPID(g *Group) error
	Poll(groups []*Group) error
	Stop(g *Group) error
}
