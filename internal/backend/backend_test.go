package backend

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventString(t *testing.T) {
	tests := []struct {
		name  string
		event Event
		want  string
	}{
		{name: "single", event: EventLLCOccupancy, want: "llc"},
		{name: "pair", event: EventLLCOccupancy | EventLocalBandwidth, want: "llc+mbl"},
		{name: "all sentinel", event: EventAll, want: "all"},
		{name: "empty", event: 0, want: "none"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.event.String())
		})
	}
}

func TestEventAllAbsorbsMerges(t *testing.T) {
	e := EventAll
	e |= EventLLCOccupancy
	assert.Equal(t, EventAll, e)
	assert.True(t, e.Has(EventRemoteBandwidth))
}

func TestCapabilityEventSets(t *testing.T) {
	c := &Capability{
		Events: []EventInfo{
			{Type: EventLLCOccupancy, PIDSupport: true, ScaleFactor: 1},
			{Type: EventLocalBandwidth, PIDSupport: false, ScaleFactor: 1},
		},
	}

	assert.Equal(t, EventLLCOccupancy|EventLocalBandwidth, c.CoreEvents())
	assert.Equal(t, EventLLCOccupancy, c.PIDEvents())

	info, ok := c.Lookup(EventLocalBandwidth)
	assert.True(t, ok)
	assert.False(t, info.PIDSupport)

	_, ok = c.Lookup(EventRemoteBandwidth)
	assert.False(t, ok)
}

func TestGroupFirstCore(t *testing.T) {
	assert.Equal(t, 2, (&Group{Cores: []int{2, 3}}).FirstCore())
	assert.Equal(t, -1, (&Group{PID: 1234}).FirstCore())
}

func TestCPUInfoSocket(t *testing.T) {
	topo := &CPUInfo{
		Cores: []CoreInfo{
			{ID: 0, Socket: 0},
			{ID: 1, Socket: 1},
		},
	}
	assert.Equal(t, 2, topo.NumCores())
	assert.Equal(t, 1, topo.Socket(1))
	assert.Equal(t, 0, topo.Socket(99))
}
