package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pwalsh/cachemon/internal/backend"
)

func TestRenderInfo(t *testing.T) {
	caps := &backend.Capability{
		Events: []backend.EventInfo{
			{Type: backend.EventLLCOccupancy, PIDSupport: true, ScaleFactor: 1},
			{Type: backend.EventLocalBandwidth, PIDSupport: false, ScaleFactor: 1},
		},
	}
	topo := &backend.CPUInfo{
		Cores: []backend.CoreInfo{
			{ID: 0, Socket: 0},
			{ID: 1, Socket: 0},
			{ID: 2, Socket: 1},
			{ID: 3, Socket: 1},
		},
	}

	got := renderInfo(caps, topo)

	assert.Contains(t, got, "cachemon")
	assert.Contains(t, got, "Supported events")
	assert.Contains(t, got, "LLC occupancy")
	assert.Contains(t, got, "Local memory bandwidth")
	assert.Contains(t, got, "Topology")
	assert.Contains(t, got, "socket 0:")
	assert.Contains(t, got, "socket 1:")
}
