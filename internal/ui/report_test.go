package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pwalsh/cachemon/internal/backend"
)

func TestFormatCoreList(t *testing.T) {
	tests := []struct {
		name  string
		cores []int
		want  string
	}{
		{name: "empty", cores: nil, want: ""},
		{name: "single", cores: []int{3}, want: "3"},
		{name: "contiguous run", cores: []int{0, 1, 2, 3}, want: "0-3"},
		{name: "run plus outlier", cores: []int{0, 1, 2, 3, 8}, want: "0-3,8"},
		{name: "two runs", cores: []int{0, 1, 4, 5}, want: "0-1,4-5"},
		{name: "scattered", cores: []int{1, 3, 5}, want: "1,3,5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatCoreList(tt.cores))
		})
	}
}

func TestRenderCapability(t *testing.T) {
	t.Run("lists events with pid support", func(t *testing.T) {
		c := &backend.Capability{
			Events: []backend.EventInfo{
				{Type: backend.EventLLCOccupancy, PIDSupport: true, ScaleFactor: 1},
				{Type: backend.EventRemoteBandwidth, PIDSupport: false, ScaleFactor: 1},
			},
		}
		got := RenderCapability(c)
		assert.Contains(t, got, "LLC occupancy")
		assert.Contains(t, got, "core + pid")
		assert.Contains(t, got, "Remote memory bandwidth")
		assert.Contains(t, got, "core only")
	})

	t.Run("empty capability", func(t *testing.T) {
		got := RenderCapability(&backend.Capability{})
		assert.Contains(t, got, "none")
	})
}

func TestRenderTopology(t *testing.T) {
	topo := &backend.CPUInfo{
		Cores: []backend.CoreInfo{
			{ID: 0, Socket: 0},
			{ID: 1, Socket: 0},
			{ID: 2, Socket: 1},
			{ID: 3, Socket: 1},
		},
	}
	got := RenderTopology(topo)
	assert.Contains(t, got, "logical cores:")
	assert.Contains(t, got, "4")
	assert.Contains(t, got, "0-1")
	assert.Contains(t, got, "2-3")
}

func TestRenderHeader(t *testing.T) {
	got := RenderHeader("v1.0.0")
	assert.Contains(t, got, "cachemon")
	assert.Contains(t, got, "v1.0.0")
}
