package monitor

import (
	"github.com/pwalsh/cachemon/internal/backend"
	"github.com/pwalsh/cachemon/internal/errors"
)

// Factors holds the per-event unit-conversion factors: cache occupancy is
// rendered in kilobytes, bandwidth in megabytes per second. Events outside
// the observed set keep a neutral factor of 1.0 and are never rendered.
type Factors struct {
	LLC float64
	MBL float64
	MBR float64
}

// ResolveFactors derives the conversion factors for the maximum observed
// event set from the backend's capability descriptor. An observed event with
// no descriptor is a fatal setup error, not a per-row condition.
func ResolveFactors(active backend.Event, c *backend.Capability) (Factors, error) {
	f := Factors{LLC: 1.0, MBL: 1.0, MBR: 1.0}

	if active.Has(backend.EventLLCOccupancy) {
		info, ok := c.Lookup(backend.EventLLCOccupancy)
		if !ok {
			return f, errors.New(errors.ErrBackend,
				"failed to obtain LLC occupancy event data", "")
		}
		f.LLC = float64(info.ScaleFactor) / 1024.0
	}

	if active.Has(backend.EventLocalBandwidth) {
		info, ok := c.Lookup(backend.EventLocalBandwidth)
		if !ok {
			return f, errors.New(errors.ErrBackend,
				"failed to obtain local memory bandwidth event data", "")
		}
		f.MBL = float64(info.ScaleFactor) / (1024.0 * 1024.0)
	}

	if active.Has(backend.EventRemoteBandwidth) {
		info, ok := c.Lookup(backend.EventRemoteBandwidth)
		if !ok {
			return f, errors.New(errors.ErrBackend,
				"failed to obtain remote memory bandwidth event data", "")
		}
		f.MBR = float64(info.ScaleFactor) / (1024.0 * 1024.0)
	}

	return f, nil
}
