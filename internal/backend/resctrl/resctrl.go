// Package resctrl implements the monitoring backend on top of the Linux
// resctrl filesystem (/sys/fs/resctrl). Each monitoring group becomes a
// directory under mon_groups/ with its cores or tasks assigned; counters are
// read from the per-domain mon_data files.
package resctrl

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pwalsh/cachemon/internal/backend"
	"github.com/pwalsh/cachemon/internal/errors"
	"github.com/pwalsh/cachemon/internal/logger"
)

const (
	defaultRoot        = "/sys/fs/resctrl"
	defaultCPUInfoPath = "/proc/cpuinfo"

	// groupPrefix namespaces our mon_groups entries so cleanup never touches
	// groups created by other tools.
	groupPrefix = "cachemon-"
)

// Backend reads CMT/MBM counters through the resctrl filesystem.
type Backend struct {
	root        string
	cpuinfoPath string
	log         logger.Logger

	topo     *backend.CPUInfo
	nextRMID int
}

// Option configures a Backend.
type Option func(*Backend)

// WithRoot overrides the resctrl mount point. Used by tests.
func WithRoot(dir string) Option {
	return func(b *Backend) { b.root = dir }
}

// WithCPUInfoPath overrides the cpuinfo location. Used by tests.
func WithCPUInfoPath(path string) Option {
	return func(b *Backend) { b.cpuinfoPath = path }
}

// New creates a resctrl backend. It does not touch the filesystem until
// Capability, CPUInfo, or Start is called.
func New(log logger.Logger, opts ...Option) *Backend {
	b := &Backend{
		root:        defaultRoot,
		cpuinfoPath: defaultCPUInfoPath,
		log:         log,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Capability reads info/L3_MON/mon_features and reports the supported event
// set. Remote bandwidth is derived as total minus local, so it is only
// supported when both MBM counters are present.
func (b *Backend) Capability() (*backend.Capability, error) {
	data, err := os.ReadFile(filepath.Join(b.root, "info", "L3_MON", "mon_features"))
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrBackend,
			"resctrl monitoring features unavailable",
			"Mount the resctrl filesystem: mount -t resctrl resctrl /sys/fs/resctrl")
	}

	features := make(map[string]bool)
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			features[line] = true
		}
	}

	c := &backend.Capability{}
	// resctrl counters are already in bytes, so one increment is one byte.
	if features["llc_occupancy"] {
		c.Events = append(c.Events, backend.EventInfo{
			Type:        backend.EventLLCOccupancy,
			PIDSupport:  true,
			ScaleFactor: 1,
		})
	}
	if features["mbm_local_bytes"] {
		c.Events = append(c.Events, backend.EventInfo{
			Type:        backend.EventLocalBandwidth,
			PIDSupport:  true,
			ScaleFactor: 1,
		})
	}
	if features["mbm_local_bytes"] && features["mbm_total_bytes"] {
		c.Events = append(c.Events, backend.EventInfo{
			Type:        backend.EventRemoteBandwidth,
			PIDSupport:  true,
			ScaleFactor: 1,
		})
	}

	if len(c.Events) == 0 {
		return nil, errors.New(errors.ErrBackend,
			"resctrl reports no monitoring events",
			"Check that the CPU supports CMT/MBM and that L3 monitoring is enabled.")
	}
	return c, nil
}

// CPUInfo parses the platform topology from /proc/cpuinfo.
func (b *Backend) CPUInfo() (*backend.CPUInfo, error) {
	if b.topo != nil {
		return b.topo, nil
	}

	data, err := os.ReadFile(b.cpuinfoPath)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrBackend,
			"failed to read CPU topology", "")
	}

	topo := &backend.CPUInfo{}
	cur := -1
	socket := 0
	flush := func() {
		if cur >= 0 {
			topo.Cores = append(topo.Cores, backend.CoreInfo{ID: cur, Socket: socket})
		}
	}
	for _, line := range strings.Split(string(data), "\n") {
		key, val, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		val = strings.TrimSpace(val)
		switch key {
		case "processor":
			flush()
			cur, err = strconv.Atoi(val)
			if err != nil {
				return nil, errors.WrapWithCode(err, errors.ErrBackend,
					fmt.Sprintf("malformed processor id %q in cpuinfo", val), "")
			}
			socket = 0
		case "physical id":
			if n, err := strconv.Atoi(val); err == nil {
				socket = n
			}
		}
	}
	flush()

	if len(topo.Cores) == 0 {
		return nil, errors.New(errors.ErrBackend,
			"no cores found in CPU topology", "")
	}
	b.topo = topo
	return topo, nil
}

// handle is the backend-private state attached to a started group.
type handle struct {
	dir string

	// Cumulative MBM counters from the previous poll, for delta calculation.
	prevLocal uint64
	prevTotal uint64
	havePrev  bool
}

// Start creates a mon_groups entry for a core group and assigns its cores.
func (b *Backend) Start(g *backend.Group) error {
	dir, err := b.createGroup(g)
	if err != nil {
		return err
	}

	cores := make([]string, len(g.Cores))
	for i, c := range g.Cores {
		cores[i] = strconv.Itoa(c)
	}
	list := strings.Join(cores, ",")
	if err := os.WriteFile(filepath.Join(dir, "cpus_list"), []byte(list+"\n"), 0644); err != nil {
		os.Remove(dir)
		return errors.WrapWithCode(err, errors.ErrBackend,
			fmt.Sprintf("failed to assign cores %s to monitoring group", g.Desc),
			"Another resctrl consumer may already own these cores.")
	}

	if topo, err := b.CPUInfo(); err == nil {
		g.Socket = topo.Socket(g.FirstCore())
	}
	return nil
}

// StartPID creates a mon_groups entry for a pid group and assigns the task.
func (b *Backend) StartPID(g *backend.Group) error {
	dir, err := b.createGroup(g)
	if err != nil {
		return err
	}

	pid := strconv.Itoa(g.PID)
	if err := os.WriteFile(filepath.Join(dir, "tasks"), []byte(pid+"\n"), 0644); err != nil {
		os.Remove(dir)
		return errors.WrapWithCode(err, errors.ErrBackend,
			fmt.Sprintf("failed to attach pid %d to monitoring group", g.PID),
			"Check that the process exists and cachemon has write access to resctrl.")
	}
	return nil
}

func (b *Backend) createGroup(g *backend.Group) (string, error) {
	name := groupPrefix + strconv.Itoa(b.nextRMID)
	dir := filepath.Join(b.root, "mon_groups", name)
	if err := os.Mkdir(dir, 0755); err != nil {
		return "", errors.WrapWithCode(err, errors.ErrBackend,
			fmt.Sprintf("failed to create monitoring group for %s", g.Desc),
			"The platform may be out of RMIDs; stop other monitoring consumers.")
	}
	g.RMID = b.nextRMID
	b.nextRMID++
	g.Handle = &handle{dir: dir}
	b.log.Debug("created monitoring group %s", dir)
	return dir, nil
}

// Poll refreshes the snapshot of every group. Occupancy is read as an
// absolute value; MBM counters are cumulative in resctrl, so per-poll deltas
// are computed against the previous reading (first poll yields zero deltas).
func (b *Backend) Poll(groups []*backend.Group) error {
	for _, g := range groups {
		h, ok := g.Handle.(*handle)
		if !ok || h == nil {
			return errors.New(errors.ErrBackend,
				fmt.Sprintf("group %s polled before start", g.Desc), "")
		}
		if err := b.pollOne(g, h); err != nil {
			return err
		}
	}
	return nil
}

func (b *Backend) pollOne(g *backend.Group, h *handle) error {
	var llc, local, total uint64

	monData := filepath.Join(h.dir, "mon_data")
	entries, err := os.ReadDir(monData)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrBackend,
			fmt.Sprintf("failed to read counters for group %s", g.Desc), "")
	}

	// Counters are split per L3 domain; sum across domains.
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), "mon_L3") {
			continue
		}
		dom := filepath.Join(monData, e.Name())
		if g.Events.Has(backend.EventLLCOccupancy) {
			v, err := readCounter(filepath.Join(dom, "llc_occupancy"))
			if err != nil {
				return err
			}
			llc += v
		}
		if g.Events.Has(backend.EventLocalBandwidth | backend.EventRemoteBandwidth) {
			v, err := readCounter(filepath.Join(dom, "mbm_local_bytes"))
			if err != nil {
				return err
			}
			local += v
		}
		if g.Events.Has(backend.EventRemoteBandwidth) {
			v, err := readCounter(filepath.Join(dom, "mbm_total_bytes"))
			if err != nil {
				return err
			}
			total += v
		}
	}

	g.Values.LLC = llc

	remote := uint64(0)
	if total > local {
		remote = total - local
	}
	if h.havePrev {
		prevRemote := uint64(0)
		if h.prevTotal > h.prevLocal {
			prevRemote = h.prevTotal - h.prevLocal
		}
		g.Values.MBMLocalDelta = counterDelta(local, h.prevLocal)
		g.Values.MBMRemoteDelta = counterDelta(remote, prevRemote)
	} else {
		g.Values.MBMLocalDelta = 0
		g.Values.MBMRemoteDelta = 0
	}
	h.prevLocal = local
	h.prevTotal = total
	h.havePrev = true
	return nil
}

// counterDelta guards against counter wrap or a reset domain.
func counterDelta(cur, prev uint64) uint64 {
	if cur < prev {
		return 0
	}
	return cur - prev
}

// Stop removes the group's mon_groups directory, releasing its RMID.
func (b *Backend) Stop(g *backend.Group) error {
	h, ok := g.Handle.(*handle)
	if !ok || h == nil {
		return errors.New(errors.ErrBackend,
			fmt.Sprintf("group %s stopped before start", g.Desc), "")
	}
	if err := os.Remove(h.dir); err != nil {
		return errors.WrapWithCode(err, errors.ErrBackend,
			fmt.Sprintf("failed to remove monitoring group for %s", g.Desc), "")
	}
	g.Handle = nil
	return nil
}

func readCounter(path string) (uint64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, errors.WrapWithCode(err, errors.ErrBackend,
			fmt.Sprintf("failed to read counter %s", filepath.Base(path)), "")
	}
	s := strings.TrimSpace(string(data))
	// Some kernels report "Unavailable" while an RMID settles.
	if s == "Unavailable" {
		return 0, nil
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, errors.WrapWithCode(err, errors.ErrBackend,
			fmt.Sprintf("malformed counter value %q in %s", s, path), "")
	}
	return v, nil
}
