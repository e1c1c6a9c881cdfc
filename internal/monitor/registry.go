package monitor

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pwalsh/cachemon/internal/backend"
	"github.com/pwalsh/cachemon/internal/errors"
	"github.com/pwalsh/cachemon/internal/logger"
)

const (
	// MaxCoreGroups bounds how many core groups can be registered before the
	// platform core count is known at finalize time.
	MaxCoreGroups = 1024

	// MaxPIDGroups bounds how many process ids can be monitored in one run.
	MaxPIDGroups = 128
)

// Mode says whether a run monitors core groups or process ids.
// The two are mutually exclusive within one run.
type Mode int

const (
	ModeCore Mode = iota
	ModePID
)

func (m Mode) String() string {
	if m == ModePID {
		return "pid"
	}
	return "core"
}

// Registry holds the validated, deduplicated monitoring groups for one run.
// It is built once during configuration parsing, finalized against the
// backend's capabilities, and never mutated while the loop is polling.
type Registry struct {
	coreGroups []*backend.Group
	pidGroups  []*backend.Group
	maxEvents  backend.Event
	finalized  bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Mode returns ModePID when any pid group exists, ModeCore otherwise.
func (r *Registry) Mode() Mode {
	if len(r.pidGroups) > 0 {
		return ModePID
	}
	return ModeCore
}

// Groups returns the active group table in registration order.
func (r *Registry) Groups() []*backend.Group {
	if r.Mode() == ModePID {
		return r.pidGroups
	}
	return r.coreGroups
}

// MaxEvents returns the process-wide maximum observed event set. Only valid
// after Finalize.
func (r *Registry) MaxEvents() backend.Event {
	return r.maxEvents
}

// AddCoreSpec parses a core monitoring specification of the form
// "<event>:<targets>[;<event>:<targets>...]" and accumulates the resulting
// groups. Each top-level comma-separated target is a singleton group; a
// bracketed list such as [2,3] is one multi-core group.
func (r *Registry) AddCoreSpec(spec string) error {
	for _, clause := range splitClauses(spec) {
		if err := r.addCoreClause(clause); err != nil {
			return err
		}
	}
	return nil
}

// AddPIDSpec parses a pid monitoring specification. Pid groups are always
// singletons; bracket grouping is not permitted.
func (r *Registry) AddPIDSpec(spec string) error {
	for _, clause := range splitClauses(spec) {
		if err := r.addPIDClause(clause); err != nil {
			return err
		}
	}
	return nil
}

func splitClauses(spec string) []string {
	var clauses []string
	for _, c := range strings.Split(spec, ";") {
		if strings.TrimSpace(c) != "" {
			clauses = append(clauses, c)
		}
	}
	return clauses
}

func (r *Registry) addCoreClause(clause string) error {
	evt, targets, err := parseEventPrefix(clause)
	if err != nil {
		return err
	}

	groups, err := splitTargetList(targets)
	if err != nil {
		return err
	}

	for _, tg := range groups {
		if err := r.registerCoreGroup(tg, evt); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) addPIDClause(clause string) error {
	evt, targets, err := parseEventPrefix(clause)
	if err != nil {
		return err
	}

	if strings.ContainsAny(targets, "[]") {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("invalid pid list %q", targets),
			"Pid groups are always singletons; bracket grouping only applies to cores.")
	}

	pids, err := parseIDList(targets)
	if err != nil {
		return err
	}
	if len(pids) == 0 {
		return errors.New(errors.ErrConfig,
			"no process id selected for monitoring",
			"Give at least one pid, e.g. -p llc:1234.")
	}

	for _, pid := range pids {
		if err := r.registerPIDGroup(pid, evt); err != nil {
			return err
		}
	}
	return nil
}

// parseEventPrefix extracts the event prefix from a clause. An empty prefix
// means "all events".
func parseEventPrefix(clause string) (backend.Event, string, error) {
	prefix, rest, ok := strings.Cut(clause, ":")
	if !ok {
		return 0, "", errors.New(errors.ErrConfig,
			fmt.Sprintf("missing event prefix in %q", clause),
			"Use <event>:<targets>, e.g. llc:0,1 or all:[2,3].")
	}

	switch strings.ToLower(strings.TrimSpace(prefix)) {
	case "llc":
		return backend.EventLLCOccupancy, rest, nil
	case "mbl":
		return backend.EventLocalBandwidth, rest, nil
	case "mbr":
		return backend.EventRemoteBandwidth, rest, nil
	case "all", "":
		return backend.EventAll, rest, nil
	default:
		return 0, "", errors.New(errors.ErrConfig,
			fmt.Sprintf("unrecognized monitoring event type %q", prefix),
			"Valid events are llc, mbl, mbr, and all.")
	}
}

// targetGroup is one candidate group produced by target-list tokenization.
type targetGroup struct {
	desc string
	ids  []int
}

// splitTargetList tokenizes a core target list, separating singleton targets
// from bracketed multi-core groups, e.g. "0,1,[2,3],4" yields four groups.
func splitTargetList(s string) ([]targetGroup, error) {
	var groups []targetGroup

	rest := s
	for rest != "" {
		before, after, found := strings.Cut(rest, "[")

		ids, err := parseIDList(before)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			groups = append(groups, targetGroup{desc: strconv.Itoa(id), ids: []int{id}})
		}

		if !found {
			if strings.Contains(before, "]") {
				return nil, errors.New(errors.ErrConfig,
					fmt.Sprintf("unbalanced brackets in %q", s), "")
			}
			break
		}

		grp, remainder, closed := strings.Cut(after, "]")
		if !closed {
			return nil, errors.New(errors.ErrConfig,
				fmt.Sprintf("unbalanced brackets in %q", s), "")
		}
		ids, err = parseIDList(grp)
		if err != nil {
			return nil, err
		}
		if len(ids) > 0 {
			groups = append(groups, targetGroup{desc: grp, ids: ids})
		}
		rest = strings.TrimPrefix(remainder, ",")
	}

	return groups, nil
}

// parseIDList parses a comma-separated list of non-negative integers with
// optional a-b ranges, e.g. "0,2,4-7".
func parseIDList(s string) ([]int, error) {
	var ids []int
	for _, tok := range strings.Split(s, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}

		if lo, hi, ok := strings.Cut(tok, "-"); ok {
			start, err := parseID(lo)
			if err != nil {
				return nil, err
			}
			end, err := parseID(hi)
			if err != nil {
				return nil, err
			}
			if end < start {
				return nil, errors.New(errors.ErrConfig,
					fmt.Sprintf("invalid range %q", tok),
					"Ranges must be ascending, e.g. 4-7.")
			}
			for id := start; id <= end; id++ {
				ids = append(ids, id)
			}
			continue
		}

		id, err := parseID(tok)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || id < 0 {
		return 0, errors.New(errors.ErrConfig,
			fmt.Sprintf("invalid id %q", s),
			"Targets must be non-negative integers.")
	}
	return id, nil
}

// setRelation is the result of comparing two core sets.
type setRelation int

const (
	setsDisjoint setRelation = iota
	setsIdentical
	setsPartial
)

// compareCoreSets reports whether two core sets are identical, disjoint, or
// partially overlapping. Partial overlap is a configuration error: a core
// cannot belong to two different monitoring groups.
func compareCoreSets(a, b []int) setRelation {
	inA := make(map[int]bool, len(a))
	for _, c := range a {
		inA[c] = true
	}
	shared := 0
	inB := make(map[int]bool, len(b))
	for _, c := range b {
		inB[c] = true
		if inA[c] {
			shared++
		}
	}
	if shared == 0 {
		return setsDisjoint
	}
	if shared == len(inA) && shared == len(inB) {
		return setsIdentical
	}
	return setsPartial
}

func (r *Registry) registerCoreGroup(tg targetGroup, evt backend.Event) error {
	for _, g := range r.coreGroups {
		switch compareCoreSets(g.Cores, tg.ids) {
		case setsIdentical:
			g.Events |= evt
			return nil
		case setsPartial:
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("cannot monitor the same cores in different groups (%s vs %s)",
					g.Desc, tg.desc),
				"Each core may appear in exactly one monitoring group.")
		}
	}

	if len(r.coreGroups) >= MaxCoreGroups {
		return errors.New(errors.ErrConfig,
			"too many cores selected for monitoring",
			fmt.Sprintf("At most %d core groups are supported.", MaxCoreGroups))
	}

	r.coreGroups = append(r.coreGroups, &backend.Group{
		Desc:   tg.desc,
		Cores:  tg.ids,
		Events: evt,
	})
	return nil
}

func (r *Registry) registerPIDGroup(pid int, evt backend.Event) error {
	for _, g := range r.pidGroups {
		if g.PID == pid {
			g.Events |= evt
			return nil
		}
	}

	if len(r.pidGroups) >= MaxPIDGroups {
		return errors.New(errors.ErrConfig,
			"too many processes selected for monitoring",
			fmt.Sprintf("At most %d pids are supported.", MaxPIDGroups))
	}

	r.pidGroups = append(r.pidGroups, &backend.Group{
		Desc:   strconv.Itoa(pid),
		PID:    pid,
		Events: evt,
	})
	return nil
}

// Finalize validates the registry against the backend's capabilities and
// topology: it rejects mixed core/pid runs, populates the default all-cores
// table when nothing was selected, expands the "all events" sentinel to the
// concrete supported set (core- or pid-supported, depending on mode), and
// computes the maximum observed event set that decides which output columns
// exist. A pid whose platform lacks support for some requested events gets
// the mask silently restricted to the pid-supported set.
func (r *Registry) Finalize(c *backend.Capability, topo *backend.CPUInfo) error {
	if r.finalized {
		return nil
	}

	if len(r.coreGroups) > 0 && len(r.pidGroups) > 0 {
		return errors.New(errors.ErrConfig,
			"process and core tracking cannot be done simultaneously",
			"Use either -m for cores or -p for pids, not both.")
	}

	// Default: monitor everything on every core.
	if len(r.coreGroups) == 0 && len(r.pidGroups) == 0 {
		for _, core := range topo.Cores {
			r.coreGroups = append(r.coreGroups, &backend.Group{
				Desc:   strconv.Itoa(core.ID),
				Cores:  []int{core.ID},
				Events: c.CoreEvents(),
			})
		}
	}

	if r.Mode() == ModeCore {
		known := make(map[int]bool, len(topo.Cores))
		for _, core := range topo.Cores {
			known[core.ID] = true
		}
		for _, g := range r.coreGroups {
			for _, core := range g.Cores {
				if !known[core] {
					return errors.New(errors.ErrConfig,
						fmt.Sprintf("core %d does not exist on this platform", core),
						fmt.Sprintf("The platform has %d logical cores.", topo.NumCores()))
				}
			}
			if g.Events == backend.EventAll {
				g.Events = c.CoreEvents()
			}
			r.maxEvents |= g.Events
		}
	} else {
		for _, g := range r.pidGroups {
			if g.Events == backend.EventAll {
				g.Events = c.PIDEvents()
			}
			r.maxEvents |= g.Events
		}
	}

	r.finalized = true
	return nil
}

// Start begins monitoring for every group, in registration order. A start
// failure aborts the whole setup: groups already started are stopped again so
// no backend resource leaks from a half-built run.
func (r *Registry) Start(b backend.Backend) error {
	groups := r.Groups()
	mode := r.Mode()

	for i, g := range groups {
		var err error
		if mode == ModePID {
			err = b.StartPID(g)
		} else {
			err = b.Start(g)
		}
		if err != nil {
			for _, started := range groups[:i] {
				_ = b.Stop(started)
			}
			if mode == ModePID {
				return errors.WrapWithCode(err, errors.ErrResource,
					fmt.Sprintf("monitoring start error on pid %d", g.PID), "")
			}
			return errors.WrapWithCode(err, errors.ErrResource,
				fmt.Sprintf("monitoring start error on core(s) %s", g.Desc),
				"Another monitoring instance may already own these cores.")
		}
	}
	return nil
}

// Stop releases every group's backend resources, in registration order.
// Stop failures are logged and do not block remaining cleanup.
func (r *Registry) Stop(b backend.Backend, log logger.Logger) {
	for _, g := range r.Groups() {
		if err := b.Stop(g); err != nil {
			log.Error("monitoring stop error on %s: %v", g.Desc, err)
		}
	}
}
