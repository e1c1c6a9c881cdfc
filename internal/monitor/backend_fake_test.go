package monitor

import (
	"fmt"

	"github.com/pwalsh/cachemon/internal/backend"
)

// fakeBackend is an in-memory Backend for loop and registry tests. Poll
// behavior is scripted through onPoll; start/stop failures are keyed by
// group description.
type fakeBackend struct {
	caps *backend.Capability
	topo *backend.CPUInfo

	polls  int
	onPoll func(poll int, groups []*backend.Group)

	failStart map[string]bool
	failStop  map[string]bool
	started   []string
	stopped   []string

	nextRMID int
}

func newFakeBackend(caps *backend.Capability, topo *backend.CPUInfo) *fakeBackend {
	return &fakeBackend{
		caps:      caps,
		topo:      topo,
		failStart: make(map[string]bool),
		failStop:  make(map[string]bool),
	}
}

func (f *fakeBackend) Capability() (*backend.Capability, error) { return f.caps, nil }
func (f *fakeBackend) CPUInfo() (*backend.CPUInfo, error)       { return f.topo, nil }

func (f *fakeBackend) Start(g *backend.Group) error {
	if f.failStart[g.Desc] {
		return fmt.Errorf("start failed for %s", g.Desc)
	}
	g.RMID = f.nextRMID
	f.nextRMID++
	g.Socket = f.topo.Socket(g.FirstCore())
	g.Handle = struct{}{}
	f.started = append(f.started, g.Desc)
	return nil
}

func (f *fakeBackend) StartPID(g *backend.Group) error {
	return f.Start(g)
}

func (f *fakeBackend) Poll(groups []*backend.Group) error {
	f.polls++
	if f.onPoll != nil {
		f.onPoll(f.polls, groups)
	}
	return nil
}

func (f *fakeBackend) Stop(g *backend.Group) error {
	if f.failStop[g.Desc] {
		return fmt.Errorf("stop failed for %s", g.Desc)
	}
	f.stopped = append(f.stopped, g.Desc)
	g.Handle = nil
	return nil
}
