package defaults

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/mroth/weightedrand/v2"

	atomicx "github.com/websocks/agent/common/atomic"
	"github.com/websocks/agent/common/batch"
	"github.com/websocks/agent/common/singledo"
	"github.com/websocks/agent/group"
	wslog "github.com/websocks/agent/log"

	"github.com/websocks/agent/collab"
)

// wrrEntry is one ServerEntry's upstream address plus its liveness state.
type wrrEntry struct {
	id     string
	name   string
	addr   string
	weight int
	alive  atomicx.Bool
}

// WRRServerGroup implements group.ServerGroup with weighted random
// selection among alive entries, health-checked on a fixed ticker: a
// ticker plus a singledo-debounced, batch-concurrency-bounded probe round.
type WRRServerGroup struct {
	alias string
	hc    group.HealthCheckConfig

	mu      sync.Mutex
	entries []*wrrEntry

	chooser  atomicx.Pointer[weightedrand.Chooser[*wrrEntry, int]]
	single   *singledo.Single
	started  atomicx.Bool
	probeTCP func(addr string, timeout time.Duration) bool
}

func newWRRServerGroup(alias string, hc group.HealthCheckConfig) *WRRServerGroup {
	return &WRRServerGroup{
		alias:    alias,
		hc:       hc,
		single:   singledo.NewSingle(time.Second),
		probeTCP: tcpProbe,
	}
}

func (g *WRRServerGroup) Alias() string { return g.alias }

func (g *WRRServerGroup) AddAddr(id, addr string, weight int) error {
	return g.add(id, "", addr, weight)
}

func (g *WRRServerGroup) AddNamed(id, name, addr string, weight int) error {
	return g.add(id, name, addr, weight)
}

func (g *WRRServerGroup) add(id, name, addr string, weight int) error {
	if weight <= 0 {
		weight = 1
	}

	g.mu.Lock()
	for _, existing := range g.entries {
		if existing.id == id {
			// Same raw server-list line seen twice (e.g. repeated in two
			// proxy.server.list blocks of the same alias): last write
			// wins, the entry is not duplicated.
			existing.name, existing.addr, existing.weight = name, addr, weight
			g.mu.Unlock()
			g.rebuildChooser()
			return nil
		}
	}
	e := &wrrEntry{id: id, name: name, addr: addr, weight: weight}
	e.alive.Store(true)
	g.entries = append(g.entries, e)
	g.mu.Unlock()

	g.rebuildChooser()

	if g.hc.Protocol != group.ProtocolNone && g.started.CompareAndSwap(false, true) {
		go g.healthCheckLoop()
	}
	return nil
}

// Pick selects one upstream address at random, weighted by entry weight,
// among currently-alive entries, falling back to the full set if none are
// marked alive. Picks are independent draws; entries are not rotated
// through in a fixed order. Not part of the group.ServerGroup contract; exposed for the
// dispatcher once it has resolved a Decision's GroupAlias.
func (g *WRRServerGroup) Pick() (addr string, ok bool) {
	c := g.chooser.Load()
	if c == nil {
		return "", false
	}
	e := c.Pick()
	return e.addr, true
}

func (g *WRRServerGroup) rebuildChooser() {
	g.mu.Lock()
	entries := append([]*wrrEntry(nil), g.entries...)
	g.mu.Unlock()

	choices := make([]weightedrand.Choice[*wrrEntry, int], 0, len(entries))
	for _, e := range entries {
		if e.alive.Load() {
			choices = append(choices, weightedrand.NewChoice(e, e.weight))
		}
	}
	if len(choices) == 0 {
		for _, e := range entries {
			choices = append(choices, weightedrand.NewChoice(e, e.weight))
		}
	}
	if len(choices) == 0 {
		return
	}
	chooser, err := weightedrand.NewChooser(choices...)
	if err != nil {
		wslog.Warnln("group %s: rebuilding chooser: %v", g.alias, err)
		return
	}
	g.chooser.Store(chooser)
}

func (g *WRRServerGroup) healthCheckLoop() {
	time.Sleep(g.hc.InitialDelay)
	g.check()

	ticker := time.NewTicker(g.hc.Period)
	defer ticker.Stop()
	for range ticker.C {
		g.check()
	}
}

func (g *WRRServerGroup) check() {
	g.mu.Lock()
	entries := append([]*wrrEntry(nil), g.entries...)
	g.mu.Unlock()
	if len(entries) == 0 {
		return
	}

	_, _, _ = g.single.Do(func() (any, error) {
		id, _ := uuid.NewV4()
		wslog.Debugln("group %s: starting health check {%s}", g.alias, id)

		b, _ := batch.New(context.Background(), batch.WithConcurrencyNum(10))
		for _, e := range entries {
			e := e
			b.Go(e.id, func() (any, error) {
				alive := g.probeTCP(e.addr, 3*time.Second)
				e.alive.Store(alive)
				return alive, nil
			})
		}
		b.Wait()
		g.rebuildChooser()
		wslog.Debugln("group %s: finished health check {%s}", g.alias, id)
		return nil, nil
	})
}

func tcpProbe(addr string, timeout time.Duration) bool {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// WRRGroupFactory implements group.ServerGroupFactory, handing out
// WRRServerGroup instances.
type WRRGroupFactory struct{}

func (WRRGroupFactory) New(alias string, loops collab.LoopGroup, hc group.HealthCheckConfig) (group.ServerGroup, error) {
	return newWRRServerGroup(alias, hc), nil
}
