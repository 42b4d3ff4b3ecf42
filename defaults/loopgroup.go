package defaults

import (
	"sync/atomic"

	"github.com/websocks/agent/collab"
)

// loop is a trivially comparable collab.Loop handle identified by index.
type loop struct{ idx int }

func (l loop) Equal(other collab.Loop) bool {
	o, ok := other.(loop)
	return ok && o.idx == l.idx
}

// FixedLoopGroup implements collab.LoopGroup over a fixed-size pool of
// opaque loop handles, round-robining via Next. A real dispatcher would
// back this with its actual event-loop threads; this one exists so
// use_kcp server entries have somewhere to fan their per-loop stream
// handles out to when run standalone.
type FixedLoopGroup struct {
	loops []collab.Loop
	next  atomic.Uint64
}

// NewFixedLoopGroup builds a pool of n opaque loop handles.
func NewFixedLoopGroup(n int) *FixedLoopGroup {
	if n < 1 {
		n = 1
	}
	loops := make([]collab.Loop, n)
	for i := range loops {
		loops[i] = loop{idx: i}
	}
	return &FixedLoopGroup{loops: loops}
}

func (g *FixedLoopGroup) Next() collab.Loop {
	i := g.next.Add(1) - 1
	return g.loops[i%uint64(len(g.loops))]
}

func (g *FixedLoopGroup) All() []collab.Loop {
	out := make([]collab.Loop, len(g.loops))
	copy(out, g.loops)
	return out
}
