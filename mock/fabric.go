package mock

import (
	"context"
	"fmt"
	"log/slog"
	"net/netip"
	"slices"
	"sync"

	"github.com/linen-net/linen/core"
	"github.com/linen-net/linen/protocol"
	"github.com/linen-net/linen/state"
)

// RecordingSink captures route table changes instead of programming a
// kernel. Routes is the currently installed set, Actions the ordered change
// log.
type RecordingSink struct {
	Routes  map[netip.Prefix]core.RouteEntry
	Actions []string
}

func (r *RecordingSink) Install(route core.RouteEntry) error {
	if r.Routes == nil {
		r.Routes = make(map[netip.Prefix]core.RouteEntry)
	}
	r.Routes[route.Subnet] = route
	r.Actions = append(r.Actions, fmt.Sprintf("INSTALL %s via %s", route.Subnet, route.Nh))
	return nil
}

func (r *RecordingSink) Remove(subnet netip.Prefix) error {
	delete(r.Routes, subnet)
	r.Actions = append(r.Actions, fmt.Sprintf("REMOVE %s", subnet))
	return nil
}

type packet struct {
	from, to state.RouterId
	buf      []byte
}

// Fabric ferries encoded packets between in-process routers. Packets really
// do pass through the wire codec, so the fabric exercises the same path as a
// UDP socket minus the socket.
type Fabric struct {
	mu    sync.Mutex
	queue []packet
	trace []string
	down  map[[2]state.RouterId]bool
}

func (f *Fabric) send(from, to state.RouterId, m protocol.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down[linkKey(from, to)] {
		return
	}
	f.trace = append(f.trace, fmt.Sprintf("%s->%s %s", from, to, kindOf(m)))
	f.queue = append(f.queue, packet{from: from, to: to, buf: protocol.Encode(m)})
}

func kindOf(m protocol.Message) string {
	switch m.(type) {
	case *protocol.Hello:
		return "HELLO"
	case *protocol.Lsa:
		return "LSA"
	default:
		return "UNKNOWN"
	}
}

// TakeTrace returns the sends since the last call, oldest first.
func (f *Fabric) TakeTrace() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.trace
	f.trace = nil
	return out
}

func (f *Fabric) pop() (packet, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.queue) == 0 {
		return packet{}, false
	}
	pkt := f.queue[0]
	f.queue = f.queue[1:]
	return pkt, true
}

// SetLink brings the link between a and b up or down in both directions.
func (f *Fabric) SetLink(a, b state.RouterId, up bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down == nil {
		f.down = make(map[[2]state.RouterId]bool)
	}
	f.down[linkKey(a, b)] = !up
}

func linkKey(a, b state.RouterId) [2]state.RouterId {
	if b < a {
		a, b = b, a
	}
	return [2]state.RouterId{a, b}
}

// Port is one router's attachment to the fabric.
type Port struct {
	f  *Fabric
	id state.RouterId
}

func (p *Port) SendTo(neigh state.RouterId, m protocol.Message) {
	p.f.send(p.id, neigh, m)
}

// Net is a whole network of routers sharing one fabric, driven step by step
// from a test. The states have no dispatch channel, so every handler and
// recompute runs synchronously on the caller's goroutine.
type Net struct {
	Fabric *Fabric
	States map[state.RouterId]*state.State
	Sinks  map[state.RouterId]*RecordingSink
}

func NewNet(topo state.TopologyCfg) (*Net, error) {
	n := &Net{
		Fabric: &Fabric{down: make(map[[2]state.RouterId]bool)},
		States: make(map[state.RouterId]*state.State),
		Sinks:  make(map[state.RouterId]*RecordingSink),
	}
	for _, rtr := range topo.Routers {
		ctx, cancel := context.WithCancelCause(context.Background())
		s := &state.State{
			Modules: make(map[string]state.Module),
			Db:      state.NewLsdb(),
			Env: &state.Env{
				Context:     ctx,
				Cancel:      cancel,
				TopologyCfg: topo,
				LocalCfg:    state.LocalCfg{Id: rtr.Id},
				Log:         slog.New(slog.DiscardHandler),
			},
		}
		port := &Port{f: n.Fabric, id: rtr.Id}
		sink := &RecordingSink{}
		modules := []state.Module{
			&core.Router{Sink: sink},
			&core.Flood{W: port},
			&core.NeighborMgr{W: port},
		}
		for _, module := range modules {
			if err := core.Register(s, module); err != nil {
				return nil, err
			}
		}
		n.States[rtr.Id] = s
		n.Sinks[rtr.Id] = sink
	}
	return n, nil
}

func (n *Net) Stop() {
	for _, s := range n.States {
		s.Cancel(context.Canceled)
	}
}

// Deliver drains the fabric, handing each packet to its destination router.
// Handlers may queue more packets (flooding); delivery runs until the fabric
// is empty.
func (n *Net) Deliver() error {
	for {
		pkt, ok := n.Fabric.pop()
		if !ok {
			return nil
		}
		msg, err := protocol.Decode(pkt.buf)
		if err != nil {
			return err
		}
		dst := n.States[pkt.to]
		switch m := msg.(type) {
		case *protocol.Hello:
			err = core.Get[*core.NeighborMgr](dst).HandleHello(dst, pkt.from, m)
		case *protocol.Lsa:
			err = core.Get[*core.Flood](dst).HandleLsa(dst, pkt.from, m)
		}
		if err != nil {
			return err
		}
	}
}

// Round has every router send hellos, then drains the fabric.
func (n *Net) Round() error {
	ids := make([]state.RouterId, 0, len(n.States))
	for id := range n.States {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		s := n.States[id]
		if err := core.Get[*core.NeighborMgr](s).SendHellos(s); err != nil {
			return err
		}
	}
	return n.Deliver()
}

// Converge runs enough hello rounds for adjacencies to form and the flooded
// databases to settle.
func (n *Net) Converge(rounds int) error {
	for range rounds {
		if err := n.Round(); err != nil {
			return err
		}
	}
	return nil
}

// FailLink severs a-b and immediately expires the adjacency on both ends, as
// the dead interval eventually would.
func (n *Net) FailLink(a, b state.RouterId) error {
	n.Fabric.SetLink(a, b, false)
	sa, sb := n.States[a], n.States[b]
	core.Get[*core.NeighborMgr](sa).Expire(sa, b)
	core.Get[*core.NeighborMgr](sb).Expire(sb, a)
	return n.Deliver()
}
