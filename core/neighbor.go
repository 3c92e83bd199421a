package core

import (
	"context"
	"slices"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/linen-net/linen/protocol"
	"github.com/linen-net/linen/state"
)

// NeighborMgr drives the hello protocol and the adjacency state machine.
// Liveness is a TTL cache keyed by router id: a hello refreshes the entry,
// and an entry expiring past the dead interval tears the adjacency down.
// The cache is only touched from the main loop, so eviction callbacks run
// there too and may mutate state directly.
type NeighborMgr struct {
	W    Wire
	live *ttlcache.Cache[state.RouterId, time.Time]
}

func (n *NeighborMgr) Init(s *state.State) error {
	n.live = ttlcache.New[state.RouterId, time.Time](
		ttlcache.WithTTL[state.RouterId, time.Time](state.DeadInterval),
		ttlcache.WithDisableTouchOnHit[state.RouterId, time.Time](),
	)
	n.live.OnEviction(func(_ context.Context, reason ttlcache.EvictionReason, item *ttlcache.Item[state.RouterId, time.Time]) {
		if reason != ttlcache.EvictionReasonExpired {
			return
		}
		n.expire(s, item.Key())
	})

	s.RepeatTask(n.SendHellos, state.HelloInterval)
	s.RepeatTask(func(s *state.State) error {
		n.live.DeleteExpired()
		return nil
	}, state.AgeTickInterval)
	return nil
}

func (n *NeighborMgr) Cleanup(s *state.State) error {
	return nil
}

// HandleHello runs the receive side of the adjacency state machine. A hello
// from an unknown peer creates the adjacency in Init; a hello that lists us
// among the sender's seen routers proves the link works both ways and brings
// the adjacency up; one that stops listing us knocks it back down to Init.
func (n *NeighborMgr) HandleHello(s *state.State, from state.RouterId, h *protocol.Hello) error {
	if h.Sender != string(from) {
		s.Log.Warn("hello sender does not match link peer", "sender", h.Sender, "link", from)
		return nil
	}
	link := s.GetLink(from)
	if link == nil {
		s.Log.Warn("hello from router without a configured link", "sender", h.Sender)
		return nil
	}

	n.live.Set(from, time.Now(), ttlcache.DefaultTTL)

	neigh := s.GetNeighbour(from)
	if neigh == nil {
		neigh = &state.Neighbour{
			Id:       from,
			Iface:    link.IfaceName(),
			Endpoint: link.Endpoint,
			State:    state.NeighbourInit,
			Cost:     link.Cost,
		}
		s.Neighbours = append(s.Neighbours, neigh)
		s.Log.Info("neighbour discovered", "peer", from, "state", neigh.State)
	}
	neigh.LastHello = time.Now()

	seesUs := slices.Contains(h.Seen, string(s.Id))
	switch {
	case seesUs && neigh.State < state.NeighbourFull:
		if neigh.State < state.NeighbourTwoWay {
			neigh.State = state.NeighbourTwoWay
			s.Log.Debug("link confirmed bidirectional", "peer", from)
		}
		// There is no database exchange stage, so a two-way link is
		// immediately a full adjacency.
		neigh.State = state.NeighbourFull
		s.Log.Info("adjacency established", "peer", from, "cost", neigh.Cost)
		flood := Get[*Flood](s)
		flood.SyncTo(s, from)
		return flood.Originate(s)
	case !seesUs && neigh.State >= state.NeighbourTwoWay:
		neigh.State = state.NeighbourInit
		s.Log.Warn("peer no longer hears us, adjacency reset", "peer", from)
		return Get[*Flood](s).Originate(s)
	}
	return nil
}

// SendHellos broadcasts on every configured link, reachable or not; hellos
// are how a dead link is discovered to be back.
func (n *NeighborMgr) SendHellos(s *state.State) error {
	seen := make([]string, 0, len(s.Neighbours))
	for _, neigh := range s.Neighbours {
		if neigh.State >= state.NeighbourInit {
			seen = append(seen, string(neigh.Id))
		}
	}
	slices.Sort(seen)

	for _, link := range s.Self().Links {
		n.W.SendTo(link.Peer, &protocol.Hello{Sender: string(s.Id), Seen: seen})
	}
	return nil
}

// Expire tears an adjacency down immediately, as if the dead interval had
// elapsed.
func (n *NeighborMgr) Expire(s *state.State, id state.RouterId) {
	n.live.Delete(id)
	n.expire(s, id)
}

func (n *NeighborMgr) expire(s *state.State, id state.RouterId) {
	neigh := s.GetNeighbour(id)
	if neigh == nil {
		return
	}
	wasFull := neigh.State == state.NeighbourFull
	s.RemoveNeighbour(id)
	s.Log.Warn("neighbour timed out", "peer", id, "state", neigh.State, "silent", time.Since(neigh.LastHello))
	if wasFull {
		if err := Get[*Flood](s).Originate(s); err != nil {
			s.Cancel(err)
		}
	}
}
