package core

import (
	"github.com/linen-net/linen/protocol"
	"github.com/linen-net/linen/state"
)

// Flood owns the local advertisement sequence number and the flooding rules:
// re-advertise on every adjacency change, refresh periodically so peers do
// not age us out, and rebroadcast accepted foreign advertisements everywhere
// except the link they came in on.
type Flood struct {
	W     Wire
	seqno uint64
}

func (f *Flood) Init(s *state.State) error {
	s.RepeatTask(f.Originate, state.RefreshInterval)
	s.RepeatTask(f.AgeTick, state.AgeTickInterval)
	return nil
}

func (f *Flood) Cleanup(s *state.State) error {
	return nil
}

// Originate rebuilds the local LSA from the current full adjacencies and
// floods it. The sequence number strictly increases across the router's
// lifetime, so peers can always tell this advertisement from the last.
func (f *Flood) Originate(s *state.State) error {
	f.seqno++
	full := s.FullNeighbours()
	lsa := &state.Lsa{
		Origin:  s.Id,
		Seqno:   f.seqno,
		Links:   make([]state.Link, 0, len(full)),
		Subnets: s.Self().Subnets,
	}
	for _, neigh := range full {
		lsa.Links = append(lsa.Links, state.Link{Neighbor: neigh.Id, Cost: neigh.Cost})
	}
	s.Db.Apply(lsa)
	s.Log.Debug("originating", "seqno", f.seqno, "links", len(lsa.Links))

	pkt := toWire(lsa)
	for _, neigh := range full {
		f.W.SendTo(neigh.Id, pkt)
	}
	return Get[*Router](s).ScheduleRecompute(s)
}

// SyncTo pushes every stored advertisement to a newly established
// neighbour. Flooding only reaches adjacencies that were up when the
// advertisement passed by, so a fresh adjacency starts with a full copy of
// the database instead of waiting for the next refresh cycle.
func (f *Flood) SyncTo(s *state.State, to state.RouterId) {
	for _, origin := range s.Db.Origins() {
		if origin == s.Id {
			continue
		}
		f.W.SendTo(to, toWire(s.Db.Get(origin)))
	}
}

// HandleLsa applies a received advertisement and, if it was news, floods it
// onward to every full neighbour except the one it arrived from. Stale and
// duplicate advertisements die here, which is what makes flooding terminate.
func (f *Flood) HandleLsa(s *state.State, from state.RouterId, pkt *protocol.Lsa) error {
	origin := state.RouterId(pkt.Origin)
	if !s.IsRouter(origin) {
		s.Log.Warn("advertisement from unknown origin", "origin", pkt.Origin, "link", from)
		return nil
	}
	if origin == s.Id {
		// a peer holds a fresher copy of our own advertisement, most
		// likely surviving from a previous run; jump past its seqno and
		// re-originate so the stale copy gets displaced everywhere
		if pkt.Seqno >= f.seqno {
			s.Log.Warn("peer has a fresher copy of our own advertisement", "seqno", pkt.Seqno, "link", from)
			f.seqno = pkt.Seqno
			return f.Originate(s)
		}
		return nil
	}
	if !s.Db.Apply(fromWire(pkt)) {
		s.Log.Debug("stale advertisement", "origin", pkt.Origin, "seqno", pkt.Seqno, "link", from)
		return nil
	}
	s.Log.Debug("accepted advertisement", "origin", pkt.Origin, "seqno", pkt.Seqno, "link", from)
	for _, neigh := range s.FullNeighbours() {
		if neigh.Id == from {
			continue
		}
		f.W.SendTo(neigh.Id, pkt)
	}
	return Get[*Router](s).ScheduleRecompute(s)
}

// AgeTick ages the database one step and reconverges if anything got evicted.
func (f *Flood) AgeTick(s *state.State) error {
	evicted := s.Db.Tick(1)
	if len(evicted) == 0 {
		return nil
	}
	s.Log.Warn("aged out advertisements", "origins", evicted)
	return Get[*Router](s).ScheduleRecompute(s)
}

func toWire(lsa *state.Lsa) *protocol.Lsa {
	pkt := &protocol.Lsa{
		Origin:  string(lsa.Origin),
		Seqno:   lsa.Seqno,
		Age:     lsa.Age,
		Subnets: lsa.Subnets,
	}
	for _, link := range lsa.Links {
		pkt.Links = append(pkt.Links, protocol.Link{Neighbor: string(link.Neighbor), Cost: link.Cost})
	}
	return pkt
}

func fromWire(pkt *protocol.Lsa) *state.Lsa {
	lsa := &state.Lsa{
		Origin:  state.RouterId(pkt.Origin),
		Seqno:   pkt.Seqno,
		Age:     pkt.Age,
		Subnets: pkt.Subnets,
	}
	for _, link := range pkt.Links {
		lsa.Links = append(lsa.Links, state.Link{Neighbor: state.RouterId(link.Neighbor), Cost: link.Cost})
	}
	return lsa
}
