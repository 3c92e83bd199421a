package state

import (
	"net/netip"
	"slices"
)

// Link is one directed adjacency claim inside an LSA.
type Link struct {
	Neighbor RouterId
	Cost     uint32
}

// Lsa is one router's claim about its current adjacencies and the subnets it
// serves directly. A newer sequence number replaces, never merges with, the
// previous advertisement from the same origin.
type Lsa struct {
	Origin  RouterId
	Seqno   uint64
	Age     uint32 // seconds since the local database accepted it
	Links   []Link
	Subnets []netip.Prefix
}

func (l *Lsa) Clone() *Lsa {
	cp := *l
	cp.Links = slices.Clone(l.Links)
	cp.Subnets = slices.Clone(l.Subnets)
	return &cp
}

// Lsdb holds the freshest known LSA per origin. It is only ever mutated from
// the main loop goroutine.
type Lsdb struct {
	entries map[RouterId]*Lsa
}

func NewLsdb() *Lsdb {
	return &Lsdb{entries: make(map[RouterId]*Lsa)}
}

// Apply installs the advertisement iff it is strictly fresher than what is
// stored for its origin. Stale and duplicate advertisements are rejected
// silently; rejection is expected and frequent, not an error. The stored
// sequence number per origin is therefore non-decreasing for the lifetime of
// the database.
func (db *Lsdb) Apply(lsa *Lsa) bool {
	cur, ok := db.entries[lsa.Origin]
	if ok && lsa.Seqno <= cur.Seqno {
		return false
	}
	cp := lsa.Clone()
	cp.Age = 0
	db.entries[lsa.Origin] = cp
	return true
}

func (db *Lsdb) Get(origin RouterId) *Lsa {
	return db.entries[origin]
}

func (db *Lsdb) Len() int {
	return len(db.entries)
}

// Origins returns the advertisement origins in stable order.
func (db *Lsdb) Origins() []RouterId {
	origins := make([]RouterId, 0, len(db.entries))
	for origin := range db.entries {
		origins = append(origins, origin)
	}
	slices.Sort(origins)
	return origins
}

// Tick advances the age of every stored LSA and evicts the ones past MaxAge,
// returning the evicted origins. An evicted origin is presumed unreachable.
func (db *Lsdb) Tick(elapsed uint32) []RouterId {
	var evicted []RouterId
	for origin, lsa := range db.entries {
		lsa.Age += elapsed
		if lsa.Age > MaxAge {
			delete(db.entries, origin)
			evicted = append(evicted, origin)
		}
	}
	slices.Sort(evicted)
	return evicted
}

// Graph is a point-in-time routable view of the database. Edges only include
// links confirmed in both directions; an adjacency claimed by one side alone
// would route traffic into a black hole.
type Graph struct {
	Edges   map[RouterId][]Link
	Subnets map[RouterId][]netip.Prefix
}

func (db *Lsdb) Snapshot() *Graph {
	g := &Graph{
		Edges:   make(map[RouterId][]Link, len(db.entries)),
		Subnets: make(map[RouterId][]netip.Prefix, len(db.entries)),
	}
	for origin, lsa := range db.entries {
		g.Subnets[origin] = slices.Clone(lsa.Subnets)
		for _, link := range lsa.Links {
			if !db.hasLink(link.Neighbor, origin) {
				continue
			}
			g.Edges[origin] = append(g.Edges[origin], link)
		}
	}
	for _, links := range g.Edges {
		slices.SortFunc(links, func(a, b Link) int {
			return cmpRouterId(a.Neighbor, b.Neighbor)
		})
	}
	return g
}

func (db *Lsdb) hasLink(from, to RouterId) bool {
	lsa, ok := db.entries[from]
	if !ok {
		return false
	}
	return slices.ContainsFunc(lsa.Links, func(l Link) bool {
		return l.Neighbor == to
	})
}
