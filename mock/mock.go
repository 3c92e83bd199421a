// Package mock provides canned topologies and an in-process message fabric
// for exercising routers without real sockets or a kernel.
package mock

import (
	"fmt"
	"net/netip"
	"slices"

	"github.com/linen-net/linen/state"
)

type Edge struct {
	A, B state.RouterId
	Cost uint32
}

const basePort = 23000

// Topology builds a full TopologyCfg from an edge list. Every router gets a
// deterministic loopback bind per link and one /24 it serves.
func Topology(edges []Edge) state.TopologyCfg {
	var names []state.RouterId
	for _, e := range edges {
		if !slices.Contains(names, e.A) {
			names = append(names, e.A)
		}
		if !slices.Contains(names, e.B) {
			names = append(names, e.B)
		}
	}
	slices.Sort(names)

	idx := make(map[state.RouterId]int, len(names))
	cfg := state.TopologyCfg{}
	for i, name := range names {
		idx[name] = i
		cfg.Routers = append(cfg.Routers, state.RouterCfg{
			Id:      name,
			Subnets: []netip.Prefix{netip.MustParsePrefix(fmt.Sprintf("10.%d.0.0/24", i+1))},
		})
	}

	port := func(from, to state.RouterId) uint16 {
		return uint16(basePort + idx[from]*len(names) + idx[to])
	}
	addLink := func(from, to state.RouterId, cost uint32) {
		rtr := &cfg.Routers[idx[from]]
		rtr.Links = append(rtr.Links, state.LinkCfg{
			Peer:     to,
			Cost:     cost,
			Bind:     netip.AddrPortFrom(netip.MustParseAddr("127.0.0.1"), port(from, to)),
			Endpoint: netip.AddrPortFrom(netip.MustParseAddr("127.0.0.1"), port(to, from)),
		})
	}
	for _, e := range edges {
		addLink(e.A, e.B, e.Cost)
		addLink(e.B, e.A, e.Cost)
	}

	state.ExpandTopology(&cfg)
	return cfg
}

// LineCfg is the smallest interesting network:
//
//	bob --1-- jeb --2-- kat
func LineCfg() state.TopologyCfg {
	return Topology([]Edge{
		{"bob", "jeb", 1},
		{"jeb", "kat", 2},
	})
}

// MockCfg is a five router network with a cheap ring and an expensive
// shortcut:
//
//	bob ---1--- jeb
//	 | \         |
//	 10  1       1
//	 |    \      |
//	eve -1- kat -+
//	 \2     |1
//	  \     |
//	   +-- ada
func MockCfg() state.TopologyCfg {
	return Topology([]Edge{
		{"bob", "jeb", 1},
		{"bob", "kat", 1},
		{"bob", "eve", 10},
		{"jeb", "kat", 1},
		{"kat", "ada", 1},
		{"kat", "eve", 1},
		{"eve", "ada", 2},
	})
}
