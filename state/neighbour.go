package state

import (
	"net/netip"
	"time"
)

type NeighbourState int

const (
	NeighbourDown NeighbourState = iota
	NeighbourInit
	NeighbourTwoWay
	NeighbourFull
)

func (ns NeighbourState) String() string {
	switch ns {
	case NeighbourDown:
		return "Down"
	case NeighbourInit:
		return "Init"
	case NeighbourTwoWay:
		return "TwoWay"
	case NeighbourFull:
		return "Full"
	default:
		return "Unknown"
	}
}

// Neighbour is the adjacency record for a directly linked router. It is
// created on the first hello heard from the peer and purged when the peer
// stays silent past the dead interval.
type Neighbour struct {
	Id        RouterId
	Iface     string
	Endpoint  netip.AddrPort
	State     NeighbourState
	Cost      uint32
	LastHello time.Time
}
