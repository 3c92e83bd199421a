package state

import (
	"context"
	"log/slog"
	"slices"
)

type Module interface {
	Init(s *State) error
	Cleanup(s *State) error
}

// State access must be done only on the main loop goroutine.
type State struct {
	*Env
	Modules    map[string]Module
	Neighbours []*Neighbour
	Db         *Lsdb
}

// Env can be read from any goroutine.
type Env struct {
	DispatchChannel chan<- func(s *State) error
	TopologyCfg
	LocalCfg
	Context context.Context
	Cancel  context.CancelCauseFunc
	Log     *slog.Logger
}

func (s *State) GetNeighbour(router RouterId) *Neighbour {
	nIdx := slices.IndexFunc(s.Neighbours, func(neighbour *Neighbour) bool {
		return neighbour.Id == router
	})
	if nIdx == -1 {
		return nil
	}
	return s.Neighbours[nIdx]
}

func (s *State) RemoveNeighbour(router RouterId) {
	s.Neighbours = slices.DeleteFunc(s.Neighbours, func(neighbour *Neighbour) bool {
		return neighbour.Id == router
	})
}

// FullNeighbours returns the neighbours whose adjacency is established, in
// stable id order.
func (s *State) FullNeighbours() []*Neighbour {
	full := make([]*Neighbour, 0, len(s.Neighbours))
	for _, n := range s.Neighbours {
		if n.State == NeighbourFull {
			full = append(full, n)
		}
	}
	slices.SortFunc(full, func(a, b *Neighbour) int {
		return cmpRouterId(a.Id, b.Id)
	})
	return full
}

func cmpRouterId(a, b RouterId) int {
	if a < b {
		return -1
	} else if a > b {
		return 1
	}
	return 0
}
