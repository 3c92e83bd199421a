package core

import (
	"container/heap"
	"net/netip"
	"slices"
	"strings"

	"github.com/gaissmai/bart"

	"github.com/linen-net/linen/state"
)

type RouteEntry struct {
	Subnet netip.Prefix
	Nh     state.RouterId
	Via    netip.Addr
	Iface  string
	Cost   uint32
}

// Router turns the link-state database into an installed routing table. Each
// recompute runs Dijkstra over a database snapshot, derives the desired
// table, and diffs it against what is currently installed so the sink only
// sees actual changes.
type Router struct {
	Sink      RouteSink
	Table     bart.Table[RouteEntry]
	installed map[netip.Prefix]RouteEntry
	pending   bool
}

func (r *Router) Init(s *state.State) error {
	r.Table = bart.Table[RouteEntry]{}
	r.installed = make(map[netip.Prefix]RouteEntry)
	return nil
}

func (r *Router) Cleanup(s *state.State) error {
	// best effort, the process is going away
	for subnet := range r.installed {
		if err := r.Sink.Remove(subnet); err != nil {
			s.Log.Warn("failed to remove route during cleanup", "subnet", subnet, "error", err)
		}
	}
	return nil
}

// ScheduleRecompute debounces recomputation: a burst of advertisements
// converges into a single Dijkstra run after a short settle delay. Without a
// dispatch channel (tests driving state directly) it recomputes in place.
func (r *Router) ScheduleRecompute(s *state.State) error {
	if s.DispatchChannel == nil {
		return r.Recompute(s)
	}
	if r.pending {
		return nil
	}
	r.pending = true
	s.ScheduleTask(func(s *state.State) error {
		r.pending = false
		return r.Recompute(s)
	}, state.RecomputeDelay)
	return nil
}

func (r *Router) Recompute(s *state.State) error {
	graph := s.Db.Snapshot()
	dist, firstHop := shortestPaths(graph, s.Id)

	desired := make(map[netip.Prefix]RouteEntry)
	origins := make([]state.RouterId, 0, len(graph.Subnets))
	for origin := range graph.Subnets {
		origins = append(origins, origin)
	}
	slices.Sort(origins)
	for _, origin := range origins {
		if origin == s.Id {
			continue
		}
		nh, reachable := firstHop[origin]
		if !reachable {
			continue
		}
		link := s.GetLink(nh)
		if link == nil {
			continue
		}
		for _, subnet := range graph.Subnets[origin] {
			entry := RouteEntry{
				Subnet: subnet,
				Nh:     nh,
				Via:    link.Endpoint.Addr(),
				Iface:  link.IfaceName(),
				Cost:   dist[origin],
			}
			// two origins may serve the same subnet; keep the cheaper
			// path, and on a tie the origin iteration order keeps the
			// lowest id
			if cur, ok := desired[subnet]; ok && cur.Cost <= entry.Cost {
				continue
			}
			desired[subnet] = entry
		}
	}

	return r.apply(s, desired)
}

// apply diffs the desired table against the installed one and pushes the
// difference to the sink, removals first. A sink failure is fatal: a router
// that cannot program routes is worse than a dead one.
func (r *Router) apply(s *state.State, desired map[netip.Prefix]RouteEntry) error {
	for _, subnet := range sortedPrefixes(r.installed) {
		want, ok := desired[subnet]
		if ok && want == r.installed[subnet] {
			continue
		}
		if err := r.Sink.Remove(subnet); err != nil {
			return err
		}
		r.Table.Delete(subnet)
		delete(r.installed, subnet)
		if !ok {
			s.Log.Info("route removed", "subnet", subnet)
		}
	}
	for _, subnet := range sortedPrefixes(desired) {
		entry := desired[subnet]
		if _, ok := r.installed[subnet]; ok {
			continue
		}
		if err := r.Sink.Install(entry); err != nil {
			return err
		}
		r.Table.Insert(subnet, entry)
		r.installed[subnet] = entry
		s.Log.Info("route installed", "subnet", subnet, "via", entry.Nh, "cost", entry.Cost)
	}
	return nil
}

// Lookup returns the installed route covering addr, if any.
func (r *Router) Lookup(addr netip.Addr) (RouteEntry, bool) {
	return r.Table.Lookup(addr)
}

func sortedPrefixes[V any](m map[netip.Prefix]V) []netip.Prefix {
	out := make([]netip.Prefix, 0, len(m))
	for p := range m {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b netip.Prefix) int {
		return strings.Compare(a.String(), b.String())
	})
	return out
}

// shortestPaths is Dijkstra from src over the snapshot graph. It returns the
// path cost and the first-hop neighbour for every reachable router. Ties are
// broken towards the lowest first-hop id, so every recompute over the same
// graph lands on the same table. Link costs are at least one, which
// guarantees every predecessor on a shortest path is finalized before its
// successor pops.
func shortestPaths(g *state.Graph, src state.RouterId) (map[state.RouterId]uint32, map[state.RouterId]state.RouterId) {
	dist := map[state.RouterId]uint32{src: 0}
	firstHop := make(map[state.RouterId]state.RouterId)
	visited := make(map[state.RouterId]bool)

	pq := &pathHeap{{id: src}}
	for pq.Len() > 0 {
		cur := heap.Pop(pq).(pathItem)
		if visited[cur.id] {
			continue
		}
		visited[cur.id] = true
		for _, link := range g.Edges[cur.id] {
			next := link.Neighbor
			if visited[next] {
				continue
			}
			hop := next
			if cur.id != src {
				hop = firstHop[cur.id]
			}
			nd := cur.dist + link.Cost
			d, seen := dist[next]
			switch {
			case !seen || nd < d:
				dist[next] = nd
				firstHop[next] = hop
				heap.Push(pq, pathItem{id: next, dist: nd})
			case nd == d && hop < firstHop[next]:
				firstHop[next] = hop
			}
		}
	}
	return dist, firstHop
}

type pathItem struct {
	id   state.RouterId
	dist uint32
}

type pathHeap []pathItem

func (h pathHeap) Len() int { return len(h) }
func (h pathHeap) Less(i, j int) bool {
	if h[i].dist != h[j].dist {
		return h[i].dist < h[j].dist
	}
	return h[i].id < h[j].id
}
func (h pathHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *pathHeap) Push(x any)   { *h = append(*h, x.(pathItem)) }
func (h *pathHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
