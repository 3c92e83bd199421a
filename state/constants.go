package state

import "time"

var (
	// HelloInterval is how often a hello is emitted on every router-facing link.
	HelloInterval = 5 * time.Second
	// DeadInterval is how long a neighbour may stay silent before it is
	// declared down. Conventionally a small multiple of the hello interval.
	DeadInterval = 3 * HelloInterval
	// RefreshInterval is how often the self LSA is re-originated even when the
	// adjacency set is unchanged. Must stay well below MaxAge so a live
	// router's advertisement never ages out remotely.
	RefreshInterval = 30 * time.Second
	// MaxAge is the age, in seconds, past which a stored LSA is evicted and
	// its originator presumed unreachable.
	MaxAge          = uint32(120)
	AgeTickInterval = time.Second
	// RecomputeDelay coalesces bursts of LSDB changes into one Dijkstra run.
	RecomputeDelay = 200 * time.Millisecond

	OutboundQueueLen = 256
	ReadTimeout      = time.Second
	MaxPacketSize    = 8192

	DefaultLinkCost = uint32(1)
)
