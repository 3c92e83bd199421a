package core_test

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linen-net/linen/core"
	"github.com/linen-net/linen/mock"
	"github.com/linen-net/linen/protocol"
	"github.com/linen-net/linen/state"
)

func pairNet(t *testing.T) *mock.Net {
	t.Helper()
	net, err := mock.NewNet(mock.Topology([]mock.Edge{{A: "bob", B: "jeb", Cost: 1}}))
	require.NoError(t, err)
	t.Cleanup(net.Stop)
	return net
}

func TestAdjacencyComesUp(t *testing.T) {
	net := pairNet(t)
	bob, jeb := net.States["bob"], net.States["jeb"]

	// first exchange: both sides learn the other exists
	require.NoError(t, net.Round())
	require.NotNil(t, bob.GetNeighbour("jeb"))
	assert.Equal(t, state.NeighbourInit, bob.GetNeighbour("jeb").State)
	assert.Equal(t, state.NeighbourInit, jeb.GetNeighbour("bob").State)

	// second exchange: hellos list the other side, adjacency comes up
	require.NoError(t, net.Round())
	assert.Equal(t, state.NeighbourFull, bob.GetNeighbour("jeb").State)
	assert.Equal(t, state.NeighbourFull, jeb.GetNeighbour("bob").State)

	// and routes to each other's subnet follow
	assert.Contains(t, net.Sinks["bob"].Routes, netip.MustParsePrefix("10.2.0.0/24"))
	assert.Contains(t, net.Sinks["jeb"].Routes, netip.MustParsePrefix("10.1.0.0/24"))

	got := net.Sinks["bob"].Routes[netip.MustParsePrefix("10.2.0.0/24")]
	assert.Equal(t, state.RouterId("jeb"), got.Nh)
	assert.Equal(t, uint32(1), got.Cost)
	assert.Equal(t, "ln-jeb", got.Iface)
}

func TestTwoWayTransitions(t *testing.T) {
	net := pairNet(t)
	bob := net.States["bob"]
	require.NoError(t, net.Round())
	neigh := bob.GetNeighbour("jeb")
	require.Equal(t, state.NeighbourInit, neigh.State)

	// bidirectional confirmation goes through TwoWay straight to Full
	mgr := core.Get[*core.NeighborMgr](bob)
	require.NoError(t, mgr.HandleHello(bob, "jeb", &protocol.Hello{Sender: "jeb", Seen: []string{"bob"}}))
	assert.Equal(t, state.NeighbourFull, neigh.State)

	// an adjacency stuck at TwoWay regresses like a full one
	neigh.State = state.NeighbourTwoWay
	require.NoError(t, mgr.HandleHello(bob, "jeb", &protocol.Hello{Sender: "jeb"}))
	assert.Equal(t, state.NeighbourInit, neigh.State)

	// and comes back up once the peer hears us again
	require.NoError(t, mgr.HandleHello(bob, "jeb", &protocol.Hello{Sender: "jeb", Seen: []string{"bob"}}))
	assert.Equal(t, state.NeighbourFull, neigh.State)
}

func TestHelloSenderMismatch(t *testing.T) {
	net := pairNet(t)
	bob := net.States["bob"]

	err := core.Get[*core.NeighborMgr](bob).HandleHello(bob, "jeb", &protocol.Hello{Sender: "kat"})
	require.NoError(t, err)
	assert.Nil(t, bob.GetNeighbour("jeb"), "forged hello must not create an adjacency")
}

func TestHelloWithoutConfiguredLink(t *testing.T) {
	net := pairNet(t)
	bob := net.States["bob"]

	err := core.Get[*core.NeighborMgr](bob).HandleHello(bob, "kat", &protocol.Hello{Sender: "kat"})
	require.NoError(t, err)
	assert.Nil(t, bob.GetNeighbour("kat"))
}

func TestAdjacencyRegression(t *testing.T) {
	net := pairNet(t)
	bob := net.States["bob"]
	require.NoError(t, net.Converge(3))
	require.Equal(t, state.NeighbourFull, bob.GetNeighbour("jeb").State)

	// jeb stops listing us, as if it restarted and lost its neighbour table
	err := core.Get[*core.NeighborMgr](bob).HandleHello(bob, "jeb", &protocol.Hello{Sender: "jeb"})
	require.NoError(t, err)
	assert.Equal(t, state.NeighbourInit, bob.GetNeighbour("jeb").State)
	assert.Empty(t, net.Sinks["bob"].Routes, "a half-open link carries no routes")
}

func TestNeighbourExpiry(t *testing.T) {
	net := pairNet(t)
	bob, jeb := net.States["bob"], net.States["jeb"]
	require.NoError(t, net.Converge(3))
	require.NotEmpty(t, net.Sinks["bob"].Routes)

	require.NoError(t, net.FailLink("bob", "jeb"))
	assert.Nil(t, bob.GetNeighbour("jeb"))
	assert.Nil(t, jeb.GetNeighbour("bob"))
	assert.Empty(t, net.Sinks["bob"].Routes)
	assert.Empty(t, net.Sinks["jeb"].Routes)
}
