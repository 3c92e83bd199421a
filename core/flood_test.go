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

func lineNet(t *testing.T) *mock.Net {
	t.Helper()
	net, err := mock.NewNet(mock.LineCfg())
	require.NoError(t, err)
	t.Cleanup(net.Stop)
	require.NoError(t, net.Converge(3))
	return net
}

func TestFloodSplitHorizon(t *testing.T) {
	net := lineNet(t)
	jeb := net.States["jeb"]
	net.Fabric.TakeTrace()

	// a fresh advertisement arriving from bob must go onward to kat only
	pkt := &protocol.Lsa{
		Origin: "bob",
		Seqno:  99,
		Links:  []protocol.Link{{Neighbor: "jeb", Cost: 1}},
	}
	require.NoError(t, core.Get[*core.Flood](jeb).HandleLsa(jeb, "bob", pkt))

	trace := net.Fabric.TakeTrace()
	assert.Contains(t, trace, "jeb->kat LSA")
	assert.NotContains(t, trace, "jeb->bob LSA")

	require.NoError(t, net.Deliver())
	require.NotNil(t, net.States["kat"].Db.Get("bob"))
	assert.Equal(t, uint64(99), net.States["kat"].Db.Get("bob").Seqno)
}

func TestFloodDropsStaleSilently(t *testing.T) {
	net := lineNet(t)
	jeb := net.States["jeb"]
	cur := jeb.Db.Get("bob").Seqno
	net.Fabric.TakeTrace()

	stale := &protocol.Lsa{Origin: "bob", Seqno: 0}
	require.NoError(t, core.Get[*core.Flood](jeb).HandleLsa(jeb, "kat", stale))

	assert.Equal(t, cur, jeb.Db.Get("bob").Seqno)
	assert.Empty(t, net.Fabric.TakeTrace(), "a rejected advertisement must not be rebroadcast")
}

func TestFloodDropsUnknownOrigin(t *testing.T) {
	net := lineNet(t)
	jeb := net.States["jeb"]

	pkt := &protocol.Lsa{Origin: "zed", Seqno: 1}
	require.NoError(t, core.Get[*core.Flood](jeb).HandleLsa(jeb, "bob", pkt))
	assert.Nil(t, jeb.Db.Get("zed"))
}

func TestStaleSelfCopyIsDisplaced(t *testing.T) {
	net := lineNet(t)
	jeb := net.States["jeb"]

	// a peer still holds our advertisement from a previous run, with a
	// seqno far ahead of ours; we must leapfrog it
	echo := &protocol.Lsa{Origin: "jeb", Seqno: 50}
	require.NoError(t, core.Get[*core.Flood](jeb).HandleLsa(jeb, "bob", echo))
	require.NoError(t, net.Deliver())

	assert.Equal(t, uint64(51), jeb.Db.Get("jeb").Seqno)
	assert.Equal(t, uint64(51), net.States["bob"].Db.Get("jeb").Seqno)
	assert.Equal(t, uint64(51), net.States["kat"].Db.Get("jeb").Seqno)
}

func TestSilentOriginAgesOut(t *testing.T) {
	net := lineNet(t)

	// bob goes quiet. jeb and kat keep aging their databases and refreshing
	// on the usual cadence, so only bob's advertisement runs out of age.
	for i := range int(state.MaxAge) + 1 {
		for _, id := range []state.RouterId{"jeb", "kat"} {
			st := net.States[id]
			flood := core.Get[*core.Flood](st)
			require.NoError(t, flood.AgeTick(st))
			if i%30 == 29 {
				require.NoError(t, flood.Originate(st))
			}
		}
		require.NoError(t, net.Deliver())
	}

	bobNet := netip.MustParsePrefix("10.1.0.0/24")
	assert.Nil(t, net.States["jeb"].Db.Get("bob"))
	assert.NotContains(t, net.Sinks["jeb"].Routes, bobNet, "evicted origin's routes are withdrawn")
	assert.NotContains(t, net.Sinks["kat"].Routes, bobNet)
	assert.Contains(t, net.Sinks["jeb"].Actions, "REMOVE 10.1.0.0/24")

	// the refreshed origins are unaffected
	assert.Contains(t, net.Sinks["jeb"].Routes, netip.MustParsePrefix("10.3.0.0/24"))
	assert.Contains(t, net.Sinks["kat"].Routes, netip.MustParsePrefix("10.2.0.0/24"))
}

func TestRefreshBumpsSeqno(t *testing.T) {
	net := lineNet(t)
	bob, jeb := net.States["bob"], net.States["jeb"]
	before := jeb.Db.Get("bob").Seqno

	// the periodic refresh re-originates with the next seqno and every peer
	// accepts the update
	require.NoError(t, core.Get[*core.Flood](bob).Originate(bob))
	require.NoError(t, net.Deliver())

	assert.Equal(t, before+1, jeb.Db.Get("bob").Seqno)
	assert.Equal(t, before+1, net.States["kat"].Db.Get("bob").Seqno)
}
