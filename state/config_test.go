package state

import (
	"net/netip"
	"testing"

	"github.com/goccy/go-yaml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const topoYaml = `
routers:
  - id: bob
    links:
      - peer: jeb
        bind: 127.0.0.1:23000
        endpoint: 127.0.0.1:23100
    subnets:
      - 10.1.0.0/24
  - id: jeb
    links:
      - peer: bob
        cost: 4
        bind: 127.0.0.1:23100
        endpoint: 127.0.0.1:23000
        name: uplink
`

func TestTopologyYaml(t *testing.T) {
	var topo TopologyCfg
	require.NoError(t, yaml.Unmarshal([]byte(topoYaml), &topo))
	ExpandTopology(&topo)
	require.NoError(t, TopologyValidator(&topo))

	bob := topo.GetRouter("bob")
	require.Len(t, bob.Links, 1)
	assert.Equal(t, RouterId("jeb"), bob.Links[0].Peer)
	assert.Equal(t, uint32(DefaultLinkCost), bob.Links[0].Cost, "omitted cost defaults")
	assert.Equal(t, "ln-jeb", bob.Links[0].IfaceName())
	assert.Equal(t, []netip.Prefix{netip.MustParsePrefix("10.1.0.0/24")}, bob.Subnets)

	jeb := topo.GetRouter("jeb")
	assert.Equal(t, uint32(4), jeb.Links[0].Cost)
	assert.Equal(t, "uplink", jeb.Links[0].IfaceName())
}

func TestTopologyValidator(t *testing.T) {
	valid := func() TopologyCfg {
		var topo TopologyCfg
		require.NoError(t, yaml.Unmarshal([]byte(topoYaml), &topo))
		ExpandTopology(&topo)
		return topo
	}

	cases := map[string]func(*TopologyCfg){
		"no routers":     func(c *TopologyCfg) { c.Routers = nil },
		"duplicate id":   func(c *TopologyCfg) { c.Routers[1].Id = "bob" },
		"bad name":       func(c *TopologyCfg) { c.Routers[0].Id = "Bob!" },
		"undefined peer": func(c *TopologyCfg) { c.Routers[0].Links[0].Peer = "kat" },
		"self link":      func(c *TopologyCfg) { c.Routers[0].Links[0].Peer = "bob" },
		"duplicate link": func(c *TopologyCfg) {
			c.Routers[0].Links = append(c.Routers[0].Links, c.Routers[0].Links[0])
		},
		"invalid bind": func(c *TopologyCfg) { c.Routers[0].Links[0].Bind = netip.AddrPort{} },
		"ipv6 endpoint": func(c *TopologyCfg) {
			c.Routers[0].Links[0].Endpoint = netip.MustParseAddrPort("[::1]:23000")
		},
		"ipv6 subnet": func(c *TopologyCfg) {
			c.Routers[0].Subnets = []netip.Prefix{netip.MustParsePrefix("fd00::/64")}
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			topo := valid()
			mutate(&topo)
			assert.Error(t, TopologyValidator(&topo))
		})
	}

	topo := valid()
	require.NoError(t, TopologyValidator(&topo))
	assert.Error(t, LocalValidator(&topo, &LocalCfg{Id: "kat"}))
	assert.NoError(t, LocalValidator(&topo, &LocalCfg{Id: "bob"}))
}
