package state

import (
	"net/netip"
	"slices"
)

type RouterId string

// LinkCfg describes one router-facing interface: the local socket it binds,
// the peer's socket, and the static cost announced for the link.
type LinkCfg struct {
	Peer     RouterId
	Cost     uint32 `yaml:",omitempty"`
	Bind     netip.AddrPort
	Endpoint netip.AddrPort
	Name     string `yaml:",omitempty"`
}

// IfaceName returns the configured interface name, or a stable default
// derived from the peer id.
func (l LinkCfg) IfaceName() string {
	if l.Name != "" {
		return l.Name
	}
	return "ln-" + string(l.Peer)
}

// RouterCfg is the generator's description of one router: its router-facing
// links and the host-facing subnets it serves directly.
type RouterCfg struct {
	Id      RouterId
	Links   []LinkCfg      `yaml:",omitempty"`
	Subnets []netip.Prefix `yaml:",omitempty"`
}

// TopologyCfg is the network-wide startup input produced by the external
// topology generator and consumed once at startup.
type TopologyCfg struct {
	Routers []RouterCfg
}

// LocalCfg is node-local configuration.
type LocalCfg struct {
	Id      RouterId
	LogPath string `yaml:"log_path,omitempty"`
}

func (c *TopologyCfg) IsRouter(router RouterId) bool {
	return slices.ContainsFunc(c.Routers, func(cfg RouterCfg) bool {
		return cfg.Id == router
	})
}

func (c *TopologyCfg) TryGetRouter(router RouterId) *RouterCfg {
	idx := slices.IndexFunc(c.Routers, func(cfg RouterCfg) bool {
		return cfg.Id == router
	})
	if idx == -1 {
		return nil
	}
	return &c.Routers[idx]
}

func (c *TopologyCfg) GetRouter(router RouterId) RouterCfg {
	cfg := c.TryGetRouter(router)
	if cfg == nil {
		panic("router " + string(router) + " not found")
	}
	return *cfg
}

// Self returns this router's own topology entry.
func (e *Env) Self() RouterCfg {
	return e.GetRouter(e.Id)
}

// GetLink returns this router's link to the given peer, or nil if the
// topology does not connect them directly.
func (e *Env) GetLink(peer RouterId) *LinkCfg {
	self := e.TryGetRouter(e.Id)
	if self == nil {
		return nil
	}
	idx := slices.IndexFunc(self.Links, func(l LinkCfg) bool {
		return l.Peer == peer
	})
	if idx == -1 {
		return nil
	}
	return &self.Links[idx]
}

// ExpandTopology fills in defaults the generator may omit.
func ExpandTopology(cfg *TopologyCfg) {
	for ri, router := range cfg.Routers {
		for li, link := range router.Links {
			if link.Cost == 0 {
				cfg.Routers[ri].Links[li].Cost = DefaultLinkCost
			}
		}
	}
}
