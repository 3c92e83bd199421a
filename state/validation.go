package state

import (
	"fmt"
	"regexp"
)

var namePattern = regexp.MustCompile("^[0-9a-z._-]+$")

func NameValidator(s string) error {
	if !namePattern.MatchString(s) {
		return fmt.Errorf("%s is not a valid name, must match pattern %s", s, namePattern.String())
	}
	if len(s) > 100 {
		return fmt.Errorf("len(\"%s\") = %d > 100 is too long", s, len(s))
	}
	return nil
}

func TopologyValidator(cfg *TopologyCfg) error {
	if len(cfg.Routers) == 0 {
		return fmt.Errorf("topology has no routers")
	}
	seen := make(map[RouterId]bool)
	for _, router := range cfg.Routers {
		if err := NameValidator(string(router.Id)); err != nil {
			return err
		}
		if seen[router.Id] {
			return fmt.Errorf("duplicate router id: %s", router.Id)
		}
		seen[router.Id] = true
	}
	for _, router := range cfg.Routers {
		links := make(map[RouterId]bool)
		for _, link := range router.Links {
			if !seen[link.Peer] {
				return fmt.Errorf("router %s links to undefined router %s", router.Id, link.Peer)
			}
			if link.Peer == router.Id {
				return fmt.Errorf("router %s links to itself", router.Id)
			}
			if links[link.Peer] {
				return fmt.Errorf("router %s has duplicate link to %s", router.Id, link.Peer)
			}
			links[link.Peer] = true
			if !link.Bind.IsValid() {
				return fmt.Errorf("router %s link to %s: bind address is invalid", router.Id, link.Peer)
			}
			if !link.Endpoint.IsValid() {
				return fmt.Errorf("router %s link to %s: endpoint address is invalid", router.Id, link.Peer)
			}
			if !link.Bind.Addr().Is4() || !link.Endpoint.Addr().Is4() {
				return fmt.Errorf("router %s link to %s: only IPv4 addresses are supported", router.Id, link.Peer)
			}
		}
		for _, subnet := range router.Subnets {
			if !subnet.IsValid() || !subnet.Addr().Is4() {
				return fmt.Errorf("router %s serves invalid subnet %s", router.Id, subnet)
			}
		}
	}
	return nil
}

func LocalValidator(topo *TopologyCfg, local *LocalCfg) error {
	if err := NameValidator(string(local.Id)); err != nil {
		return err
	}
	if !topo.IsRouter(local.Id) {
		return fmt.Errorf("router %s is not part of the topology", local.Id)
	}
	return nil
}
