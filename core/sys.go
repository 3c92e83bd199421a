package core

import (
	"log/slog"
	"net/netip"
)

// RouteSink receives the computed routing table changes. The production sink
// programs the kernel; tests record the calls instead.
type RouteSink interface {
	Install(route RouteEntry) error
	Remove(subnet netip.Prefix) error
}

// SysSink programs routes with iproute2. Install uses route replace so a
// crashed previous run cannot leave a conflicting route behind.
type SysSink struct {
	Log *slog.Logger
}

func (k *SysSink) Install(route RouteEntry) error {
	return Exec(k.Log, "ip", "route", "replace", route.Subnet.String(), "via", route.Via.String())
}

func (k *SysSink) Remove(subnet netip.Prefix) error {
	return Exec(k.Log, "ip", "route", "del", subnet.String())
}
