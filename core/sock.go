package core

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/linen-net/linen/protocol"
	"github.com/linen-net/linen/state"
)

// Wire sends a protocol message towards a configured neighbour. Sock is the
// production implementation; tests substitute an in-process fabric.
type Wire interface {
	SendTo(neigh state.RouterId, m protocol.Message)
}

type linkSock struct {
	cfg  state.LinkCfg
	conn *net.UDPConn
}

type outPacket struct {
	link *linkSock
	buf  []byte
}

// Sock owns one UDP socket per configured link. Each socket gets a read
// goroutine that decodes packets and hands them to the main loop; a single
// write goroutine drains the bounded outbound queue. When the queue is full
// SendTo blocks, which stalls the main loop rather than dropping protocol
// traffic.
type Sock struct {
	e     *state.Env
	links map[state.RouterId]*linkSock
	out   chan outPacket
	eg    errgroup.Group
}

func (q *Sock) Init(s *state.State) error {
	q.e = s.Env
	q.links = make(map[state.RouterId]*linkSock)
	q.out = make(chan outPacket, state.OutboundQueueLen)

	for _, link := range s.Self().Links {
		conn, err := net.ListenUDP("udp4", net.UDPAddrFromAddrPort(link.Bind))
		if err != nil {
			return fmt.Errorf("bind %s for link to %s: %w", link.Bind, link.Peer, err)
		}
		ls := &linkSock{cfg: link, conn: conn}
		q.links[link.Peer] = ls
		s.Log.Debug("link socket up", "peer", link.Peer, "bind", link.Bind, "endpoint", link.Endpoint)
		q.eg.Go(func() error {
			return q.readLoop(ls)
		})
	}

	q.eg.Go(q.writeLoop)
	return nil
}

func (q *Sock) Cleanup(s *state.State) error {
	for _, ls := range q.links {
		_ = ls.conn.Close()
	}
	return q.eg.Wait()
}

func (q *Sock) SendTo(neigh state.RouterId, m protocol.Message) {
	ls, ok := q.links[neigh]
	if !ok {
		q.e.Log.Warn("send to router without a configured link", "peer", neigh)
		return
	}
	select {
	case q.out <- outPacket{link: ls, buf: protocol.Encode(m)}:
	case <-q.e.Context.Done():
	}
}

func (q *Sock) writeLoop() error {
	for {
		select {
		case pkt := <-q.out:
			_, err := pkt.link.conn.WriteToUDPAddrPort(pkt.buf, pkt.link.cfg.Endpoint)
			if err != nil {
				q.e.Log.Warn("write failed", "peer", pkt.link.cfg.Peer, "error", err)
			}
		case <-q.e.Context.Done():
			return nil
		}
	}
}

func (q *Sock) readLoop(ls *linkSock) error {
	buf := make([]byte, state.MaxPacketSize)
	for q.e.Context.Err() == nil {
		err := ls.conn.SetReadDeadline(time.Now().Add(state.ReadTimeout))
		if err != nil {
			return err
		}
		n, addr, err := ls.conn.ReadFromUDPAddrPort(buf)
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				continue
			}
			if q.e.Context.Err() != nil {
				return nil
			}
			return err
		}
		q.handlePacket(ls, buf[:n], addr)
	}
	return nil
}

func (q *Sock) handlePacket(ls *linkSock, buf []byte, addr netip.AddrPort) {
	msg, err := protocol.Decode(buf)
	if err != nil {
		q.e.Log.Warn("dropping packet", "link", ls.cfg.Peer, "from", addr, "error", err)
		return
	}
	from := ls.cfg.Peer
	q.e.Dispatch(func(s *state.State) error {
		switch pkt := msg.(type) {
		case *protocol.Hello:
			return Get[*NeighborMgr](s).HandleHello(s, from, pkt)
		case *protocol.Lsa:
			return Get[*Flood](s).HandleLsa(s, from, pkt)
		}
		return nil
	})
}
