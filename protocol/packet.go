// Package protocol implements the wire encoding shared by every router.
// Messages are a fixed-layout big-endian binary format: a version byte, a
// type discriminator, then type-specific fields. Strings carry a one-byte
// length prefix, repeated fields a two-byte count.
package protocol

import (
	"encoding/binary"
	"fmt"
	"math"
	"net/netip"
)

const Version = 1

const (
	typeHello = 1
	typeLsa   = 2
)

// Message is a decoded wire packet, either *Hello or *Lsa.
type Message interface {
	message()
}

// Hello announces the sender's presence on a link. Seen lists every router
// the sender has currently heard from, which is how the receiver learns the
// link works in both directions.
type Hello struct {
	Sender string
	Seen   []string
}

func (*Hello) message() {}

// Link is one adjacency claim carried inside an Lsa.
type Link struct {
	Neighbor string
	Cost     uint32
}

// Lsa is a link-state advertisement: the origin's full set of adjacencies
// and directly served subnets at sequence number Seqno. Age is the seconds
// the advertisement spent in databases before this hop.
type Lsa struct {
	Origin  string
	Seqno   uint64
	Age     uint32
	Links   []Link
	Subnets []netip.Prefix
}

func (*Lsa) message() {}

// DecodeError reports a malformed packet. Receivers drop the packet and
// carry on; a corrupt peer must not take the router down.
type DecodeError struct {
	Reason string
}

func (e *DecodeError) Error() string {
	return "malformed packet: " + e.Reason
}

func decodeErrorf(format string, args ...any) error {
	return &DecodeError{Reason: fmt.Sprintf(format, args...)}
}

func Encode(m Message) []byte {
	buf := []byte{Version}
	switch p := m.(type) {
	case *Hello:
		buf = append(buf, typeHello)
		buf = appendString(buf, p.Sender)
		buf = binary.BigEndian.AppendUint16(buf, uint16(len(p.Seen)))
		for _, id := range p.Seen {
			buf = appendString(buf, id)
		}
	case *Lsa:
		buf = append(buf, typeLsa)
		buf = appendString(buf, p.Origin)
		buf = binary.BigEndian.AppendUint64(buf, p.Seqno)
		buf = binary.BigEndian.AppendUint32(buf, p.Age)
		buf = binary.BigEndian.AppendUint16(buf, uint16(len(p.Links)))
		for _, link := range p.Links {
			buf = appendString(buf, link.Neighbor)
			buf = binary.BigEndian.AppendUint32(buf, link.Cost)
		}
		buf = binary.BigEndian.AppendUint16(buf, uint16(len(p.Subnets)))
		for _, subnet := range p.Subnets {
			addr := subnet.Addr().As4()
			buf = append(buf, addr[:]...)
			buf = append(buf, byte(subnet.Bits()))
		}
	default:
		panic(fmt.Sprintf("unknown message type %T", m))
	}
	return buf
}

func appendString(buf []byte, s string) []byte {
	if len(s) > math.MaxUint8 {
		panic(fmt.Sprintf("string field too long: %d bytes", len(s)))
	}
	buf = append(buf, byte(len(s)))
	return append(buf, s...)
}

func Decode(buf []byte) (Message, error) {
	r := reader{buf: buf}
	version, err := r.u8()
	if err != nil {
		return nil, err
	}
	if version != Version {
		return nil, decodeErrorf("unsupported version %d", version)
	}
	kind, err := r.u8()
	if err != nil {
		return nil, err
	}
	var m Message
	switch kind {
	case typeHello:
		m, err = decodeHello(&r)
	case typeLsa:
		m, err = decodeLsa(&r)
	default:
		return nil, decodeErrorf("unknown message type %d", kind)
	}
	if err != nil {
		return nil, err
	}
	if len(r.buf) != 0 {
		return nil, decodeErrorf("%d trailing bytes", len(r.buf))
	}
	return m, nil
}

func decodeHello(r *reader) (*Hello, error) {
	h := &Hello{}
	var err error
	if h.Sender, err = r.str(); err != nil {
		return nil, err
	}
	n, err := r.u16()
	if err != nil {
		return nil, err
	}
	for range n {
		id, err := r.str()
		if err != nil {
			return nil, err
		}
		h.Seen = append(h.Seen, id)
	}
	return h, nil
}

func decodeLsa(r *reader) (*Lsa, error) {
	l := &Lsa{}
	var err error
	if l.Origin, err = r.str(); err != nil {
		return nil, err
	}
	if l.Seqno, err = r.u64(); err != nil {
		return nil, err
	}
	if l.Age, err = r.u32(); err != nil {
		return nil, err
	}
	links, err := r.u16()
	if err != nil {
		return nil, err
	}
	for range links {
		var link Link
		if link.Neighbor, err = r.str(); err != nil {
			return nil, err
		}
		if link.Cost, err = r.u32(); err != nil {
			return nil, err
		}
		l.Links = append(l.Links, link)
	}
	subnets, err := r.u16()
	if err != nil {
		return nil, err
	}
	for range subnets {
		raw, err := r.take(5)
		if err != nil {
			return nil, err
		}
		addr := netip.AddrFrom4([4]byte(raw[:4]))
		bits := int(raw[4])
		if bits > 32 {
			return nil, decodeErrorf("prefix length %d out of range", bits)
		}
		subnet := netip.PrefixFrom(addr, bits)
		if subnet.Masked() != subnet {
			return nil, decodeErrorf("prefix %s has host bits set", subnet)
		}
		l.Subnets = append(l.Subnets, subnet)
	}
	return l, nil
}

// reader consumes buf front to back, failing cleanly on truncation.
type reader struct {
	buf []byte
}

func (r *reader) take(n int) ([]byte, error) {
	if len(r.buf) < n {
		return nil, decodeErrorf("truncated: need %d bytes, have %d", n, len(r.buf))
	}
	out := r.buf[:n]
	r.buf = r.buf[n:]
	return out, nil
}

func (r *reader) u8() (byte, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *reader) str() (string, error) {
	n, err := r.u8()
	if err != nil {
		return "", err
	}
	b, err := r.take(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (r *reader) u16() (uint16, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (r *reader) u32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (r *reader) u64() (uint64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}
