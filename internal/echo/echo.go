// lookout
// (C) 2025, Deutsche Telekom IT GmbH
//
// Deutsche Telekom IT GmbH and all other contributors /
// copyright owners license this file to you under the Apache
// License, Version 2.0 (the "License"); you may not use this
// file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

// Package echo sends ICMP echo requests and waits for the matching reply.
package echo

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"os"
	"sync/atomic"
	"time"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
	"golang.org/x/sys/unix"

	"github.com/caas-team/lookout/internal/helper"
	"github.com/caas-team/lookout/internal/logger"
)

const (
	bufferSize = 1500
	// protocol numbers used to parse replies
	protocolICMP   = 1
	protocolICMPv6 = 58
)

var payload = []byte("HELLO-R-U-THERE")

// Pinger sends a single echo request
type Pinger interface {
	// Ping sends one echo request to addr and returns the round trip time.
	// It returns [ErrTimeout] if no reply arrived within timeout.
	Ping(ctx context.Context, addr netip.Addr, timeout time.Duration) (time.Duration, error)
}

var _ Pinger = (*ICMP)(nil)

// ICMP is a [Pinger] using ICMP sockets.
// With CAP_NET_RAW raw sockets are used, otherwise unprivileged datagram sockets.
type ICMP struct {
	privileged bool
	id         int
	seq        atomic.Uint32
}

// New creates a new ICMP pinger
func New() *ICMP {
	return &ICMP{
		privileged: helper.HasCapabilities(helper.CAP_NET_RAW),
		id:         unix.Getpid() & 0xffff,
	}
}

// Privileged reports whether raw sockets are used
func (p *ICMP) Privileged() bool {
	return p.privileged
}

func (p *ICMP) Ping(ctx context.Context, addr netip.Addr, timeout time.Duration) (rtt time.Duration, err error) {
	log := logger.FromContext(ctx).With("address", addr.String())
	addr = addr.Unmap()
	network, listen, typ := p.resolveType(addr)

	conn, err := icmp.ListenPacket(network, listen)
	if err != nil {
		return 0, fmt.Errorf("error creating ICMP listener: %w", err)
	}
	defer func() {
		if cErr := conn.Close(); cErr != nil {
			err = errors.Join(err, ErrClosingConn{Err: cErr})
		}
	}()

	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err = conn.SetDeadline(deadline); err != nil {
		return 0, fmt.Errorf("error setting deadline: %w", err)
	}
	// unblock the read on cancellation
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Now())
	})
	defer stop()

	seq := int(p.seq.Add(1) & 0xffff)
	msg := icmp.Message{
		Type: typ,
		Code: 0,
		Body: &icmp.Echo{ID: p.id, Seq: seq, Data: payload},
	}
	b, err := msg.Marshal(nil)
	if err != nil {
		return 0, fmt.Errorf("error marshalling ICMP message: %w", err)
	}

	start := time.Now()
	if _, err = conn.WriteTo(b, p.destination(addr)); err != nil {
		return 0, fmt.Errorf("error sending ICMP message: %w", err)
	}

	buf := make([]byte, bufferSize)
	for {
		n, _, rErr := conn.ReadFrom(buf)
		if rErr != nil {
			if ctx.Err() != nil {
				return 0, ctx.Err()
			}
			if errors.Is(rErr, os.ErrDeadlineExceeded) {
				return 0, ErrTimeout
			}
			return 0, fmt.Errorf("error reading from ICMP connection: %w", rErr)
		}
		rtt = time.Since(start)

		ok, mErr := matchReply(buf[:n], protocol(addr), p.id, seq, p.privileged)
		if mErr != nil {
			log.Debug("Ignoring unparsable ICMP message", "error", mErr)
			continue
		}
		if ok {
			return rtt, nil
		}
	}
}

// resolveType returns the network, listen address and ICMP type for the address family
func (p *ICMP) resolveType(addr netip.Addr) (network, listen string, typ icmp.Type) {
	if addr.Is4() {
		if p.privileged {
			return "ip4:icmp", "0.0.0.0", ipv4.ICMPTypeEcho
		}
		return "udp4", "0.0.0.0", ipv4.ICMPTypeEcho
	}
	if p.privileged {
		return "ip6:ipv6-icmp", "::", ipv6.ICMPTypeEchoRequest
	}
	return "udp6", "::", ipv6.ICMPTypeEchoRequest
}

func (p *ICMP) destination(addr netip.Addr) net.Addr {
	ip := net.IP(addr.AsSlice())
	if p.privileged {
		return &net.IPAddr{IP: ip, Zone: addr.Zone()}
	}
	return &net.UDPAddr{IP: ip, Zone: addr.Zone()}
}

func protocol(addr netip.Addr) int {
	if addr.Is4() {
		return protocolICMP
	}
	return protocolICMPv6
}

// matchReply reports whether b is the echo reply to the request with the given id and sequence.
// Unprivileged sockets get their id rewritten by the kernel, so it is only compared when checkID is set.
func matchReply(b []byte, proto, id, seq int, checkID bool) (bool, error) {
	msg, err := icmp.ParseMessage(proto, b)
	if err != nil {
		return false, fmt.Errorf("error parsing ICMP message: %w", err)
	}

	switch msg.Type {
	case ipv4.ICMPTypeEchoReply, ipv6.ICMPTypeEchoReply:
	default:
		return false, nil
	}

	reply, ok := msg.Body.(*icmp.Echo)
	if !ok {
		return false, nil
	}
	if checkID && reply.ID != id {
		return false, nil
	}
	return reply.Seq == seq, nil
}
