package echo

import (
	"errors"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
)

func marshal(t *testing.T, typ icmp.Type, body icmp.MessageBody) []byte {
	t.Helper()
	msg := icmp.Message{Type: typ, Code: 0, Body: body}
	// the checksum of ICMPv6 is calculated by the kernel, so no pseudo header is needed here
	b, err := msg.Marshal(nil)
	require.NoError(t, err)
	return b
}

func TestMatchReply(t *testing.T) {
	tests := []struct {
		name    string
		msg     func(t *testing.T) []byte
		proto   int
		checkID bool
		want    bool
		wantErr bool
	}{
		{
			name: "ipv4 reply",
			msg: func(t *testing.T) []byte {
				return marshal(t, ipv4.ICMPTypeEchoReply, &icmp.Echo{ID: 7, Seq: 3, Data: payload})
			},
			proto:   protocolICMP,
			checkID: true,
			want:    true,
		},
		{
			name: "ipv6 reply",
			msg: func(t *testing.T) []byte {
				return marshal(t, ipv6.ICMPTypeEchoReply, &icmp.Echo{ID: 7, Seq: 3, Data: payload})
			},
			proto:   protocolICMPv6,
			checkID: true,
			want:    true,
		},
		{
			name: "wrong sequence",
			msg: func(t *testing.T) []byte {
				return marshal(t, ipv4.ICMPTypeEchoReply, &icmp.Echo{ID: 7, Seq: 4, Data: payload})
			},
			proto:   protocolICMP,
			checkID: true,
			want:    false,
		},
		{
			name: "foreign id with raw socket",
			msg: func(t *testing.T) []byte {
				return marshal(t, ipv4.ICMPTypeEchoReply, &icmp.Echo{ID: 8, Seq: 3, Data: payload})
			},
			proto:   protocolICMP,
			checkID: true,
			want:    false,
		},
		{
			name: "rewritten id with datagram socket",
			msg: func(t *testing.T) []byte {
				return marshal(t, ipv4.ICMPTypeEchoReply, &icmp.Echo{ID: 4242, Seq: 3, Data: payload})
			},
			proto:   protocolICMP,
			checkID: false,
			want:    true,
		},
		{
			name: "own echo request",
			msg: func(t *testing.T) []byte {
				return marshal(t, ipv4.ICMPTypeEcho, &icmp.Echo{ID: 7, Seq: 3, Data: payload})
			},
			proto:   protocolICMP,
			checkID: true,
			want:    false,
		},
		{
			name:    "garbage",
			msg:     func(_ *testing.T) []byte { return []byte{0x01} },
			proto:   protocolICMP,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := matchReply(tt.msg(t), tt.proto, 7, 3, tt.checkID)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestICMP_ResolveType(t *testing.T) {
	tests := []struct {
		name        string
		privileged  bool
		addr        netip.Addr
		wantNetwork string
		wantType    icmp.Type
	}{
		{name: "raw ipv4", privileged: true, addr: netip.MustParseAddr("8.8.8.8"), wantNetwork: "ip4:icmp", wantType: ipv4.ICMPTypeEcho},
		{name: "datagram ipv4", addr: netip.MustParseAddr("8.8.8.8"), wantNetwork: "udp4", wantType: ipv4.ICMPTypeEcho},
		{name: "raw ipv6", privileged: true, addr: netip.MustParseAddr("2001:4860:4860::8888"), wantNetwork: "ip6:ipv6-icmp", wantType: ipv6.ICMPTypeEchoRequest},
		{name: "datagram ipv6", addr: netip.MustParseAddr("::1"), wantNetwork: "udp6", wantType: ipv6.ICMPTypeEchoRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &ICMP{privileged: tt.privileged}
			network, _, typ := p.resolveType(tt.addr)
			assert.Equal(t, tt.wantNetwork, network)
			assert.Equal(t, tt.wantType, typ)
		})
	}
}

func TestErrClosingConn(t *testing.T) {
	inner := errors.New("boom")
	err := errors.Join(errors.New("read failed"), ErrClosingConn{Err: inner})

	assert.ErrorIs(t, err, ErrClosingConn{})
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, "error closing connection: boom", ErrClosingConn{Err: inner}.Error())
}
