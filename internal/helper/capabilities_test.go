package helper

import (
	"testing"

	"golang.org/x/sys/unix"
)

func TestHasCapabilities(t *testing.T) {
	tests := []struct {
		name string
		cap  Capability
		want bool
	}{
		{
			name: "CAP_NET_RAW",
			cap:  CAP_NET_RAW,
			// only root is expected to hold raw socket permissions in the test environment
			want: unix.Geteuid() == 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.want && !HasCapabilities(tt.cap) {
				t.Errorf("HasCapabilities() = false, want true")
			}
		})
	}
}
