package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsableHosts(t *testing.T) {
	tests := []struct {
		cidr  string
		count int
		first string
		last  string
	}{
		{"192.168.1.0/24", 254, "192.168.1.1", "192.168.1.254"},
		{"10.0.0.0/30", 2, "10.0.0.1", "10.0.0.2"},
		{"10.0.0.0/29", 6, "10.0.0.1", "10.0.0.6"},
		{"10.0.0.0/31", 2, "10.0.0.0", "10.0.0.1"},
		{"10.0.0.9/32", 1, "10.0.0.9", "10.0.0.9"},
		{"10.0.0.77/24", 254, "10.0.0.1", "10.0.0.254"},
		{"172.16.0.0/22", 1022, "172.16.0.1", "172.16.3.254"},
		{"2001:db8::/126", 2, "2001:db8::1", "2001:db8::2"},
		{"2001:db8::/127", 2, "2001:db8::", "2001:db8::1"},
	}

	for _, tt := range tests {
		t.Run(tt.cidr, func(t *testing.T) {
			prefix, err := ParseSubnet(tt.cidr)
			require.NoError(t, err)

			hosts, err := UsableHosts(prefix, 65536)
			require.NoError(t, err)
			require.Len(t, hosts, tt.count)
			assert.Equal(t, tt.first, hosts[0].String())
			assert.Equal(t, tt.last, hosts[len(hosts)-1].String())
		})
	}
}

func TestUsableHostsRejectsHugeRanges(t *testing.T) {
	for _, cidr := range []string{"10.0.0.0/15", "0.0.0.0/0", "2001:db8::/64"} {
		prefix, err := ParseSubnet(cidr)
		require.NoError(t, err)

		_, err = UsableHosts(prefix, 65536)
		assert.ErrorIs(t, err, ErrInvalidSubnet, cidr)
	}
}
