package enrich

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docintel/core"
)

func TestPrivateIPProcessor(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		private bool
	}{
		{"10 block", "10.1.2.3", true},
		{"172.16 block low", "172.16.0.1", true},
		{"172.16 block high", "172.31.255.254", true},
		{"192.168 block", "192.168.1.1", true},
		{"just outside 172 block", "172.32.0.1", false},
		{"public documentation range", "203.0.113.10", false},
		{"public dns resolver", "8.8.8.8", false},
	}

	p := NewPrivateIPProcessor()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obs := newIPv4(t, tt.value)
			require.NoError(t, p.Process(context.Background(), []*core.Observable{obs}))
			assert.Equal(t, tt.private, obs.HasTag(PrivateNetworkTag))
		})
	}
}

func TestPrivateIPProcessorIgnoresOtherTypes(t *testing.T) {
	obs, err := core.NewObservable(core.ObservableTypeIPv6, "fd00::1", "automation-1")
	require.NoError(t, err)

	p := NewPrivateIPProcessor()
	require.NoError(t, p.Process(context.Background(), []*core.Observable{obs}))
	assert.False(t, obs.HasTag(PrivateNetworkTag))
}
