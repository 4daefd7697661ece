package probing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fwprobe/fwprobe/internal/errors"
)

func TestResolveLiteralIP(t *testing.T) {
	tests := []struct {
		name   string
		target string
		want   string
	}{
		{name: "ipv4 literal", target: "192.0.2.10", want: "192.0.2.10"},
		{name: "loopback", target: "127.0.0.1", want: "127.0.0.1"},
		{name: "ipv6 literal", target: "2001:db8::1", want: "2001:db8::1"},
		{name: "ipv6 canonicalized", target: "2001:0db8:0000:0000:0000:0000:0000:0001", want: "2001:db8::1"},
	}

	resolver := NewResolver("")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ip, err := resolver.Resolve(context.Background(), tt.target)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ip)
		})
	}
}

func TestResolveLiteralSkipsDNSServer(t *testing.T) {
	// A literal IP must never touch the configured server; an unreachable
	// server address proves the short-circuit.
	resolver := NewResolver("192.0.2.1:53")
	ip, err := resolver.Resolve(context.Background(), "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1", ip)
}

func TestResolveFailureYieldsResolutionError(t *testing.T) {
	// Reserved TLD per RFC 2606; never resolvable.
	resolver := NewResolver("")
	ip, err := resolver.Resolve(context.Background(), "host.invalid")
	require.Error(t, err)
	assert.Empty(t, ip)
	assert.True(t, errors.IsCode(err, errors.CodeResolutionFailed))

	var resErr *errors.ResolutionError
	require.ErrorAs(t, err, &resErr)
	assert.Equal(t, "host.invalid", resErr.Target)
}
