package safeurl

import (
	"context"
	"net"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/wjayesh/mahilo/core"
)

func newTestService(config core.Config, addrs map[string][]string) *service {
	return &service{
		config: config,
		lookup: func(ctx context.Context, host string) ([]net.IPAddr, error) {
			resolved, ok := addrs[host]
			if !ok {
				return nil, errors.New("no such host")
			}
			var result []net.IPAddr
			for _, a := range resolved {
				result = append(result, net.IPAddr{IP: net.ParseIP(a)})
			}
			return result, nil
		},
	}
}

func TestValidateLocalMode(t *testing.T) {
	s := newTestService(core.Config{}, nil)
	ctx := context.Background()

	cases := []struct {
		name string
		url  string
		ok   bool
	}{
		{"https public", "https://agent.example.com/hook", true},
		{"malformed", "://nope", false},
		{"empty host", "https://", false},
		{"http public", "http://agent.example.com/hook", false},
		{"http localhost", "http://localhost:8080/hook", true},
		{"http loopback v4", "http://127.0.0.1:9000/hook", true},
		{"http loopback v6", "http://[::1]:9000/hook", true},
		{"http mapped loopback", "http://[::ffff:127.0.0.1]/hook", true},
		{"literal private", "https://10.0.0.1/hook", false},
		{"literal 172 range", "https://172.16.5.5/hook", false},
		{"literal 192.168", "https://192.168.1.10/hook", false},
		{"link local", "https://169.254.1.1/hook", false},
		{"cgnat", "https://100.64.0.1/hook", false},
		{"zero net", "https://0.0.0.5/hook", false},
		{"ula v6", "https://[fd00::1]/hook", false},
		{"link local v6", "https://[fe80::1]/hook", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := s.Validate(ctx, tc.url)
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
				assert.IsType(t, core.ErrorInvalidCallbackTarget{}, err)
			}
		})
	}
}

func TestValidateAllowPrivateIPs(t *testing.T) {
	s := newTestService(core.Config{HostedMode: true, AllowPrivateIPs: true}, nil)
	ctx := context.Background()

	assert.NoError(t, s.Validate(ctx, "https://10.0.0.1/hook"))
	assert.NoError(t, s.Validate(ctx, "https://192.168.1.10/hook"))
}

func TestValidateHostedMode(t *testing.T) {
	s := newTestService(core.Config{HostedMode: true}, map[string][]string{
		"agent.example.com": {"93.184.216.34"},
		"rebind.evil.com":   {"93.184.216.34", "10.0.0.7"},
	})
	ctx := context.Background()

	assert.NoError(t, s.Validate(ctx, "https://agent.example.com/hook"))

	// loopback and .local are rejected outright in hosted mode
	assert.Error(t, s.Validate(ctx, "http://localhost:8080/hook"))
	assert.Error(t, s.Validate(ctx, "https://localhost/hook"))
	assert.Error(t, s.Validate(ctx, "https://127.0.0.1/hook"))
	assert.Error(t, s.Validate(ctx, "https://printer.local/hook"))

	// any private resolved address rejects
	assert.Error(t, s.Validate(ctx, "https://rebind.evil.com/hook"))

	// resolution failure fails closed
	assert.Error(t, s.Validate(ctx, "https://unresolvable.example.com/hook"))
}
