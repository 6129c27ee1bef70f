// Package safeurl classifies callback URLs as routable or blocked.
// It runs at connection registration time; the send path trusts stored URLs.
package safeurl

import (
	"context"
	"net"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel"

	"github.com/wjayesh/mahilo/core"
)

var tracer = otel.Tracer("safeurl")

type Service interface {
	Validate(ctx context.Context, rawURL string) error
}

type service struct {
	config core.Config
	lookup func(ctx context.Context, host string) ([]net.IPAddr, error)
}

func NewService(config core.Config) Service {
	return &service{
		config: config,
		lookup: net.DefaultResolver.LookupIPAddr,
	}
}

func (s *service) Validate(ctx context.Context, rawURL string) error {
	ctx, span := tracer.Start(ctx, "SafeURL.Service.Validate")
	defer span.End()

	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return core.NewErrorInvalidCallbackTarget("malformed URL")
	}

	host := parsed.Hostname()
	ip := net.ParseIP(host)

	if parsed.Scheme != "https" {
		// plain http is tolerated for local development only
		if parsed.Scheme == "http" && !s.config.HostedMode && isLoopbackHost(host, ip) {
			// fallthrough
		} else {
			return core.NewErrorInvalidCallbackTarget("scheme must be https")
		}
	}

	if !s.config.AllowPrivateIPs {
		// loopback literals stay usable for local development
		loopbackOK := !s.config.HostedMode && isLoopbackHost(host, ip)
		if ip != nil && isPrivateIP(ip) && !loopbackOK {
			return core.NewErrorInvalidCallbackTarget("private address not allowed")
		}
		if s.config.HostedMode {
			if isLoopbackHost(host, ip) {
				return core.NewErrorInvalidCallbackTarget("loopback address not allowed")
			}
			if strings.HasSuffix(strings.ToLower(host), ".local") {
				return core.NewErrorInvalidCallbackTarget("mDNS hostname not allowed")
			}
		}
	}

	// DNS rebinding defense: in hosted mode a hostname must resolve, and
	// every resolved address must be public.
	if s.config.HostedMode && ip == nil && !s.config.AllowPrivateIPs {
		addrs, err := s.lookup(ctx, host)
		if err != nil || len(addrs) == 0 {
			span.RecordError(err)
			return core.NewErrorInvalidCallbackTarget("hostname did not resolve")
		}
		for _, addr := range addrs {
			if isPrivateIP(addr.IP) {
				return core.NewErrorInvalidCallbackTarget("hostname resolves to private address")
			}
		}
	}

	return nil
}

func isLoopbackHost(host string, ip net.IP) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}
	return ip != nil && ip.IsLoopback()
}

var privateV4Blocks = []string{
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
	"169.254.0.0/16",
	"100.64.0.0/10",
	"0.0.0.0/8",
	"127.0.0.0/8",
}

var privateV6Blocks = []string{
	"::1/128",
	"fc00::/7",
	"fe80::/10",
}

var privateNets []*net.IPNet

func init() {
	for _, block := range append(privateV4Blocks, privateV6Blocks...) {
		_, network, err := net.ParseCIDR(block)
		if err != nil {
			panic(err)
		}
		privateNets = append(privateNets, network)
	}
}

func isPrivateIP(ip net.IP) bool {
	if ip.IsUnspecified() || ip.IsLoopback() || ip.IsLinkLocalUnicast() {
		return true
	}
	// mapped-v4 forms are compared in their 4-byte representation
	if v4 := ip.To4(); v4 != nil {
		ip = v4
	}
	for _, network := range privateNets {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}
