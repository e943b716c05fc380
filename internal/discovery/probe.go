package discovery

import (
	"context"
	"fmt"
	"net/netip"
	"time"

	"netinsight/internal/client"
	"netinsight/internal/model"

	"github.com/sirupsen/logrus"
)

// Prober checks one address. A nil device with a nil error means the host
// did not answer.
type Prober interface {
	Probe(ctx context.Context, addr string) (*model.Device, error)
}

// HostProbe pings an address once and, if it answers, resolves its PTR name.
type HostProbe struct {
	pinger         client.Pinger
	resolver       client.Resolver
	resolveTimeout time.Duration
	logger         *logrus.Logger
}

// NewHostProbe builds a probe. resolver may be nil, in which case hostnames
// are always empty.
func NewHostProbe(pinger client.Pinger, resolver client.Resolver, resolveTimeout time.Duration, logger *logrus.Logger) *HostProbe {
	if resolveTimeout <= 0 {
		resolveTimeout = time.Second
	}
	return &HostProbe{
		pinger:         pinger,
		resolver:       resolver,
		resolveTimeout: resolveTimeout,
		logger:         logger,
	}
}

func (p *HostProbe) Probe(ctx context.Context, addr string) (*model.Device, error) {
	ip, err := netip.ParseAddr(addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAddress, addr)
	}

	alive, err := p.pinger.Ping(ctx, ip.String())
	if err != nil {
		if isResourceExhausted(err) {
			return nil, fmt.Errorf("%w: probing %s: %v", ErrResourceExhausted, ip, err)
		}
		if isPermissionDenied(err) {
			return nil, fmt.Errorf("%w: probing %s: %v (run privileged or widen net.ipv4.ping_group_range)", ErrProbeNotPermitted, ip, err)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrProbeFailed, ip, err)
	}
	if !alive {
		return nil, nil
	}

	return &model.Device{
		IP:       ip.String(),
		Hostname: p.resolve(ctx, ip.String()),
		Status:   model.DeviceActive,
	}, nil
}

func (p *HostProbe) resolve(ctx context.Context, ip string) string {
	if p.resolver == nil {
		return ""
	}

	ctx, cancel := context.WithTimeout(ctx, p.resolveTimeout)
	defer cancel()

	name, err := p.resolver.LookupAddr(ctx, ip)
	if err != nil {
		p.logger.Debugf("Reverse lookup for %s failed: %v", ip, err)
		return ""
	}
	return name
}
