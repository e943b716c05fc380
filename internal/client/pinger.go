package client

import (
	"context"
	"fmt"
	"time"

	probing "github.com/prometheus-community/pro-bing"
)

// Pinger sends a single liveness check to one address.
type Pinger interface {
	Ping(ctx context.Context, ip string) (bool, error)
}

// ICMPPinger is a Pinger backed by pro-bing echo requests.
type ICMPPinger struct {
	Timeout    time.Duration
	Privileged bool
}

func NewICMPPinger(timeout time.Duration, privileged bool) *ICMPPinger {
	if timeout <= 0 {
		timeout = time.Second
	}
	return &ICMPPinger{Timeout: timeout, Privileged: privileged}
}

// Ping reports whether one echo reply arrived within the timeout. Errors are
// reserved for failures to send at all (socket, permission).
func (p *ICMPPinger) Ping(ctx context.Context, ip string) (bool, error) {
	pinger, err := probing.NewPinger(ip)
	if err != nil {
		return false, fmt.Errorf("failed to create pinger: %w", err)
	}

	pinger.Count = 1
	pinger.Timeout = p.Timeout
	pinger.SetPrivileged(p.Privileged)

	if err := pinger.RunWithContext(ctx); err != nil {
		return false, err
	}

	return pinger.Statistics().PacketsRecv > 0, nil
}
