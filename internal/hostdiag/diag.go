package hostdiag

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"netinsight/internal/client"
	"netinsight/internal/model"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrCommandFailed means a diagnostic command produced no usable output.
	ErrCommandFailed = errors.New("diagnostic command failed")
	// ErrInvalidHost rejects empty targets and anything that would be read
	// as a command-line flag.
	ErrInvalidHost = errors.New("invalid host")
)

type PingResult struct {
	Host   string `json:"host"`
	Output string `json:"output"`
	PingStats
}

type TracerouteResult struct {
	Host   string `json:"host"`
	Output string `json:"output"`
	TracerouteStats
}

type DNSResult struct {
	Host      string   `json:"host"`
	Addresses []string `json:"addresses"`
}

// HostReport combines ping and traceroute into classifier features.
type HostReport struct {
	Host       string           `json:"host"`
	Ping       PingResult       `json:"ping"`
	Traceroute TracerouteResult `json:"traceroute"`
	Features   model.Features   `json:"features"`
}

type Config struct {
	PingCount      int
	CommandTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		PingCount:      4,
		CommandTimeout: 30 * time.Second,
	}
}

// Diagnoser runs one-shot diagnostics against a single host.
type Diagnoser struct {
	runner   client.Runner
	resolver client.Resolver
	cfg      Config
	logger   *logrus.Logger
}

func NewDiagnoser(runner client.Runner, resolver client.Resolver, cfg Config, logger *logrus.Logger) *Diagnoser {
	def := DefaultConfig()
	if cfg.PingCount <= 0 {
		cfg.PingCount = def.PingCount
	}
	if cfg.CommandTimeout <= 0 {
		cfg.CommandTimeout = def.CommandTimeout
	}
	return &Diagnoser{
		runner:   runner,
		resolver: resolver,
		cfg:      cfg,
		logger:   logger,
	}
}

func (d *Diagnoser) Ping(ctx context.Context, host string) (*PingResult, error) {
	out, err := d.run(ctx, host, "ping", "-c", strconv.Itoa(d.cfg.PingCount), host)
	if err != nil {
		return nil, err
	}
	return &PingResult{Host: host, Output: out, PingStats: ParsePing(out)}, nil
}

func (d *Diagnoser) Traceroute(ctx context.Context, host string) (*TracerouteResult, error) {
	out, err := d.run(ctx, host, "traceroute", "-I", host)
	if err != nil {
		return nil, err
	}
	return &TracerouteResult{Host: host, Output: out, TracerouteStats: ParseTraceroute(out)}, nil
}

func (d *Diagnoser) LookupDNS(ctx context.Context, host string) (*DNSResult, error) {
	if err := validateHost(host); err != nil {
		return nil, err
	}
	if d.resolver == nil {
		return nil, fmt.Errorf("%w: no resolver configured", ErrCommandFailed)
	}

	ctx, cancel := context.WithTimeout(ctx, d.cfg.CommandTimeout)
	defer cancel()

	addrs, err := d.resolver.LookupHost(ctx, host)
	if err != nil {
		return nil, fmt.Errorf("%w: dns lookup of %s: %v", ErrCommandFailed, host, err)
	}
	return &DNSResult{Host: host, Addresses: addrs}, nil
}

// Diagnose runs ping and traceroute concurrently and derives the
// classifier features: average rtt from ping, the larger of both max rtts,
// and the traceroute hop count.
func (d *Diagnoser) Diagnose(ctx context.Context, host string) (*HostReport, error) {
	if err := validateHost(host); err != nil {
		return nil, err
	}

	var (
		ping  *PingResult
		trace *TracerouteResult
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		ping, err = d.Ping(gctx, host)
		return err
	})
	g.Go(func() error {
		var err error
		trace, err = d.Traceroute(gctx, host)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	maxRTT := ping.MaxRTT
	if trace.MaxRTT > maxRTT {
		maxRTT = trace.MaxRTT
	}

	return &HostReport{
		Host:       host,
		Ping:       *ping,
		Traceroute: *trace,
		Features: model.Features{
			AvgRTT:  ping.AvgRTT,
			MaxRTT:  maxRTT,
			NumHops: float64(trace.Hops),
		},
	}, nil
}

// run executes a diagnostic command. Tools like ping exit non-zero when
// the host does not answer, so output is kept whenever there is any.
func (d *Diagnoser) run(ctx context.Context, host, name string, args ...string) (string, error) {
	if err := validateHost(host); err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, d.cfg.CommandTimeout)
	defer cancel()

	out, err := d.runner.Output(ctx, name, args...)
	if err != nil {
		if strings.TrimSpace(out) == "" {
			return "", fmt.Errorf("%w: %s %s: %v", ErrCommandFailed, name, host, err)
		}
		d.logger.Debugf("%s %s exited with %v, using partial output", name, host, err)
	}
	return out, nil
}

func validateHost(host string) error {
	if host == "" || strings.HasPrefix(host, "-") || strings.ContainsAny(host, " \t\r\n") {
		return fmt.Errorf("%w: %q", ErrInvalidHost, host)
	}
	return nil
}
