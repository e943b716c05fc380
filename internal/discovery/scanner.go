package discovery

import (
	"context"
	"fmt"
	"sync"
	"time"

	"netinsight/internal/client"
	"netinsight/internal/model"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Config holds scanner configuration
type Config struct {
	ChunkSize    int // Probes in flight at once
	MaxAddresses int // Largest range a single sweep accepts
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		ChunkSize:    20,
		MaxAddresses: 65536,
	}
}

// Scanner sweeps a subnet in fixed-size chunks. Every probe of a chunk runs
// concurrently and the next chunk starts only once the whole chunk returned.
type Scanner struct {
	probe        Prober
	chunkSize    int
	maxAddresses int
	logger       *logrus.Logger
	metrics      *client.PrometheusMetrics

	mu         sync.Mutex
	lastReport *model.DiscoveryReport
}

func NewScanner(probe Prober, logger *logrus.Logger, cfg Config) *Scanner {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 20
	}
	if cfg.MaxAddresses <= 0 {
		cfg.MaxAddresses = 65536
	}
	return &Scanner{
		probe:        probe,
		chunkSize:    cfg.ChunkSize,
		maxAddresses: cfg.MaxAddresses,
		logger:       logger,
	}
}

func (s *Scanner) SetMetrics(metrics *client.PrometheusMetrics) {
	s.metrics = metrics
}

// LastReport returns the most recent completed report, or nil.
func (s *Scanner) LastReport() *model.DiscoveryReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastReport
}

// Discover probes every usable address of cidr. Per-address failures count
// as "not discovered"; ErrResourceExhausted, ErrProbeNotPermitted and
// context cancellation abort the sweep and no report is returned.
func (s *Scanner) Discover(ctx context.Context, cidr string) (*model.DiscoveryReport, error) {
	prefix, err := ParseSubnet(cidr)
	if err != nil {
		return nil, err
	}
	hosts, err := UsableHosts(prefix, s.maxAddresses)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	s.logger.WithFields(logrus.Fields{
		"subnet": prefix.String(),
		"hosts":  len(hosts),
		"chunk":  s.chunkSize,
	}).Info("Starting network discovery")

	report := &model.DiscoveryReport{
		Subnet:     cidr,
		TotalHosts: len(hosts),
		Devices:    []model.Device{},
	}

	for i := 0; i < len(hosts); i += s.chunkSize {
		if err := ctx.Err(); err != nil {
			s.observeScan("cancelled", start)
			return nil, err
		}

		end := i + s.chunkSize
		if end > len(hosts) {
			end = len(hosts)
		}

		addrs := make([]string, 0, end-i)
		for _, h := range hosts[i:end] {
			addrs = append(addrs, h.String())
		}

		devices, err := s.probeChunk(ctx, addrs)
		if err != nil {
			s.observeScan("failed", start)
			s.logger.Errorf("Network discovery of %s aborted: %v", cidr, err)
			return nil, err
		}
		report.Devices = append(report.Devices, devices...)
	}
	report.DiscoveredHosts = len(report.Devices)

	s.observeScan("completed", start)
	if s.metrics != nil {
		s.metrics.DevicesFound.Set(float64(report.DiscoveredHosts))
	}
	s.logger.Infof("Network discovery of %s complete: %d/%d hosts active in %s",
		cidr, report.DiscoveredHosts, report.TotalHosts, time.Since(start).Round(time.Millisecond))

	s.mu.Lock()
	s.lastReport = report
	s.mu.Unlock()

	return report, nil
}

// probeChunk runs one probe per address and waits for all of them.
func (s *Scanner) probeChunk(ctx context.Context, addrs []string) ([]model.Device, error) {
	var (
		mu      sync.Mutex
		devices = make([]model.Device, 0, len(addrs))
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, addr := range addrs {
		g.Go(func() error {
			if s.metrics != nil {
				s.metrics.ProbesInFlight.Inc()
				defer s.metrics.ProbesInFlight.Dec()
			}

			device, err := s.probe.Probe(gctx, addr)
			switch {
			case err != nil && abortsSweep(err):
				s.observeProbe("error")
				return err
			case err != nil:
				s.observeProbe("error")
				s.logger.Debugf("Error checking host %s: %v", addr, err)
				return nil
			case device == nil:
				s.observeProbe("unreachable")
				return nil
			}

			s.observeProbe("active")
			mu.Lock()
			devices = append(devices, *device)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("probe chunk failed: %w", err)
	}
	return devices, nil
}

func (s *Scanner) observeProbe(outcome string) {
	if s.metrics != nil {
		s.metrics.ProbesTotal.WithLabelValues(outcome).Inc()
	}
}

func (s *Scanner) observeScan(result string, start time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.ScansTotal.WithLabelValues(result).Inc()
	s.metrics.ScanDuration.Observe(time.Since(start).Seconds())
}
