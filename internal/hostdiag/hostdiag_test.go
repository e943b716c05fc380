package hostdiag

import (
	"context"
	"errors"
	"sync"
	"testing"

	"netinsight/internal/model"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const linuxPing = `PING router.lan (10.0.0.1) 56(84) bytes of data.
64 bytes from 10.0.0.1: icmp_seq=1 ttl=64 time=0.512 ms
64 bytes from 10.0.0.1: icmp_seq=2 ttl=64 time=0.611 ms
64 bytes from 10.0.0.1: icmp_seq=3 ttl=64 time=0.480 ms

--- router.lan ping statistics ---
4 packets transmitted, 3 received, 25% packet loss, time 3004ms
rtt min/avg/max/mdev = 0.480/0.534/0.611/0.056 ms
`

const macPing = `--- 1.1.1.1 ping statistics ---
4 packets transmitted, 4 packets received, 0.0% packet loss
round-trip min/avg/max/stddev = 11.112/12.250/14.901/1.402 ms
`

const traceOutput = `traceroute to example.com (93.184.216.34), 30 hops max, 60 byte packets
 1  _gateway (10.0.0.1)  0.412 ms  0.380 ms  0.365 ms
 2  100.64.0.1 (100.64.0.1)  8.120 ms  8.301 ms  9.004 ms
 3  * * *
 4  93.184.216.34 (93.184.216.34)  21.870 ms  20.112 ms  23.448 ms
`

func TestParsePing(t *testing.T) {
	assert.Equal(t, PingStats{PacketLoss: 25, MinRTT: 0.48, AvgRTT: 0.534, MaxRTT: 0.611, Jitter: 0.056}, ParsePing(linuxPing))
	assert.Equal(t, PingStats{PacketLoss: 0, MinRTT: 11.112, AvgRTT: 12.25, MaxRTT: 14.901, Jitter: 1.402}, ParsePing(macPing))
	assert.Equal(t, PingStats{PacketLoss: 100}, ParsePing("4 packets transmitted, 0 received, 100% packet loss, time 3061ms\n"))
	assert.Equal(t, PingStats{}, ParsePing(""))
}

func TestParseTraceroute(t *testing.T) {
	assert.Equal(t, TracerouteStats{Hops: 4, MaxRTT: 23.448}, ParseTraceroute(traceOutput))
	assert.Equal(t, TracerouteStats{}, ParseTraceroute("traceroute to x (1.2.3.4), 30 hops max\n"))
}

type call struct {
	name string
	args []string
}

type scriptedRunner struct {
	mu      sync.Mutex
	outputs map[string]string
	errs    map[string]error
	calls   []call
}

func (r *scriptedRunner) Output(ctx context.Context, name string, args ...string) (string, error) {
	r.mu.Lock()
	r.calls = append(r.calls, call{name: name, args: args})
	r.mu.Unlock()
	return r.outputs[name], r.errs[name]
}

type staticResolver struct {
	addrs []string
	err   error
}

func (r staticResolver) LookupAddr(ctx context.Context, ip string) (string, error) {
	return "", errors.New("not used")
}

func (r staticResolver) LookupHost(ctx context.Context, host string) ([]string, error) {
	return r.addrs, r.err
}

func TestPingAndTraceroute(t *testing.T) {
	runner := &scriptedRunner{outputs: map[string]string{"ping": linuxPing, "traceroute": traceOutput}}
	d := NewDiagnoser(runner, nil, Config{}, logrus.New())

	ping, err := d.Ping(context.Background(), "router.lan")
	require.NoError(t, err)
	assert.Equal(t, 0.534, ping.AvgRTT)
	assert.Equal(t, linuxPing, ping.Output)

	trace, err := d.Traceroute(context.Background(), "example.com")
	require.NoError(t, err)
	assert.Equal(t, 4, trace.Hops)

	assert.Equal(t, []call{
		{name: "ping", args: []string{"-c", "4", "router.lan"}},
		{name: "traceroute", args: []string{"-I", "example.com"}},
	}, runner.calls)
}

func TestPingKeepsOutputOfFailedExit(t *testing.T) {
	lost := "4 packets transmitted, 0 received, 100% packet loss, time 3061ms\n"
	runner := &scriptedRunner{
		outputs: map[string]string{"ping": lost},
		errs:    map[string]error{"ping": errors.New("exit status 1")},
	}
	d := NewDiagnoser(runner, nil, Config{PingCount: 2}, logrus.New())

	ping, err := d.Ping(context.Background(), "10.9.9.9")
	require.NoError(t, err)
	assert.Equal(t, 100.0, ping.PacketLoss)
	assert.Equal(t, []string{"-c", "2", "10.9.9.9"}, runner.calls[0].args)
}

func TestCommandFailure(t *testing.T) {
	runner := &scriptedRunner{errs: map[string]error{"traceroute": errors.New("executable file not found")}}
	d := NewDiagnoser(runner, nil, Config{}, logrus.New())

	_, err := d.Traceroute(context.Background(), "example.com")
	assert.ErrorIs(t, err, ErrCommandFailed)
}

func TestInvalidHost(t *testing.T) {
	runner := &scriptedRunner{}
	d := NewDiagnoser(runner, staticResolver{}, Config{}, logrus.New())

	for _, host := range []string{"", "-f", "a b"} {
		_, err := d.Ping(context.Background(), host)
		assert.ErrorIs(t, err, ErrInvalidHost)
		_, err = d.LookupDNS(context.Background(), host)
		assert.ErrorIs(t, err, ErrInvalidHost)
	}
	assert.Empty(t, runner.calls)
}

func TestLookupDNS(t *testing.T) {
	d := NewDiagnoser(&scriptedRunner{}, staticResolver{addrs: []string{"10.0.0.1"}}, Config{}, logrus.New())
	result, err := d.LookupDNS(context.Background(), "router.lan")
	require.NoError(t, err)
	assert.Equal(t, &DNSResult{Host: "router.lan", Addresses: []string{"10.0.0.1"}}, result)

	failing := NewDiagnoser(&scriptedRunner{}, staticResolver{err: errors.New("nxdomain")}, Config{}, logrus.New())
	_, err = failing.LookupDNS(context.Background(), "nope.lan")
	assert.ErrorIs(t, err, ErrCommandFailed)

	unset := NewDiagnoser(&scriptedRunner{}, nil, Config{}, logrus.New())
	_, err = unset.LookupDNS(context.Background(), "router.lan")
	assert.ErrorIs(t, err, ErrCommandFailed)
}

func TestDiagnose(t *testing.T) {
	runner := &scriptedRunner{outputs: map[string]string{"ping": linuxPing, "traceroute": traceOutput}}
	d := NewDiagnoser(runner, nil, Config{}, logrus.New())

	report, err := d.Diagnose(context.Background(), "example.com")
	require.NoError(t, err)
	assert.Equal(t, model.Features{AvgRTT: 0.534, MaxRTT: 23.448, NumHops: 4}, report.Features)
	assert.Len(t, runner.calls, 2)
}

func TestDiagnoseFailsWhenEitherCommandFails(t *testing.T) {
	runner := &scriptedRunner{
		outputs: map[string]string{"ping": linuxPing},
		errs:    map[string]error{"traceroute": errors.New("exit status 2")},
	}
	d := NewDiagnoser(runner, nil, Config{}, logrus.New())

	_, err := d.Diagnose(context.Background(), "example.com")
	assert.ErrorIs(t, err, ErrCommandFailed)
}
