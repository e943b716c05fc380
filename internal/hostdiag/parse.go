package hostdiag

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	packetLossRe = regexp.MustCompile(`([\d.]+)% packet loss`)
	// Linux prints "rtt min/avg/max/mdev", BSD and macOS print
	// "round-trip min/avg/max/stddev".
	rttSummaryRe = regexp.MustCompile(`min/avg/max/(?:mdev|stddev) = ([\d.]+)/([\d.]+)/([\d.]+)/([\d.]+)`)
	hopLineRe    = regexp.MustCompile(`^\s*\d+\s`)
	hopRTTRe     = regexp.MustCompile(`([\d.]+) ms`)
)

// PingStats is the summary block of ping output. RTTs are in milliseconds.
type PingStats struct {
	PacketLoss float64 `json:"packet_loss"`
	MinRTT     float64 `json:"min_rtt"`
	AvgRTT     float64 `json:"avg_rtt"`
	MaxRTT     float64 `json:"max_rtt"`
	Jitter     float64 `json:"jitter"`
}

// TracerouteStats summarizes traceroute output.
type TracerouteStats struct {
	Hops   int     `json:"hops"`
	MaxRTT float64 `json:"max_rtt"`
}

// ParsePing extracts packet loss and the rtt summary. Missing values stay
// zero; a host that never answered has 100% loss and no rtt line.
func ParsePing(output string) PingStats {
	var stats PingStats
	for _, line := range strings.Split(output, "\n") {
		if m := packetLossRe.FindStringSubmatch(line); m != nil {
			stats.PacketLoss = parseFloat(m[1])
		}
		if m := rttSummaryRe.FindStringSubmatch(line); m != nil {
			stats.MinRTT = parseFloat(m[1])
			stats.AvgRTT = parseFloat(m[2])
			stats.MaxRTT = parseFloat(m[3])
			stats.Jitter = parseFloat(m[4])
		}
	}
	return stats
}

// ParseTraceroute counts numbered hop lines and keeps the largest rtt seen
// on any of them.
func ParseTraceroute(output string) TracerouteStats {
	var stats TracerouteStats
	for _, line := range strings.Split(output, "\n") {
		if !hopLineRe.MatchString(line) {
			continue
		}
		stats.Hops++
		for _, m := range hopRTTRe.FindAllStringSubmatch(line, -1) {
			if rtt := parseFloat(m[1]); rtt > stats.MaxRTT {
				stats.MaxRTT = rtt
			}
		}
	}
	return stats
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
