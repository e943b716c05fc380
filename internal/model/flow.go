package model

import (
	"maps"
	"slices"
	"time"
)

const (
	ProtocolTCP = "TCP"
	ProtocolUDP = "UDP"
)

// TalkerCount is one entry of a top-talker ranking.
type TalkerCount struct {
	IP    string `json:"ip"`
	Count int    `json:"value"`
}

// FlowSnapshot summarizes one connection-table capture.
type FlowSnapshot struct {
	Timestamp       time.Time      `json:"timestamp"`
	Protocols       map[string]int `json:"protocols"`
	TopSources      []TalkerCount  `json:"topSources"`
	TopDestinations []TalkerCount  `json:"topDestinations"`
}

// TopSource returns the highest ranked source, if any.
func (s *FlowSnapshot) TopSource() (TalkerCount, bool) {
	if s == nil || len(s.TopSources) == 0 {
		return TalkerCount{}, false
	}
	return s.TopSources[0], true
}

// TotalConnections sums the protocol tally.
func (s *FlowSnapshot) TotalConnections() int {
	total := 0
	for _, n := range s.Protocols {
		total += n
	}
	return total
}

// Clone returns a deep copy that shares no map or slice with s.
func (s FlowSnapshot) Clone() FlowSnapshot {
	s.Protocols = maps.Clone(s.Protocols)
	s.TopSources = slices.Clone(s.TopSources)
	s.TopDestinations = slices.Clone(s.TopDestinations)
	return s
}
