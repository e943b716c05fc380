package traffic

import (
	"sort"
	"strings"
	"sync"
	"time"

	"netinsight/internal/client"
	"netinsight/internal/model"

	"github.com/sirupsen/logrus"
)

// MaxTopN is the longest ranking a snapshot carries.
const MaxTopN = 5

var countedStates = []string{"ESTABLISHED", "SYN_SENT"}

// Aggregator turns connection-table text into a FlowSnapshot and keeps the
// latest one around.
type Aggregator struct {
	topN    int
	logger  *logrus.Logger
	metrics *client.PrometheusMetrics
	now     func() time.Time

	mu   sync.RWMutex
	last *model.FlowSnapshot
}

// NewAggregator keeps the topN busiest talkers per ranking; values outside
// 1..MaxTopN fall back to MaxTopN.
func NewAggregator(topN int, logger *logrus.Logger) *Aggregator {
	if topN <= 0 || topN > MaxTopN {
		topN = MaxTopN
	}
	return &Aggregator{
		topN:   topN,
		logger: logger,
		now:    time.Now,
	}
}

func (a *Aggregator) SetMetrics(metrics *client.PrometheusMetrics) {
	a.metrics = metrics
}

// Aggregate counts every ESTABLISHED or SYN_SENT line. Field 4 is the local
// endpoint and field 5 the remote one; both are split on their last ':' so
// IPv6 addresses survive. Malformed lines are skipped.
func (a *Aggregator) Aggregate(text string) model.FlowSnapshot {
	protocols := map[string]int{model.ProtocolTCP: 0, model.ProtocolUDP: 0}
	sources := newTally()
	destinations := newTally()
	skipped := 0

	for _, line := range strings.Split(text, "\n") {
		if !hasCountedState(line) {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 5 {
			skipped++
			continue
		}

		src, ok := splitHost(fields[3])
		if !ok {
			skipped++
			continue
		}
		dst, ok := splitHost(fields[4])
		if !ok {
			skipped++
			continue
		}

		protocols[model.ProtocolTCP]++
		sources.add(src)
		destinations.add(dst)
	}

	snapshot := model.FlowSnapshot{
		Timestamp:       a.now(),
		Protocols:       protocols,
		TopSources:      sources.top(a.topN),
		TopDestinations: destinations.top(a.topN),
	}

	if skipped > 0 {
		a.logger.Debugf("Skipped %d malformed connection lines", skipped)
	}
	if a.metrics != nil {
		for proto, n := range protocols {
			a.metrics.ConnectionsByProtocol.WithLabelValues(proto).Set(float64(n))
		}
	}

	a.mu.Lock()
	stored := snapshot.Clone()
	a.last = &stored
	a.mu.Unlock()

	return snapshot
}

// LastSnapshot returns a copy of the most recent snapshot, or nil before the
// first aggregation.
func (a *Aggregator) LastSnapshot() *model.FlowSnapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.last == nil {
		return nil
	}
	snapshot := a.last.Clone()
	return &snapshot
}

func hasCountedState(line string) bool {
	for _, state := range countedStates {
		if strings.Contains(line, state) {
			return true
		}
	}
	return false
}

// splitHost drops the port from "addr:port", splitting on the last colon.
func splitHost(endpoint string) (string, bool) {
	i := strings.LastIndex(endpoint, ":")
	if i <= 0 {
		return "", false
	}
	return strings.Trim(endpoint[:i], "[]"), true
}

// tally counts keys and remembers first-seen order so rankings with equal
// counts come out in input order.
type tally struct {
	order  []string
	counts map[string]int
}

func newTally() *tally {
	return &tally{counts: make(map[string]int)}
}

func (t *tally) add(key string) {
	if _, seen := t.counts[key]; !seen {
		t.order = append(t.order, key)
	}
	t.counts[key]++
}

func (t *tally) top(n int) []model.TalkerCount {
	ranked := make([]model.TalkerCount, 0, len(t.order))
	for _, key := range t.order {
		ranked = append(ranked, model.TalkerCount{IP: key, Count: t.counts[key]})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Count > ranked[j].Count
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}
