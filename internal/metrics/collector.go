package metrics

import (
	"sort"
	"strings"
	"sync"

	"github.com/GoSim-25-26J-441/queue-sim/pkg/models"
)

// DefaultMaxPoints bounds each series when NewCollector is given no limit
const DefaultMaxPoints = 10000

// Collector stores time series keyed by metric name and label set.
// Timestamps are simulated time. When a series reaches maxPoints it is
// thinned by dropping every second point, so long runs keep an even
// coverage of the whole horizon.
type Collector struct {
	mu sync.RWMutex

	startTime float64
	endTime   float64
	maxPoints int

	// metric name -> label key -> points
	timeSeries map[string]map[string][]*models.MetricPoint
}

// NewCollector creates a collector keeping at most maxPoints per series
func NewCollector(maxPoints int) *Collector {
	if maxPoints < 2 {
		maxPoints = DefaultMaxPoints
	}
	return &Collector{
		maxPoints:  maxPoints,
		timeSeries: make(map[string]map[string][]*models.MetricPoint),
	}
}

// Start marks the simulated time at which collection began
func (c *Collector) Start(simTime float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.startTime = simTime
}

// Stop marks the simulated time at which collection ended
func (c *Collector) Stop(simTime float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.endTime = simTime
}

// Record records a metric value at a simulated time
func (c *Collector) Record(name string, value float64, simTime float64, labels map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := labelKey(labels)
	if c.timeSeries[name] == nil {
		c.timeSeries[name] = make(map[string][]*models.MetricPoint)
	}

	points := c.timeSeries[name][key]
	if len(points) >= c.maxPoints {
		points = thin(points)
	}
	c.timeSeries[name][key] = append(points, &models.MetricPoint{
		SimTime: simTime,
		Name:    name,
		Value:   value,
		Labels:  copyLabels(labels),
	})
}

// GetTimeSeries returns a copy of the points for a metric
func (c *Collector) GetTimeSeries(name string, labels map[string]string) []*models.MetricPoint {
	c.mu.RLock()
	defer c.mu.RUnlock()

	points := c.getPointsUnsafe(name, labelKey(labels))
	if points == nil {
		return nil
	}
	result := make([]*models.MetricPoint, len(points))
	for i, p := range points {
		result[i] = &models.MetricPoint{
			SimTime: p.SimTime,
			Name:    p.Name,
			Value:   p.Value,
			Labels:  copyLabels(p.Labels),
		}
	}
	return result
}

// GetAggregation calculates aggregated statistics for a metric
func (c *Collector) GetAggregation(name string, labels map[string]string) *models.Aggregation {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return calculateAggregation(c.getPointsUnsafe(name, labelKey(labels)))
}

// GetSummary returns every collected value with per-metric aggregations
func (c *Collector) GetSummary() *models.MetricsSummary {
	c.mu.RLock()
	defer c.mu.RUnlock()

	summary := &models.MetricsSummary{
		StartTime:    c.startTime,
		EndTime:      c.endTime,
		Metrics:      make(map[string][]float64),
		Aggregations: make(map[string]*models.Aggregation),
	}

	for name, labelMap := range c.timeSeries {
		var all []*models.MetricPoint
		values := make([]float64, 0)
		for _, key := range sortedKeys(labelMap) {
			for _, p := range labelMap[key] {
				values = append(values, p.Value)
			}
			all = append(all, labelMap[key]...)
		}
		summary.Metrics[name] = values
		if agg := calculateAggregation(all); agg != nil {
			summary.Aggregations[name] = agg
		}
	}
	return summary
}

// GetMetricNames returns the collected metric names in sorted order
func (c *Collector) GetMetricNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.timeSeries))
	for name := range c.timeSeries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clear drops all collected metrics
func (c *Collector) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.timeSeries = make(map[string]map[string][]*models.MetricPoint)
	c.startTime = 0
	c.endTime = 0
}

// getPointsUnsafe returns points without locking (caller must hold lock)
func (c *Collector) getPointsUnsafe(name, key string) []*models.MetricPoint {
	if c.timeSeries[name] == nil {
		return nil
	}
	return c.timeSeries[name][key]
}

// thin keeps every second point, always retaining the first
func thin(points []*models.MetricPoint) []*models.MetricPoint {
	kept := points[:0]
	for i := 0; i < len(points); i += 2 {
		kept = append(kept, points[i])
	}
	for i := len(kept); i < len(points); i++ {
		points[i] = nil
	}
	return kept
}

// labelKey creates a stable key from labels for map lookup
func labelKey(labels map[string]string) string {
	if len(labels) == 0 {
		return ""
	}
	keys := sortedKeys(labels)
	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(labels[k])
	}
	return b.String()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func copyLabels(labels map[string]string) map[string]string {
	if labels == nil {
		return nil
	}
	out := make(map[string]string, len(labels))
	for k, v := range labels {
		out[k] = v
	}
	return out
}

// calculateAggregation calculates aggregated statistics from metric points
func calculateAggregation(points []*models.MetricPoint) *models.Aggregation {
	if len(points) == 0 {
		return nil
	}

	values := make([]float64, len(points))
	sum := 0.0
	for i, p := range points {
		values[i] = p.Value
		sum += p.Value
	}
	sort.Float64s(values)

	return &models.Aggregation{
		Count: int64(len(values)),
		Sum:   sum,
		Min:   values[0],
		Max:   values[len(values)-1],
		Mean:  sum / float64(len(values)),
		P50:   calculatePercentile(values, 0.50),
		P95:   calculatePercentile(values, 0.95),
		P99:   calculatePercentile(values, 0.99),
	}
}

// calculatePercentile interpolates the p-th percentile of a sorted slice
func calculatePercentile(sortedValues []float64, p float64) float64 {
	switch len(sortedValues) {
	case 0:
		return 0
	case 1:
		return sortedValues[0]
	}

	index := p * float64(len(sortedValues)-1)
	lower := int(index)
	upper := lower + 1
	if upper >= len(sortedValues) {
		return sortedValues[len(sortedValues)-1]
	}
	weight := index - float64(lower)
	return sortedValues[lower]*(1-weight) + sortedValues[upper]*weight
}
