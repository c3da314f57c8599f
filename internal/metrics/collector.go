package metrics

import (
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkoukk/tiktoken-go"
)

// labeledCounter tracks a counter value for a specific label combination.
type labeledCounter struct {
	labels map[string]string
	value  int64
}

// histogram tracks a distribution of observed values using pre-defined buckets.
type histogram struct {
	mu      sync.Mutex
	labels  map[string]string
	buckets []float64 // upper bounds, sorted ascending
	counts  []int64   // count per bucket
	sum     float64
	count   int64
}

func newHistogram(labels map[string]string, buckets []float64) *histogram {
	sorted := make([]float64, len(buckets))
	copy(sorted, buckets)
	sort.Float64s(sorted)
	return &histogram{
		labels:  labels,
		buckets: sorted,
		counts:  make([]int64, len(sorted)),
	}
}

func (h *histogram) observe(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sum += v
	h.count++
	for i, bound := range h.buckets {
		if v <= bound {
			h.counts[i]++
		}
	}
}

// counterVec is a thread-safe collection of labeled counters.
type counterVec struct {
	mu       sync.RWMutex
	counters map[string]*labeledCounter
}

func newCounterVec() *counterVec {
	return &counterVec{counters: make(map[string]*labeledCounter)}
}

func (cv *counterVec) inc(labels map[string]string) {
	key := labelsKey(labels)
	cv.mu.Lock()
	c, ok := cv.counters[key]
	if !ok {
		c = &labeledCounter{labels: copyLabels(labels)}
		cv.counters[key] = c
	}
	cv.mu.Unlock()
	atomic.AddInt64(&c.value, 1)
}

func (cv *counterVec) snapshot() []labeledCounter {
	cv.mu.RLock()
	defer cv.mu.RUnlock()
	result := make([]labeledCounter, 0, len(cv.counters))
	for _, c := range cv.counters {
		result = append(result, labeledCounter{
			labels: copyLabels(c.labels),
			value:  atomic.LoadInt64(&c.value),
		})
	}
	return result
}

// histogramVec is a thread-safe collection of labeled histograms.
type histogramVec struct {
	mu         sync.RWMutex
	histograms map[string]*histogram
	buckets    []float64
}

func newHistogramVec(buckets []float64) *histogramVec {
	return &histogramVec{
		histograms: make(map[string]*histogram),
		buckets:    buckets,
	}
}

func (hv *histogramVec) observe(labels map[string]string, v float64) {
	key := labelsKey(labels)
	hv.mu.RLock()
	h, ok := hv.histograms[key]
	hv.mu.RUnlock()
	if !ok {
		hv.mu.Lock()
		h, ok = hv.histograms[key]
		if !ok {
			h = newHistogram(copyLabels(labels), hv.buckets)
			hv.histograms[key] = h
		}
		hv.mu.Unlock()
	}
	h.observe(v)
}

func (hv *histogramVec) snapshot() []*histogram {
	hv.mu.RLock()
	defer hv.mu.RUnlock()
	result := make([]*histogram, 0, len(hv.histograms))
	for _, h := range hv.histograms {
		h.mu.Lock()
		snap := &histogram{
			labels:  copyLabels(h.labels),
			buckets: h.buckets,
			counts:  make([]int64, len(h.counts)),
			sum:     h.sum,
			count:   h.count,
		}
		copy(snap.counts, h.counts)
		h.mu.Unlock()
		result = append(result, snap)
	}
	return result
}

// gaugeVec tracks a set of labeled gauges that can be set to any value.
type gaugeVec struct {
	mu     sync.RWMutex
	gauges map[string]*labeledGauge
}

type labeledGauge struct {
	labels map[string]string
	value  uint64 // float64 stored via math.Float64bits
}

func newGaugeVec() *gaugeVec {
	return &gaugeVec{gauges: make(map[string]*labeledGauge)}
}

func (gv *gaugeVec) set(labels map[string]string, v float64) {
	key := labelsKey(labels)
	gv.mu.Lock()
	g, ok := gv.gauges[key]
	if !ok {
		g = &labeledGauge{labels: copyLabels(labels)}
		gv.gauges[key] = g
	}
	gv.mu.Unlock()
	atomic.StoreUint64(&g.value, math.Float64bits(v))
}

func (gv *gaugeVec) snapshot() []struct {
	labels map[string]string
	value  float64
} {
	gv.mu.RLock()
	defer gv.mu.RUnlock()
	result := make([]struct {
		labels map[string]string
		value  float64
	}, 0, len(gv.gauges))
	for _, g := range gv.gauges {
		result = append(result, struct {
			labels map[string]string
			value  float64
		}{
			labels: copyLabels(g.labels),
			value:  math.Float64frombits(atomic.LoadUint64(&g.value)),
		})
	}
	return result
}

func labelsKey(labels map[string]string) string {
	// Build a deterministic key from sorted label pairs.
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	key := ""
	for _, k := range keys {
		key += k + "=" + labels[k] + ","
	}
	return key
}

func copyLabels(labels map[string]string) map[string]string {
	cp := make(map[string]string, len(labels))
	for k, v := range labels {
		cp[k] = v
	}
	return cp
}

// Collector tracks live metrics using atomic counters for lock-free,
// concurrent-safe updates. It provides an in-memory real-time view of tick
// throughput, extraction outcomes, ingestion volume, and cache performance.
type Collector struct {
	totalTicks          int64
	windowsTracked      int64
	totalIngested       int64
	totalTokensIngested int64
	totalTokensCl100k   int64

	cacheHits   int64
	cacheMisses int64

	activeExtractions int64

	startTime time.Time

	tikEnc *tiktoken.Tiktoken

	// Labeled Prometheus-style metrics.
	extractions      *counterVec   // labels: backend, verdict
	extractLatency   *histogramVec // labels: backend
	ingestActions    *counterVec   // labels: action
	circuitState     *gaugeVec     // labels: bundle_id
	privacyDenials   *counterVec   // labels: bundle_id
}

// Stats is a point-in-time snapshot of the collector's counters, suitable
// for JSON serialisation on the admin API's /api/stats endpoint.
type Stats struct {
	Uptime              string `json:"uptime"`
	TotalTicks          int64  `json:"total_ticks"`
	WindowsTracked      int64  `json:"windows_tracked"`
	TotalIngested       int64  `json:"total_ingested"`
	TokensIngested      int64  `json:"tokens_ingested"`
	TokensIngestedCl100k int64 `json:"tokens_ingested_cl100k"`
	CacheHits           int64  `json:"cache_hits"`
	CacheMisses         int64  `json:"cache_misses"`
	CacheHitRate        float64 `json:"cache_hit_rate"`
	ActiveExtractions   int64  `json:"active_extractions"`
}

// extractLatencyBuckets are tuned for accessibility-subprocess and OCR call
// durations, both expected to land well under the router's per-window
// extraction timeout.
var extractLatencyBuckets = []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

// NewCollector creates a new Collector with all counters initialised to
// zero and the start time set to now. The tiktoken cl100k_base encoder is
// loaded once and reused for every ingested chunk's secondary token count.
func NewCollector() *Collector {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		enc = nil
	}
	return &Collector{
		startTime:      time.Now(),
		tikEnc:         enc,
		extractions:    newCounterVec(),
		extractLatency: newHistogramVec(extractLatencyBuckets),
		ingestActions:  newCounterVec(),
		circuitState:   newGaugeVec(),
		privacyDenials: newCounterVec(),
	}
}

// RecordTick increments the tick counter and sets the currently-tracked
// window count gauge-style (stored as a plain counter snapshot since the
// tracker reports an absolute count each tick, not a delta).
func (c *Collector) RecordTick(windowsTracked int) {
	atomic.AddInt64(&c.totalTicks, 1)
	atomic.StoreInt64(&c.windowsTracked, int64(windowsTracked))
}

// RecordIngest updates ingestion counters from a completed upsert, and
// derives the secondary cl100k_base token count from the ingested text for
// comparison against the chunker's whitespace-word token_count.
func (c *Collector) RecordIngest(action string, tokenCount int, text string) {
	atomic.AddInt64(&c.totalIngested, 1)
	atomic.AddInt64(&c.totalTokensIngested, int64(tokenCount))
	if c.tikEnc != nil {
		atomic.AddInt64(&c.totalTokensCl100k, int64(len(c.tikEnc.Encode(text, nil, nil))))
	}
	c.ingestActions.inc(map[string]string{"action": action})
}

// RecordCacheHit and RecordCacheMiss count dedup cache hits and misses for
// the reported hit rate; internal/ingest does not call them.
func (c *Collector) RecordCacheHit()  { atomic.AddInt64(&c.cacheHits, 1) }
func (c *Collector) RecordCacheMiss() { atomic.AddInt64(&c.cacheMisses, 1) }

// IncrementActiveExtractions and DecrementActiveExtractions track how many
// extractions are in flight under the router's admission gate.
func (c *Collector) IncrementActiveExtractions() { atomic.AddInt64(&c.activeExtractions, 1) }
func (c *Collector) DecrementActiveExtractions() { atomic.AddInt64(&c.activeExtractions, -1) }

// Stats returns a point-in-time snapshot of all metrics.
func (c *Collector) Stats() *Stats {
	hits := atomic.LoadInt64(&c.cacheHits)
	misses := atomic.LoadInt64(&c.cacheMisses)

	var hitRate float64
	totalCacheOps := hits + misses
	if totalCacheOps > 0 {
		hitRate = float64(hits) / float64(totalCacheOps) * 100
	}

	return &Stats{
		Uptime:               formatDuration(time.Since(c.startTime)),
		TotalTicks:           atomic.LoadInt64(&c.totalTicks),
		WindowsTracked:       atomic.LoadInt64(&c.windowsTracked),
		TotalIngested:        atomic.LoadInt64(&c.totalIngested),
		TokensIngested:       atomic.LoadInt64(&c.totalTokensIngested),
		TokensIngestedCl100k: atomic.LoadInt64(&c.totalTokensCl100k),
		CacheHits:            hits,
		CacheMisses:          misses,
		CacheHitRate:         hitRate,
		ActiveExtractions:    atomic.LoadInt64(&c.activeExtractions),
	}
}

// RecordExtraction increments the extraction counter for the given backend
// kind and change-detector verdict (e.g. "accessibility"/"changed",
// "ocr"/"unchanged").
func (c *Collector) RecordExtraction(backend, verdict string) {
	c.extractions.inc(map[string]string{
		"backend": backend,
		"verdict": verdict,
	})
}

// ObserveExtractionLatency records a capture-plus-extraction duration in
// seconds for the given backend kind.
func (c *Collector) ObserveExtractionLatency(backend string, seconds float64) {
	c.extractLatency.observe(map[string]string{"backend": backend}, seconds)
}

// SetCircuitState sets the current circuit breaker state gauge for an
// app's accessibility extraction. 0=closed, 1=open, 2=half-open.
func (c *Collector) SetCircuitState(bundleID string, state float64) {
	c.circuitState.set(map[string]string{"bundle_id": bundleID}, state)
}

// RecordPrivacyDenial increments the privacy-filter denial counter for the
// given app, so operators can tell a quiet window apart from a filtered one.
func (c *Collector) RecordPrivacyDenial(bundleID string) {
	c.privacyDenials.inc(map[string]string{"bundle_id": bundleID})
}

// Extractions returns the extraction counter vec for Prometheus export.
func (c *Collector) Extractions() *counterVec { return c.extractions }

// ExtractLatency returns the extraction latency histogram vec for Prometheus export.
func (c *Collector) ExtractLatency() *histogramVec { return c.extractLatency }

// IngestActions returns the ingest action counter vec for Prometheus export.
func (c *Collector) IngestActions() *counterVec { return c.ingestActions }

// CircuitState returns the circuit state gauge vec for Prometheus export.
func (c *Collector) CircuitState() *gaugeVec { return c.circuitState }

// PrivacyDenials returns the privacy denial counter vec for Prometheus export.
func (c *Collector) PrivacyDenials() *counterVec { return c.privacyDenials }

// formatDuration produces a human-readable duration string like "2d 5h 32m".
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return d.Round(time.Second).String()
	}

	days := int(d.Hours() / 24)
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60

	if days > 0 {
		return formatWithUnits(days, "d", hours, "h", minutes, "m")
	}
	if hours > 0 {
		return formatWithUnits(hours, "h", minutes, "m", 0, "")
	}
	return formatWithUnits(minutes, "m", 0, "", 0, "")
}

// formatWithUnits builds a compact duration string from up to three components.
func formatWithUnits(v1 int, u1 string, v2 int, u2 string, v3 int, u3 string) string {
	s := ""
	if v1 > 0 {
		s += intStr(v1) + u1
	}
	if v2 > 0 {
		if s != "" {
			s += " "
		}
		s += intStr(v2) + u2
	}
	if v3 > 0 && u3 != "" {
		if s != "" {
			s += " "
		}
		s += intStr(v3) + u3
	}
	if s == "" {
		return "0m"
	}
	return s
}

// intStr converts an int to its string representation without importing strconv.
func intStr(n int) string {
	if n == 0 {
		return "0"
	}
	if n < 0 {
		return "-" + intStr(-n)
	}
	digits := make([]byte, 0, 10)
	for n > 0 {
		digits = append(digits, byte('0'+n%10))
		n /= 10
	}
	// reverse
	for i, j := 0, len(digits)-1; i < j; i, j = i+1, j-1 {
		digits[i], digits[j] = digits[j], digits[i]
	}
	return string(digits)
}
