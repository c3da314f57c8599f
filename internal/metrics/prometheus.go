package metrics

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"
)

// PrometheusHandler returns an http.HandlerFunc that writes metrics in
// Prometheus text exposition format (version 0.0.4). It does not require the
// Prometheus client library; metrics are formatted manually.
func PrometheusHandler(collector *Collector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats := collector.Stats()
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

		// Uptime in seconds.
		uptimeSeconds := time.Since(collector.startTime).Seconds()

		writeMetric(w, "windowcapd_ticks_total",
			"Total number of orchestrator ticks run.",
			"counter", stats.TotalTicks)

		writeMetric(w, "windowcapd_windows_tracked",
			"Number of windows currently tracked as of the last tick.",
			"gauge", stats.WindowsTracked)

		writeMetric(w, "windowcapd_documents_ingested_total",
			"Total number of ingestion upserts processed (created, updated, or skipped).",
			"counter", stats.TotalIngested)

		writeMetric(w, "windowcapd_tokens_ingested_total",
			"Total whitespace-word token count across all ingested chunks.",
			"counter", stats.TokensIngested)

		writeMetric(w, "windowcapd_tokens_ingested_cl100k_total",
			"Total cl100k_base token count across all ingested chunks.",
			"counter", stats.TokensIngestedCl100k)

		writeMetric(w, "windowcapd_cache_hits_total",
			"Total number of dedup cache hits.",
			"counter", stats.CacheHits)

		writeMetric(w, "windowcapd_cache_misses_total",
			"Total number of dedup cache misses.",
			"counter", stats.CacheMisses)

		writeMetricFloat(w, "windowcapd_cache_hit_rate",
			"Dedup cache hit rate percentage.",
			"gauge", stats.CacheHitRate)

		writeMetric(w, "windowcapd_active_extractions",
			"Number of extractions currently in flight under the admission gate.",
			"gauge", stats.ActiveExtractions)

		writeMetricFloat(w, "windowcapd_uptime_seconds",
			"Number of seconds since the daemon started.",
			"gauge", uptimeSeconds)

		// --- Labeled metrics ---

		// Extraction outcome counters.
		writeCounterVec(w, "windowcapd_extractions_total",
			"Total extractions by backend kind and change-detector verdict.",
			collector.Extractions())

		// Extraction latency histograms.
		writeHistogramVec(w, "windowcapd_extraction_duration_seconds",
			"Capture-plus-extraction duration in seconds by backend kind.",
			collector.ExtractLatency())

		// Ingestion action counters.
		writeCounterVec(w, "windowcapd_ingest_actions_total",
			"Total ingestion upserts by action (created, updated, skipped, failed).",
			collector.IngestActions())

		// Circuit breaker state gauges.
		writeGaugeVec(w, "windowcapd_accessibility_circuit_state",
			"Circuit breaker state per app bundle id (0=closed, 1=open, 2=half-open).",
			collector.CircuitState())

		// Privacy denial counters.
		writeCounterVec(w, "windowcapd_privacy_denials_total",
			"Total windows denied extraction by the privacy filter, per app bundle id.",
			collector.PrivacyDenials())
	}
}

// writeMetric writes a single integer metric in Prometheus text format.
func writeMetric(w http.ResponseWriter, name, help, metricType string, value int64) {
	fmt.Fprintf(w, "# HELP %s %s\n", name, help)
	fmt.Fprintf(w, "# TYPE %s %s\n", name, metricType)
	fmt.Fprintf(w, "%s %d\n", name, value)
}

// writeMetricFloat writes a single float64 metric in Prometheus text format.
func writeMetricFloat(w http.ResponseWriter, name, help, metricType string, value float64) {
	fmt.Fprintf(w, "# HELP %s %s\n", name, help)
	fmt.Fprintf(w, "# TYPE %s %s\n", name, metricType)
	fmt.Fprintf(w, "%s %g\n", name, value)
}

// formatLabels formats a label map as Prometheus label string, e.g. {type="foo",provider="bar"}.
func formatLabels(labels map[string]string) string {
	if len(labels) == 0 {
		return ""
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%s=%q", k, labels[k])
	}
	b.WriteByte('}')
	return b.String()
}

// writeCounterVec writes a labeled counter vec in Prometheus text format.
func writeCounterVec(w http.ResponseWriter, name, help string, cv *counterVec) {
	entries := cv.snapshot()
	if len(entries) == 0 {
		return
	}
	fmt.Fprintf(w, "# HELP %s %s\n", name, help)
	fmt.Fprintf(w, "# TYPE %s counter\n", name)
	for _, e := range entries {
		fmt.Fprintf(w, "%s%s %d\n", name, formatLabels(e.labels), e.value)
	}
}

// writeHistogramVec writes a labeled histogram vec in Prometheus text format.
func writeHistogramVec(w http.ResponseWriter, name, help string, hv *histogramVec) {
	histograms := hv.snapshot()
	if len(histograms) == 0 {
		return
	}
	fmt.Fprintf(w, "# HELP %s %s\n", name, help)
	fmt.Fprintf(w, "# TYPE %s histogram\n", name)
	for _, h := range histograms {
		labels := formatLabels(h.labels)
		// Cumulative bucket counts.
		var cumulative int64
		for i, bound := range h.buckets {
			cumulative += h.counts[i]
			le := fmt.Sprintf("%g", bound)
			if len(h.labels) == 0 {
				fmt.Fprintf(w, "%s_bucket{le=%q} %d\n", name, le, cumulative)
			} else {
				// Insert le into existing labels.
				lbl := formatLabelsWithLe(h.labels, le)
				fmt.Fprintf(w, "%s_bucket%s %d\n", name, lbl, cumulative)
			}
		}
		// +Inf bucket.
		if len(h.labels) == 0 {
			fmt.Fprintf(w, "%s_bucket{le=\"+Inf\"} %d\n", name, h.count)
		} else {
			lbl := formatLabelsWithLe(h.labels, "+Inf")
			fmt.Fprintf(w, "%s_bucket%s %d\n", name, lbl, h.count)
		}
		fmt.Fprintf(w, "%s_sum%s %g\n", name, labels, h.sum)
		fmt.Fprintf(w, "%s_count%s %d\n", name, labels, h.count)
	}
}

// formatLabelsWithLe formats labels with an additional "le" label for histogram buckets.
func formatLabelsWithLe(labels map[string]string, le string) string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%s=%q", k, labels[k])
	}
	fmt.Fprintf(&b, ",le=%q", le)
	b.WriteByte('}')
	return b.String()
}

// writeGaugeVec writes a labeled gauge vec in Prometheus text format.
func writeGaugeVec(w http.ResponseWriter, name, help string, gv *gaugeVec) {
	entries := gv.snapshot()
	if len(entries) == 0 {
		return
	}
	fmt.Fprintf(w, "# HELP %s %s\n", name, help)
	fmt.Fprintf(w, "# TYPE %s gauge\n", name)
	for _, e := range entries {
		fmt.Fprintf(w, "%s%s %g\n", name, formatLabels(e.labels), e.value)
	}
}
