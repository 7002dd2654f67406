// Package stats collects machine-readable (key, label, value) entries from
// the generator, analyzer, and oracle and renders them for reporting.
package stats

import (
	"fmt"
	"strings"
	"text/tabwriter"
)

// Entry is one stats datum: a stable machine-readable key, a human label,
// and a value (int, float64, or string).
type Entry struct {
	Key   string
	Label string
	Value interface{}
}

// Collector accumulates entries across a run.
type Collector struct {
	entries []Entry
}

// NewCollector returns an empty collector.
func NewCollector() *Collector { return &Collector{} }

// Add appends entries to the collector.
func (c *Collector) Add(entries ...Entry) {
	c.entries = append(c.entries, entries...)
}

// Keys joins every entry's key with sep.
func (c *Collector) Keys(sep string) string {
	keys := make([]string, len(c.entries))
	for i, e := range c.entries {
		keys[i] = e.Key
	}
	return strings.Join(keys, sep)
}

// Values joins every entry's value with sep.
func (c *Collector) Values(sep string) string {
	values := make([]string, len(c.entries))
	for i, e := range c.entries {
		values[i] = fmt.Sprintf("%v", e.Value)
	}
	return strings.Join(values, sep)
}

// Pretty renders a human-readable, aligned "Label: Value" report.
func (c *Collector) Pretty() string {
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 2, 1, ' ', 0)
	for _, e := range c.entries {
		fmt.Fprintf(w, "%s:\t%v\n", e.Label, e.Value)
	}
	w.Flush()
	return b.String()
}

// Stats keys recognized by spec §6.
const (
	KeyGenerationTime    = "generation_time_seconds"
	KeyEngineTime        = "engine_time_seconds"
	KeyEngineCacheHits   = "engine_cache_hits"
	KeyEngineCacheMiss   = "engine_cache_misses"
	KeyEngineCalls       = "engine_calls"
	KeyTracesGenerated   = "traces_generated"
	KeyAnalyzerTime      = "analyzer_time_seconds"
	KeyOracleCacheHits   = "oracle_cache_hits"
	KeyOracleCacheMiss   = "oracle_cache_misses"
	KeyHarmfulRaceCount  = "harmful_race_count"
	KeySkippedRacePrefix = "skipped_race_"
)
