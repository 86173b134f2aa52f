// Package metrics wires the storage engine's optional MetricsSink interface
// to real Prometheus instruments, the way imReese-NexusKV's pkg/metrics wires
// Prometheus counters into its own store. The engine itself never imports
// this package or Prometheus - Collector is handed to storage.WithMetrics as
// a storage.MetricsSink, keeping the dependency one-directional.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector implements storage.MetricsSink on top of a dedicated Prometheus
// registry, so a CLI invocation can print or serve it without colliding with
// any global registry the embedding process might already use.
type Collector struct {
	Registry *prometheus.Registry

	puts         prometheus.Counter
	getsHit      prometheus.Counter
	getsMiss     prometheus.Counter
	flushes      prometheus.Counter
	flushedSum   prometheus.Counter
	compactions  *prometheus.CounterVec
	compactedSum *prometheus.CounterVec
	levelSize    *prometheus.GaugeVec
}

// NewCollector creates a Collector with a fresh registry and registers every
// instrument on it.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	c := &Collector{
		Registry: reg,
		puts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lsmkv_puts_total",
			Help: "Total number of Put calls.",
		}),
		getsHit: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lsmkv_gets_hit_total",
			Help: "Total number of Get calls that found a value.",
		}),
		getsMiss: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lsmkv_gets_miss_total",
			Help: "Total number of Get calls that found nothing.",
		}),
		flushes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lsmkv_flushes_total",
			Help: "Total number of memtable flushes to level 0.",
		}),
		flushedSum: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lsmkv_flushed_entries_total",
			Help: "Total number of entries written across all flushes.",
		}),
		compactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lsmkv_compactions_total",
			Help: "Total number of level merges, by destination level.",
		}, []string{"level"}),
		compactedSum: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lsmkv_compacted_entries_total",
			Help: "Total number of entries written by merges, by destination level.",
		}, []string{"level"}),
		levelSize: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "lsmkv_level_size",
			Help: "Current entry count per level, as last reported by the engine.",
		}, []string{"level"}),
	}

	reg.MustRegister(c.puts, c.getsHit, c.getsMiss, c.flushes, c.flushedSum,
		c.compactions, c.compactedSum, c.levelSize)
	return c
}

// ObservePut implements storage.MetricsSink.
func (c *Collector) ObservePut() {
	c.puts.Inc()
}

// ObserveGet implements storage.MetricsSink.
func (c *Collector) ObserveGet(hit bool) {
	if hit {
		c.getsHit.Inc()
		return
	}
	c.getsMiss.Inc()
}

// ObserveFlush implements storage.MetricsSink.
func (c *Collector) ObserveFlush(entries int) {
	c.flushes.Inc()
	c.flushedSum.Add(float64(entries))
}

// ObserveCompaction implements storage.MetricsSink.
func (c *Collector) ObserveCompaction(level int, entriesWritten int) {
	label := levelLabel(level)
	c.compactions.WithLabelValues(label).Inc()
	c.compactedSum.WithLabelValues(label).Add(float64(entriesWritten))
	c.levelSize.WithLabelValues(label).Set(float64(entriesWritten))
}

// SetLevelSize records a level's current entry count directly, used by the
// CLI's stats command to publish a full snapshot rather than only the
// levels a compaction just touched.
func (c *Collector) SetLevelSize(level int, size int) {
	c.levelSize.WithLabelValues(levelLabel(level)).Set(float64(size))
}

func levelLabel(level int) string {
	digits := [...]string{"0", "1", "2", "3", "4", "5", "6", "7", "8", "9"}
	if level >= 0 && level < len(digits) {
		return digits[level]
	}
	return "overflow"
}
