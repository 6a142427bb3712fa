package metric

import (
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
)

// GoroutineCollector reports the live goroutine count, sampled fresh on
// every scrape rather than cached between collections.
type GoroutineCollector struct {
	desc *prometheus.Desc
}

// NewGoroutineCollector returns a collector ready to register.
func NewGoroutineCollector() *GoroutineCollector {
	return &GoroutineCollector{
		desc: prometheus.NewDesc("sirius_goroutines", "Number of live goroutines.", nil, nil),
	}
}

func (c *GoroutineCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.desc
}

func (c *GoroutineCollector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(c.desc, prometheus.GaugeValue, float64(runtime.NumGoroutine()))
}
