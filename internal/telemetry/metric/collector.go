package metric

import "github.com/prometheus/client_golang/prometheus"

// StoreStats is the point-in-time view the collector exports.
type StoreStats struct {
	RestoreKeys int
	SaveKeys    int
	SaveBytes   int
	Initialized bool
}

// StatsFunc reads the current store statistics.
type StatsFunc func() StoreStats

// Collector exports state store sizes at scrape time.
type Collector struct {
	stats StatsFunc

	restoreKeys *prometheus.Desc
	saveKeys    *prometheus.Desc
	saveBytes   *prometheus.Desc
	initialized *prometheus.Desc
}

// NewCollector creates a collector reading from stats.
func NewCollector(stats StatsFunc) *Collector {
	return &Collector{
		stats: stats,
		restoreKeys: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "restore_keys"),
			"Carried-over keys not yet consumed by a get.", nil, nil),
		saveKeys: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "save_keys"),
			"Keys currently held in the save store.", nil, nil),
		saveBytes: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "save_bytes"),
			"Total value bytes held in the save store.", nil, nil),
		initialized: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "initialized"),
			"1 once the restore store has been installed.", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.restoreKeys
	ch <- c.saveKeys
	ch <- c.saveBytes
	ch <- c.initialized
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	if c.stats == nil {
		return
	}
	s := c.stats()

	var initialized float64
	if s.Initialized {
		initialized = 1
	}

	ch <- prometheus.MustNewConstMetric(c.restoreKeys, prometheus.GaugeValue, float64(s.RestoreKeys))
	ch <- prometheus.MustNewConstMetric(c.saveKeys, prometheus.GaugeValue, float64(s.SaveKeys))
	ch <- prometheus.MustNewConstMetric(c.saveBytes, prometheus.GaugeValue, float64(s.SaveBytes))
	ch <- prometheus.MustNewConstMetric(c.initialized, prometheus.GaugeValue, initialized)
}
