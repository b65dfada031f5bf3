package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SystemSnapshot is a point-in-time view of the remote proxy host.
type SystemSnapshot struct {
	TotalMemoryBytes        uint64
	UsedMemoryBytes         uint64
	TotalUsers              uint64
	ActiveUsers             uint64
	TransmittedTrafficBytes uint64
	ReceivedTrafficBytes    uint64
}

// SnapshotFunc fetches the current SystemSnapshot.
type SnapshotFunc func(ctx context.Context) (*SystemSnapshot, error)

// SystemCollector reports remote host gauges, fetched on every scrape.
type SystemCollector struct {
	fetch   SnapshotFunc
	timeout time.Duration

	totalMemory *prometheus.Desc
	usedMemory  *prometheus.Desc
	totalUsers  *prometheus.Desc
	activeUsers *prometheus.Desc
	transmitted *prometheus.Desc
	received    *prometheus.Desc
	up          *prometheus.Desc
}

var _ prometheus.Collector = new(SystemCollector)

func NewSystemCollector(namespace string, timeout time.Duration, fetch SnapshotFunc) *SystemCollector {
	name := func(n string) string { return prometheus.BuildFQName(namespace, "", n) }
	return &SystemCollector{
		fetch:       fetch,
		timeout:     timeout,
		totalMemory: prometheus.NewDesc(name("total_memory_bytes"), "Total available memory in system", nil, nil),
		usedMemory:  prometheus.NewDesc(name("used_memory_bytes"), "Used memory by all process in system", nil, nil),
		totalUsers:  prometheus.NewDesc(name("total_users_count"), "Total users count", nil, nil),
		activeUsers: prometheus.NewDesc(name("active_users_count"), "Active users count", nil, nil),
		transmitted: prometheus.NewDesc(name("total_transmitted_traffic_bytes"), "Total transmitted data in bytes", nil, nil),
		received:    prometheus.NewDesc(name("total_received_traffic_bytes"), "Total received data in bytes", nil, nil),
		up:          prometheus.NewDesc(name("remote_up"), "Whether the last system stats request to the proxy backend succeeded.", nil, nil),
	}
}

func (c *SystemCollector) Describe(descCh chan<- *prometheus.Desc) {
	descCh <- c.totalMemory
	descCh <- c.usedMemory
	descCh <- c.totalUsers
	descCh <- c.activeUsers
	descCh <- c.transmitted
	descCh <- c.received
	descCh <- c.up
}

func (c *SystemCollector) Collect(metricsCh chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	snapshot, err := c.fetch(ctx)
	if err != nil || snapshot == nil {
		metricsCh <- prometheus.MustNewConstMetric(c.up, prometheus.GaugeValue, 0)
		return
	}
	metricsCh <- prometheus.MustNewConstMetric(c.up, prometheus.GaugeValue, 1)

	gauge := func(desc *prometheus.Desc, v uint64) {
		metricsCh <- prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, float64(v))
	}
	gauge(c.totalMemory, snapshot.TotalMemoryBytes)
	gauge(c.usedMemory, snapshot.UsedMemoryBytes)
	gauge(c.totalUsers, snapshot.TotalUsers)
	gauge(c.activeUsers, snapshot.ActiveUsers)
	gauge(c.transmitted, snapshot.TransmittedTrafficBytes)
	gauge(c.received, snapshot.ReceivedTrafficBytes)
}
