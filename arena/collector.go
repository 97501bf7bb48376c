package arena

import "github.com/prometheus/client_golang/prometheus"

var (
	capacityDesc = prometheus.NewDesc(
		"fixedarena_capacity_bytes",
		"Size of the arena backing buffer.",
		[]string{"arena"}, nil,
	)
	usedDesc = prometheus.NewDesc(
		"fixedarena_used_bytes",
		"Bytes consumed by the bump cursor, including alignment padding.",
		[]string{"arena"}, nil,
	)
	freeBlocksDesc = prometheus.NewDesc(
		"fixedarena_free_blocks",
		"Number of entries in the free list.",
		[]string{"arena"}, nil,
	)
	freeBytesDesc = prometheus.NewDesc(
		"fixedarena_free_bytes",
		"Total bytes held in the free list.",
		[]string{"arena"}, nil,
	)
	wasteDesc = prometheus.NewDesc(
		"fixedarena_alignment_waste_bytes",
		"Bytes permanently lost to alignment padding.",
		[]string{"arena", "source"}, nil,
	)
	allocsDesc = prometheus.NewDesc(
		"fixedarena_allocations_total",
		"Successful allocations.",
		[]string{"arena", "source"}, nil,
	)
	deallocsDesc = prometheus.NewDesc(
		"fixedarena_deallocations_total",
		"Regions returned to the free list.",
		[]string{"arena"}, nil,
	)
	failuresDesc = prometheus.NewDesc(
		"fixedarena_allocation_failures_total",
		"Allocations that failed with out of memory.",
		[]string{"arena"}, nil,
	)
)

var _ prometheus.Collector = (*Collector)(nil)

// Collector exports arena statistics as Prometheus metrics.
//
// A Resource is not safe for concurrent use and scrapes run on their own
// goroutine, so the collector reads statistics through a function. Wrap
// Resource.Stats with whatever lock guards the arena.
type Collector struct {
	name  string
	stats func() Stats
}

// NewCollector creates a collector labelled with name.
//
//	prometheus.MustRegister(arena.NewCollector("nodes", func() arena.Stats {
//	    mu.Lock()
//	    defer mu.Unlock()
//	    return r.Stats()
//	}))
func NewCollector(name string, stats func() Stats) *Collector {
	return &Collector{name: name, stats: stats}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(descs chan<- *prometheus.Desc) {
	descs <- capacityDesc
	descs <- usedDesc
	descs <- freeBlocksDesc
	descs <- freeBytesDesc
	descs <- wasteDesc
	descs <- allocsDesc
	descs <- deallocsDesc
	descs <- failuresDesc
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(metrics chan<- prometheus.Metric) {
	s := c.stats()

	metrics <- prometheus.MustNewConstMetric(capacityDesc, prometheus.GaugeValue, float64(s.Capacity), c.name)
	metrics <- prometheus.MustNewConstMetric(usedDesc, prometheus.GaugeValue, float64(s.Used), c.name)
	metrics <- prometheus.MustNewConstMetric(freeBlocksDesc, prometheus.GaugeValue, float64(s.FreeBlocks), c.name)
	metrics <- prometheus.MustNewConstMetric(freeBytesDesc, prometheus.GaugeValue, float64(s.FreeBytes), c.name)
	metrics <- prometheus.MustNewConstMetric(wasteDesc, prometheus.GaugeValue, float64(s.BumpWaste), c.name, "bump")
	metrics <- prometheus.MustNewConstMetric(wasteDesc, prometheus.GaugeValue, float64(s.ReuseWaste), c.name, "free_list")
	metrics <- prometheus.MustNewConstMetric(allocsDesc, prometheus.CounterValue, float64(s.Allocs-s.Reuses), c.name, "bump")
	metrics <- prometheus.MustNewConstMetric(allocsDesc, prometheus.CounterValue, float64(s.Reuses), c.name, "free_list")
	metrics <- prometheus.MustNewConstMetric(deallocsDesc, prometheus.CounterValue, float64(s.Deallocs), c.name)
	metrics <- prometheus.MustNewConstMetric(failuresDesc, prometheus.CounterValue, float64(s.Failures), c.name)
}
