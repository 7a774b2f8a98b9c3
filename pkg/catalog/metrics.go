package catalog

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	searchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "slaskcatalog_searches_total",
		Help: "The total number of processed catalog searches",
	})
	searchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "slaskcatalog_search_duration_seconds",
		Help:    "Time spent matching, counting and paginating one search",
		Buckets: prometheus.DefBuckets,
	})
	degradedDimensions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "slaskcatalog_facet_degraded_total",
		Help: "Facet dimensions that exceeded their time budget",
	}, []string{"dimension"})
	categoryCycles = promauto.NewCounter(prometheus.CounterOpts{
		Name: "slaskcatalog_category_cycles_total",
		Help: "Category graph cycles detected while resolving the tree",
	})
)
