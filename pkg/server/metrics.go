package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "slaskcatalog_http_requests_total",
		Help: "HTTP requests by route and status code",
	}, []string{"route", "code"})
	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "slaskcatalog_response_cache_hits_total",
		Help: "Responses served from the cache",
	})
	cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "slaskcatalog_response_cache_misses_total",
		Help: "Responses computed because the cache had no entry",
	})
)
