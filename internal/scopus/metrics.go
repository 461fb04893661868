package scopus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for Scopus requests.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "citeharvest_requests_total",
		Help: "Total number of Scopus HTTP attempts by outcome",
	}, []string{"outcome"})

	retriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "citeharvest_retries_total",
		Help: "Total number of Scopus request retries",
	})

	retryExhaustedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "citeharvest_retry_exhausted_total",
		Help: "Total number of Scopus requests that exhausted all attempts",
	})

	pagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "citeharvest_pages_total",
		Help: "Total number of fetched pages by status",
	}, []string{"status"})
)
