package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	searchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "discovery_searches_total",
		Help: "Searches executed, by mode and sort.",
	}, []string{"mode", "sort"})

	searchResults = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "discovery_search_results",
		Help:    "Number of products matched per search.",
		Buckets: []float64{0, 1, 5, 10, 50, 100, 500, 1000, 5000},
	}, []string{"mode"})

	enrichmentDrops = promauto.NewCounter(prometheus.CounterOpts{
		Name: "discovery_enrichment_dropped_total",
		Help: "Products matched but missing by the time they were enriched.",
	})

	cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "discovery_cache_lookups_total",
		Help: "Result cache lookups, by outcome.",
	}, []string{"result"})
)
