package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	searchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paperdesk_searches_total",
		Help: "Executed searches by scope.",
	}, []string{"scope"})

	searchErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "paperdesk_search_errors_total",
		Help: "Searches that failed outright (not per-kind query syntax skips).",
	})

	relationRebuildsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "paperdesk_relation_rebuilds_total",
		Help: "Per-memo relation rebuilds, including automatic ones.",
	})
)
