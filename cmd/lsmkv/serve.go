package main

import "net/http"

// serveMetrics blocks serving handler on addr. Split out of stats.go so the
// RunE closure in newStatsCmd stays a plain cobra command body.
func serveMetrics(addr string, handler http.Handler) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	return http.ListenAndServe(addr, mux)
}
