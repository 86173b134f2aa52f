// Command lsmkv is a manual-exercise front-end for the embedded LSM store in
// internal/storage. Each invocation opens a tree rooted at --data, performs
// one operation, and exits - there is no daemon and no network surface, so
// the "caller serializes all access" contract the engine assumes holds
// trivially.
package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/deepstore/lsmkv/internal/metrics"
	"github.com/deepstore/lsmkv/internal/storage"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openTree wires a zap logger and a Prometheus-backed metrics sink into the
// tree, the way cmd/sentinel-server wired its own engine in the teacher repo.
func openTree(dataDir string) (*storage.LSMTree, *metrics.Collector, *zap.Logger, error) {
	logger, err := zap.NewProduction()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("lsmkv: build logger: %w", err)
	}

	collector := metrics.NewCollector()
	tree, err := storage.Open(dataDir,
		storage.WithLogger(logger.Sugar()),
		storage.WithMetrics(collector),
	)
	if err != nil {
		logger.Sync()
		return nil, nil, nil, err
	}
	return tree, collector, logger, nil
}
