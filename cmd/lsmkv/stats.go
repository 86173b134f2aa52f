package main

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

func newStatsCmd() *cobra.Command {
	var serve string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print (or serve, as Prometheus text) current level sizes",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := dataDir(cmd)
			if err != nil {
				return err
			}

			tree, collector, logger, err := openTree(dir)
			if err != nil {
				return err
			}
			defer logger.Sync()
			defer tree.Close()

			sizes := tree.LevelSizes()
			for level, size := range sizes {
				collector.SetLevelSize(level, size)
			}

			if serve == "" {
				fmt.Printf("memtable: %d entries\n", tree.MemtableSize())
				for level, size := range sizes {
					fmt.Printf("level %d: %d entries\n", level, size)
				}
				return nil
			}

			mux := promhttp.HandlerFor(collector.Registry, promhttp.HandlerOpts{})
			fmt.Printf("serving Prometheus metrics on %s\n", serve)
			return serveMetrics(serve, mux)
		},
	}
	cmd.Flags().StringVar(&serve, "serve", "", "serve Prometheus text on this address instead of printing once")
	return cmd
}
