package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lsmkv",
		Short: "A small embedded LSM-tree key-value store, driven from the command line",
	}
	cmd.PersistentFlags().String("data", "./data", "Data directory the tree is rooted at")

	cmd.AddCommand(newPutCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newCompactCmd())
	cmd.AddCommand(newStatsCmd())
	return cmd
}

func dataDir(cmd *cobra.Command) (string, error) {
	return cmd.Flags().GetString("data")
}
