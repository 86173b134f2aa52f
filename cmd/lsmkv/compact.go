package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newCompactCmd() *cobra.Command {
	var force string

	cmd := &cobra.Command{
		Use:   "compact",
		Short: "Run a compaction sweep, or force-merge a single level",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := dataDir(cmd)
			if err != nil {
				return err
			}

			tree, _, logger, err := openTree(dir)
			if err != nil {
				return err
			}
			defer logger.Sync()
			defer tree.Close()

			if force == "" {
				if err := tree.Compact(); err != nil {
					return fmt.Errorf("compact: %w", err)
				}
				fmt.Println("OK")
				return nil
			}

			level, err := strconv.Atoi(force)
			if err != nil {
				return fmt.Errorf("compact: invalid --force level %q: %w", force, err)
			}
			if err := tree.ForceCompaction(level); err != nil {
				return fmt.Errorf("force-compaction level %d: %w", level, err)
			}
			fmt.Println("OK")
			return nil
		},
	}
	cmd.Flags().StringVar(&force, "force", "", "force-merge this level into the next, bypassing the size threshold")
	return cmd
}
