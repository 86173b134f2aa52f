package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "put <key> <value>",
		Short: "Store a key-value pair",
		Args:  cobra.ExactArgs(2),
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

			if err := tree.Put([]byte(args[0]), []byte(args[1])); err != nil {
				return fmt.Errorf("put %q: %w", args[0], err)
			}
			fmt.Printf("OK\n")
			return nil
		},
	}
}
