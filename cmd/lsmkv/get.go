package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Retrieve a value by key",
		Args:  cobra.ExactArgs(1),
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

			value, ok := tree.Get([]byte(args[0]))
			if !ok {
				fmt.Println("(not found)")
				return nil
			}
			fmt.Println(string(value))
			return nil
		},
	}
}
