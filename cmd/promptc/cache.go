package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/l2laihub/portrait-prompt-engine/internal/cache"
)

func newCacheCmd(root *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage a compilation cache snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newCacheStatsCmd(root))
	cmd.AddCommand(newCacheInvalidateCmd(root))

	return cmd
}

func newCacheStatsCmd(root *rootFlags) *cobra.Command {
	var snapshotPath string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print entry count and size for a cache snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			store := cache.New(cache.Options{Logger: root.log})
			if err := store.Load(snapshotPath); err != nil {
				return err
			}

			stats := store.GetStats()
			fmt.Fprintf(cmd.OutOrStdout(), "entries: %d\nbytes:   %d\n", stats.Entries, stats.Bytes)
			return nil
		},
	}

	cmd.Flags().StringVar(&snapshotPath, "snapshot", "", "Path to a cache snapshot file")
	cmd.MarkFlagRequired("snapshot") //nolint:errcheck

	return cmd
}

func newCacheInvalidateCmd(root *rootFlags) *cobra.Command {
	var snapshotPath string
	var pattern string

	cmd := &cobra.Command{
		Use:   "invalidate",
		Short: "Remove matching entries from a cache snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			store := cache.New(cache.Options{Logger: root.log})
			if err := store.Load(snapshotPath); err != nil {
				return err
			}

			removed := store.Invalidate(pattern)
			if err := store.Save(snapshotPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d entries\n", removed)
			return nil
		},
	}

	cmd.Flags().StringVar(&snapshotPath, "snapshot", "", "Path to a cache snapshot file")
	cmd.MarkFlagRequired("snapshot") //nolint:errcheck
	cmd.Flags().StringVar(&pattern, "pattern", "", "Substring or regex to match keys (empty clears all)")

	return cmd
}
