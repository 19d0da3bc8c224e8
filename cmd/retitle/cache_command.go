package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"retitle/internal/cache"
	"retitle/internal/config"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the rename decision cache",
	}

	cacheCmd.AddCommand(newCacheListCommand(ctx))
	cacheCmd.AddCommand(newCacheForgetCommand(ctx))
	cacheCmd.AddCommand(newCachePathCommand(ctx))

	return cacheCmd
}

func newCacheListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show remembered rename decisions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := cache.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			records, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "Cache is empty")
				return nil
			}

			const stampLayout = "2006-01-02 15:04"
			rows := make([][]string, 0, len(records))
			for _, record := range records {
				seriesID := ""
				if record.SeriesID > 0 {
					seriesID = strconv.FormatInt(record.SeriesID, 10)
				}
				rows = append(rows, []string{
					record.SourcePath,
					seriesID,
					record.Season,
					record.Episode,
					record.Destination,
					record.UpdatedAt.Local().Format(stampLayout),
				})
			}
			headers := []string{"Source", "Series ID", "Season", "Episode", "Destination", "Updated"}
			aligns := []columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignLeft, alignLeft}
			fmt.Fprintln(out, renderTable(out, headers, rows, aligns))
			return nil
		},
	}
}

func newCacheForgetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "forget <source-path>...",
		Short: "Drop remembered decisions for the given source paths",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			lock, err := cache.AcquireLock(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = lock.Release() }()

			store, err := cache.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			for _, arg := range args {
				path, err := config.ExpandPath(arg)
				if err != nil {
					return err
				}
				removed, err := store.Forget(cmd.Context(), path)
				if err != nil {
					return err
				}
				if removed {
					fmt.Fprintf(out, "Forgot %s\n", path)
				} else {
					fmt.Fprintf(out, "No decision recorded for %s\n", path)
				}
			}
			return nil
		},
	}
}

func newCachePathCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the decision cache database path",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cfg.Paths.CachePath)
			return nil
		},
	}
}
