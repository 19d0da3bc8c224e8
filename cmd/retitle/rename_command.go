package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"retitle/internal/batch"
	"retitle/internal/cache"
	"retitle/internal/discover"
	"retitle/internal/episode"
	"retitle/internal/naming"
	"retitle/internal/prompt"
	"retitle/internal/rename"
	"retitle/internal/resolve"
	"retitle/internal/services/tvdb"
	"retitle/internal/session"
)

func newRenameCommand(ctx *commandContext) *cobra.Command {
	var (
		always        bool
		batchMode     bool
		selectFirst   bool
		recursive     bool
		dryRun        bool
		forceName     string
		seriesID      int64
		order         string
		lang          string
		skipBehaviour string
		mode          string
		move          bool
		overwrite     bool
		leaveSymlink  bool
		noRemember    bool
		progress      bool
	)

	cmd := &cobra.Command{
		Use:   "rename [flags] <path>...",
		Short: "Rename episode files using catalog metadata",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			// Flags overlay the loaded config; revalidation catches bad
			// enum values from either source.
			flags := cmd.Flags()
			if flags.Changed("recursive") {
				cfg.Scan.Recursive = recursive
			}
			if flags.Changed("order") {
				cfg.Resolve.Order = order
			}
			if flags.Changed("lang") {
				cfg.Catalog.Language = lang
			}
			if flags.Changed("skip-behaviour") {
				cfg.Resolve.SkipBehaviour = skipBehaviour
			}
			if flags.Changed("mode") {
				cfg.Move.Mode = mode
			}
			if flags.Changed("move") {
				cfg.Move.Enabled = move
			}
			if flags.Changed("overwrite") {
				cfg.Move.Overwrite = overwrite
			}
			if flags.Changed("leave-symlink") {
				cfg.Move.LeaveSymlink = leaveSymlink
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			settings := session.FromConfig(cfg)
			if batchMode {
				settings.AlwaysRename = true
				settings.SelectFirst = true
			}
			if always {
				settings.AlwaysRename = true
			}
			if selectFirst {
				settings.SelectFirst = true
			}
			settings.DryRun = dryRun
			if noRemember {
				settings.Remember = false
			}
			if flags.Changed("name") {
				settings.ForceName = forceName
			}
			if flags.Changed("series-id") {
				settings.SeriesID = seriesID
			}

			logger, err := ctx.ensureLogger()
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

			catalog, err := tvdb.New(cfg.Catalog, logger)
			if err != nil {
				return err
			}

			console := prompt.NewConsole(cmd.InOrStdin(), cmd.OutOrStdout())
			finder, err := discover.NewFinder(cfg, logger)
			if err != nil {
				return err
			}
			parser, err := episode.NewParser(cfg)
			if err != nil {
				return err
			}
			formatter, err := naming.NewFormatter(cfg)
			if err != nil {
				return err
			}

			resolver := resolve.NewResolver(catalog, console, settings, logger)
			pipe := batch.Pipeline{
				Finder:    finder,
				Parser:    parser,
				Machine:   resolve.NewMachine(resolver, store, console, settings, logger),
				Planner:   rename.NewPlanner(formatter, store, logger),
				Relocator: rename.NewRelocator(logger),
				Formatter: formatter,
				Console:   console,
				Store:     store,
			}

			opts := []batch.Option{batch.WithOutput(cmd.OutOrStdout())}
			if progress {
				opts = append(opts, batch.WithProgress())
			}
			runner := batch.NewRunner(cfg, settings, pipe, logger, opts...)

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			summary, err := runner.Run(runCtx, args)
			if err != nil {
				return err
			}
			printSummary(cmd.OutOrStdout(), summary, settings.DryRun)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.BoolVarP(&always, "always", "a", false, "Rename without prompting for confirmation")
	flags.BoolVarP(&batchMode, "batch", "b", false, "Non-interactive mode; implies --always and --select-first")
	flags.BoolVarP(&selectFirst, "select-first", "f", false, "Take the first series search result without asking")
	flags.BoolVarP(&recursive, "recursive", "r", false, "Descend into subdirectories")
	flags.BoolVar(&dryRun, "dry-run", false, "Show what would happen without touching any file")
	flags.StringVarP(&forceName, "name", "n", "", "Series name to use instead of the filename guess")
	flags.Int64Var(&seriesID, "series-id", 0, "Series id to use, skipping the name search")
	flags.StringVar(&order, "order", "", "Episode ordering: aired or dvd")
	flags.StringVarP(&lang, "lang", "l", "", "Preferred metadata language")
	flags.StringVar(&skipBehaviour, "skip-behaviour", "", "On per-file errors: exit, ask, or skip")
	flags.StringVar(&mode, "mode", "", "File operation: move, copy, or symlink")
	flags.BoolVar(&move, "move", false, "Move renamed files into the configured destination tree")
	flags.BoolVar(&overwrite, "overwrite", false, "Replace existing files at the destination")
	flags.BoolVar(&leaveSymlink, "leave-symlink", false, "Leave a symlink at the old location")
	flags.BoolVar(&noRemember, "no-remember", false, "Resolve without using remembered series ids")
	flags.BoolVar(&progress, "progress", false, "Show a progress bar while processing")

	return cmd
}
