// Package batch drives the one-shot rename pipeline: discover files, resolve
// each against the catalog, plan destination names, confirm, and relocate.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"

	"retitle/internal/cache"
	"retitle/internal/config"
	"retitle/internal/discover"
	"retitle/internal/episode"
	"retitle/internal/logging"
	"retitle/internal/naming"
	"retitle/internal/preflight"
	"retitle/internal/prompt"
	"retitle/internal/rename"
	"retitle/internal/resolve"
	"retitle/internal/services"
	"retitle/internal/session"
)

// ErrNoValidFiles reports that the argument paths produced no parseable
// media files. The CLI maps it to its own exit code.
var ErrNoValidFiles = errors.New("no valid files found")

// Summary counts what happened to the files of one run. Renamed covers every
// file whose on-disk location changed, including moves of already correctly
// named files; in a dry run it counts what would have changed.
type Summary struct {
	Found          int
	Invalid        int
	Renamed        int
	AlreadyCorrect int
	Skipped        int
	Failed         int
}

// Pipeline bundles the components a Runner drives. All of them are required.
type Pipeline struct {
	Finder    *discover.Finder
	Parser    *episode.Parser
	Machine   *resolve.Machine
	Planner   *rename.Planner
	Relocator *rename.Relocator
	Formatter *naming.Formatter
	Console   *prompt.Console
	Store     *cache.Store
}

// Runner processes one batch of paths sequentially in sorted order.
type Runner struct {
	cfg      *config.Config
	settings *session.Settings
	pipe     Pipeline
	logger   *slog.Logger
	out      io.Writer
	progress bool
}

// Option customizes a Runner.
type Option func(*Runner)

// WithOutput redirects the user-facing lines (old/new names, dry-run notes)
// that default to stdout.
func WithOutput(w io.Writer) Option {
	return func(r *Runner) { r.out = w }
}

// WithProgress draws a progress bar on stderr as files complete.
func WithProgress() Option {
	return func(r *Runner) { r.progress = true }
}

// NewRunner wires a batch runner. The settings pointer is shared with the
// machine and prompts so an interactive "always" answer applies to the rest
// of the run.
func NewRunner(cfg *config.Config, settings *session.Settings, pipe Pipeline, logger *slog.Logger, opts ...Option) *Runner {
	if logger == nil {
		logger = logging.NewNop()
	}
	runner := &Runner{
		cfg:      cfg,
		settings: settings,
		pipe:     pipe,
		logger:   logging.NewComponentLogger(logger, "batch"),
		out:      os.Stdout,
	}
	for _, opt := range opts {
		opt(runner)
	}
	return runner
}

// Run expands paths, resolves and renames every valid file, and reports the
// counts. The error is nil even when individual files were skipped or failed;
// it is set for preflight and configuration problems, infrastructure faults,
// user aborts, and the exit skip behaviour.
func (r *Runner) Run(ctx context.Context, paths []string) (Summary, error) {
	var summary Summary

	for _, check := range preflight.RunAll(r.cfg) {
		if !check.Passed {
			detail := fmt.Sprintf("%s: %s", check.Name, check.Detail)
			return summary, services.Wrap(services.ErrConfiguration, "batch", "preflight", detail, nil)
		}
		r.logger.Debug("preflight check passed",
			logging.String("check", check.Name),
			logging.String("detail", check.Detail))
	}

	mode, err := rename.ParseMode(r.cfg.Move.Mode)
	if err != nil {
		return summary, err
	}

	ctx = services.WithRunID(ctx, uuid.NewString())
	logger := logging.WithContext(ctx, r.logger)

	files := r.pipe.Finder.Find(paths)
	summary.Found = len(files)

	episodes := make([]*episode.Parsed, 0, len(files))
	for _, file := range files {
		parsed, parseErr := r.pipe.Parser.Parse(file)
		if parseErr != nil {
			logger.Warn("invalid filename", logging.String(logging.FieldFile, file), logging.Error(parseErr))
			summary.Invalid++
			continue
		}
		if parsed.SeriesName == "" && r.settings.ForceName == "" && r.settings.SeriesID == 0 {
			logger.Warn("no series name in filename and no hint to resolve with",
				logging.String(logging.FieldFile, file))
			summary.Skipped++
			continue
		}
		episodes = append(episodes, parsed)
	}
	if len(episodes) == 0 {
		return summary, ErrNoValidFiles
	}

	episode.Sort(episodes)
	logger.Info("batch started",
		logging.Int("files", len(episodes)),
		logging.Bool("dry_run", r.settings.DryRun))

	var bar *progressbar.ProgressBar
	if r.progress {
		bar = progressbar.NewOptions(len(episodes),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription("processing"),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}

	for _, parsed := range episodes {
		if ctx.Err() != nil {
			return summary, services.ErrUserAbort
		}
		err := r.processFile(ctx, parsed, mode, &summary)
		if bar != nil {
			_ = bar.Add(1)
		}
		if err != nil {
			return summary, err
		}
	}
	if bar != nil {
		_ = bar.Finish()
	}

	logger.Info("batch finished",
		logging.Int("renamed", summary.Renamed),
		logging.Int("already_correct", summary.AlreadyCorrect),
		logging.Int("skipped", summary.Skipped),
		logging.Int("failed", summary.Failed),
		logging.Int("invalid", summary.Invalid))
	return summary, nil
}

// processFile runs one file through resolution, planning, confirmation, and
// relocation. A nil return means the batch continues, whether the file was
// renamed, skipped, or tolerably failed.
func (r *Runner) processFile(ctx context.Context, parsed *episode.Parsed, mode rename.Mode, summary *Summary) error {
	ctx = services.WithSourceFile(ctx, parsed.SourcePath)
	logger := logging.WithContext(ctx, r.logger)

	result, err := r.pipe.Machine.Run(ctx, *parsed)
	if err != nil {
		return err
	}
	switch result.Outcome {
	case resolve.OutcomeAborted:
		if result.Reason != nil {
			return result.Reason
		}
		return services.ErrUserAbort
	case resolve.OutcomeSkipped:
		summary.Skipped++
		return nil
	}
	resolved := result.Episode

	if r.cfg.Move.Only {
		moved, err := r.moveToDestination(ctx, logger, resolved, parsed.SourcePath, mode, true, summary)
		if err != nil {
			return err
		}
		if moved {
			summary.Renamed++
		}
		return nil
	}

	plan, err := r.pipe.Planner.Plan(ctx, resolved)
	if err != nil {
		return err
	}

	if plan.Changed {
		if len(r.cfg.Rename.OutputReplacements) > 0 {
			fmt.Fprintf(r.out, "Before custom output replacements: %s\n", r.pipe.Formatter.BeforeReplacements(*resolved))
		}
		fmt.Fprintf(r.out, "Old filename: %s\n", parsed.SourceName)
		fmt.Fprintf(r.out, "New filename: %s\n", plan.Destination)

		proceed, err := r.confirmProceed(ctx, r.pipe.Console.ConfirmRename)
		if err != nil {
			return err
		}
		if !proceed {
			logger.Info("rename declined")
			summary.Skipped++
			return nil
		}
	} else {
		fmt.Fprintf(r.out, "Existing filename is correct: %s\n", parsed.SourceName)
	}

	finalPath := parsed.SourcePath
	if plan.Changed {
		if r.settings.DryRun {
			fmt.Fprintln(r.out, "Dry run: not renaming.")
		} else {
			finalPath, err = r.pipe.Relocator.Relocate(ctx, rename.Request{
				Source:          parsed.SourcePath,
				Mode:            mode,
				DestinationPath: plan.Destination,
				Overwrite:       r.cfg.Move.Overwrite,
				LeaveSymlink:    r.cfg.Move.LeaveSymlink,
			})
			if err != nil {
				return r.operationFailure(logger, err, summary)
			}
		}
	}

	if !r.cfg.Move.Enabled {
		if plan.Changed {
			summary.Renamed++
		} else {
			summary.AlreadyCorrect++
		}
		return nil
	}

	// A confirmed rename covers the move that follows it; a move of an
	// already correctly named file gets its own prompt.
	moved, err := r.moveToDestination(ctx, logger, resolved, finalPath, mode, !plan.Changed, summary)
	if err != nil {
		return err
	}
	if moved {
		summary.Renamed++
	}
	return nil
}

// moveToDestination relocates source into the library tree under the
// directory rendered for this episode. It reports whether the file moved;
// declines and tolerated failures return false with a nil error.
func (r *Runner) moveToDestination(ctx context.Context, logger *slog.Logger, resolved *episode.Resolved, source string, mode rename.Mode, confirm bool, summary *Summary) (bool, error) {
	destDir := filepath.Join(r.cfg.Move.Destination, r.pipe.Formatter.MoveDirectory(*resolved))
	fmt.Fprintf(r.out, "New path: %s\n", destDir)

	if confirm {
		proceed, err := r.confirmProceed(ctx, r.pipe.Console.ConfirmMove)
		if err != nil {
			return false, err
		}
		if !proceed {
			logger.Info("move declined")
			summary.Skipped++
			return false, nil
		}
	}

	if r.settings.DryRun {
		fmt.Fprintln(r.out, "Dry run: not moving.")
		return true, nil
	}

	_, err := r.pipe.Relocator.Relocate(ctx, rename.Request{
		Source:         source,
		Mode:           mode,
		DestinationDir: destDir,
		Overwrite:      r.cfg.Move.Overwrite,
		LeaveSymlink:   r.cfg.Move.LeaveSymlink,
	})
	if err != nil {
		return false, r.operationFailure(logger, err, summary)
	}
	return true, nil
}

// confirmProceed applies the always-rename shortcut, asks otherwise, and
// folds an "always" reply back into the shared settings.
func (r *Runner) confirmProceed(ctx context.Context, ask func(context.Context) (prompt.Answer, error)) (bool, error) {
	if r.settings.AlwaysRename {
		return true, nil
	}
	answer, err := ask(ctx)
	if err != nil {
		return false, services.ErrUserAbort
	}
	switch answer {
	case prompt.AnswerAlways:
		r.settings.AlwaysRename = true
		return true, nil
	case prompt.AnswerYes:
		return true, nil
	case prompt.AnswerQuit:
		return false, services.ErrUserAbort
	default:
		return false, nil
	}
}

// operationFailure applies the skip policy to a failed file operation: the
// exit behaviour stops the batch, anything else records the failure and the
// batch moves on.
func (r *Runner) operationFailure(logger *slog.Logger, err error, summary *Summary) error {
	if services.IsFatal(err) {
		return err
	}
	if r.settings.SkipBehaviour == session.SkipExit {
		logger.Warn("stopping batch after failed file operation", logging.Error(err))
		return err
	}
	logger.Warn("skipping file after failed file operation", logging.Error(err))
	summary.Failed++
	return nil
}
