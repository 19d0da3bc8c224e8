// Package rename decides destination filenames and performs the file
// operations that realize them.
package rename

import (
	"context"
	"log/slog"

	"retitle/internal/cache"
	"retitle/internal/episode"
	"retitle/internal/logging"
	"retitle/internal/naming"
	"retitle/internal/services"
)

// Plan is the rename decision for one resolved episode. Destination is a
// filename within the source's directory; relocation into a library tree is
// a separate step.
type Plan struct {
	Source      string
	Destination string
	Changed     bool
}

// Planner renders destination filenames, resolves collisions against names
// already claimed in the decision cache, and records the claim.
type Planner struct {
	formatter *naming.Formatter
	store     *cache.Store
	logger    *slog.Logger
}

// NewPlanner wires a planner over the shared formatter and decision cache.
func NewPlanner(formatter *naming.Formatter, store *cache.Store, logger *slog.Logger) *Planner {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Planner{
		formatter: formatter,
		store:     store,
		logger:    logging.NewComponentLogger(logger, "rename"),
	}
}

// Plan computes the destination name for one episode and claims it in the
// cache. The already-correct check runs before collision probing so a file
// can never collide with its own remembered claim from an earlier run.
func (p *Planner) Plan(ctx context.Context, resolved *episode.Resolved) (Plan, error) {
	name := p.formatter.Format(*resolved)

	if name == resolved.SourceName {
		p.logger.Info("existing filename is correct", "file", resolved.SourceName)
		if err := p.claim(ctx, resolved.SourcePath, name); err != nil {
			return Plan{}, err
		}
		return Plan{Source: resolved.SourcePath, Destination: name, Changed: false}, nil
	}

	name, err := p.freeName(ctx, resolved.SourcePath, name)
	if err != nil {
		return Plan{}, err
	}
	if err := p.claim(ctx, resolved.SourcePath, name); err != nil {
		return Plan{}, err
	}

	p.logger.Debug("new filename", "file", resolved.SourceName, "destination", name)
	return Plan{Source: resolved.SourcePath, Destination: name, Changed: true}, nil
}

// freeName returns the first destination name not claimed by another source:
// the wanted name itself, then variant suffixes counted up from 2.
func (p *Planner) freeName(ctx context.Context, sourcePath, wanted string) (string, error) {
	name := wanted
	for n := 2; ; n++ {
		claimed, err := p.store.FindByDestination(ctx, name)
		if err != nil {
			return "", services.Wrap(services.ErrTransient, "rename", "collision check", name, err)
		}
		if claimed == nil || claimed.SourcePath == sourcePath {
			if name != wanted {
				p.logger.Info("destination already claimed, using variant",
					"wanted", wanted,
					"destination", name)
			}
			return name, nil
		}
		name = naming.WithVariant(wanted, n)
	}
}

func (p *Planner) claim(ctx context.Context, sourcePath, name string) error {
	if err := p.store.Upsert(ctx, sourcePath, cache.Fields{Destination: &name}); err != nil {
		return services.Wrap(services.ErrTransient, "rename", "record destination", name, err)
	}
	return nil
}
