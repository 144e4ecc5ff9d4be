package updater

import (
	"context"
	"sync"
	"sync/atomic"

	"modsync/config"

	"go.uber.org/zap"
)

// defaultConcurrency bounds parallel downloads so a large folder does
// not hammer the API rate limit.
const defaultConcurrency = 4

// Options controls a pipeline run.
type Options struct {
	Apply       bool // carry out update-available decisions
	Backup      bool
	Concurrency int
}

// Summary aggregates one run's per-file outcomes.
type Summary struct {
	Decisions []Decision
	Applied   []*Applied // indexed like Decisions; nil where nothing was applied

	Updated   int64
	Available int // update-available decisions left unapplied
	UpToDate  int
	Unknown   int
	Failed    int64
}

// Updater runs the scan -> resolve -> apply pipeline for one profile.
type Updater struct {
	resolver   *Resolver
	downloader Downloader
	log        *zap.SugaredLogger
}

func New(registry Registry, dl Downloader, log *zap.SugaredLogger) *Updater {
	return &Updater{
		resolver:   NewResolver(registry, log),
		downloader: dl,
		log:        log,
	}
}

// Run resolves every mod file in the profile's folder and, when
// opts.Apply is set, replaces the outdated ones. Per-file failures are
// recorded in the summary; only folder or bulk-lookup failures abort.
func (u *Updater) Run(ctx context.Context, profile config.Profile, opts Options) (*Summary, error) {
	decisions, err := u.resolver.Resolve(ctx, profile)
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		Decisions: decisions,
		Applied:   make([]*Applied, len(decisions)),
	}

	if opts.Apply {
		u.applyAll(ctx, profile, summary, opts)
	}

	for i := range summary.Decisions {
		switch summary.Decisions[i].Status {
		case StatusUpToDate:
			summary.UpToDate++
		case StatusUpdateAvailable:
			// Applied decisions keep their resolution status; only the
			// ones nothing replaced are still pending.
			if summary.Applied[i] == nil {
				summary.Available++
			}
		case StatusUnknown:
			summary.Unknown++
		case StatusFailed:
			summary.Failed++
		}
	}
	return summary, nil
}

// applyAll downloads and swaps outdated files with a bounded number of
// workers. Each worker owns its own decision slot, so no locking is
// needed; cancellation stops launching new work while in-flight swaps
// run to completion.
func (u *Updater) applyAll(ctx context.Context, profile config.Profile, summary *Summary, opts Options) {
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	applyOpts := ApplyOptions{Backup: opts.Backup}

	var updatedCount atomic.Int64
	var wg sync.WaitGroup
	sem := make(chan struct{}, concurrency)

	for i := range summary.Decisions {
		if summary.Decisions[i].Status != StatusUpdateAvailable {
			continue
		}
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(d *Decision, slot **Applied) {
			defer wg.Done()
			defer func() { <-sem }()

			fileLogger := u.log.With(
				zap.String("file", d.File.Name()),
				zap.String("profile", profile.Name),
			)

			applied, err := Apply(ctx, u.downloader, *d, applyOpts, fileLogger)
			if err != nil {
				fileLogger.Errorw("Failed to apply update", zap.Error(err))
				d.Status = StatusFailed
				d.Err = err
				return
			}
			*slot = applied
			updatedCount.Add(1)
		}(&summary.Decisions[i], &summary.Applied[i])
	}

	wg.Wait()
	summary.Updated = updatedCount.Load()
}
