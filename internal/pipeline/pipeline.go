package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pfrederiksen/topdog/internal/contest"
	"github.com/pfrederiksen/topdog/internal/crawler"
	"github.com/pfrederiksen/topdog/internal/entry"
	"github.com/pfrederiksen/topdog/internal/leaderboard"
	"github.com/pfrederiksen/topdog/internal/logger"
	"github.com/pfrederiksen/topdog/internal/reconcile"
	"github.com/pfrederiksen/topdog/internal/storage"
)

// DefaultInterval is the time between cycle starts
const DefaultInterval = 60 * time.Second

// Crawler is the part of the crawler a cycle needs
type Crawler interface {
	Crawl(ctx context.Context, contests []contest.Contest) (*crawler.Result, error)
}

// Store is the snapshot persistence a cycle needs
type Store interface {
	LoadEntrants() ([]*entry.Entrant, error)
	Publish(snap *storage.Snapshot) error
}

// Options configures a Pipeline
type Options struct {
	// Registry returns the registry to use for the next cycle
	Registry func() *contest.Registry
	// Reconcile enables the bonus-day merge
	Reconcile bool
	// LeaderboardSize is the global leaderboard length, default leaderboard.GlobalSize
	LeaderboardSize int
}

// Pipeline runs crawl → reconcile → rank → persist cycles
type Pipeline struct {
	crawler Crawler
	store   Store
	opts    Options
	metrics *logger.Metrics
}

// New creates a Pipeline
func New(c Crawler, store Store, opts Options) *Pipeline {
	if opts.LeaderboardSize <= 0 {
		opts.LeaderboardSize = leaderboard.GlobalSize
	}
	return &Pipeline{
		crawler: c,
		store:   store,
		opts:    opts,
		metrics: logger.DefaultMetrics(),
	}
}

// CycleError reports a cycle that was aborted before publishing
type CycleError struct {
	CycleID string
	Stage   string
	Err     error
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("cycle %s: %s: %v", e.CycleID, e.Stage, e.Err)
}

func (e *CycleError) Unwrap() error { return e.Err }

// CycleResult summarises a published cycle
type CycleResult struct {
	CycleID     string
	Entrants    int
	Contests    int
	Reconcile   reconcile.Report
	Leaderboard []*entry.Entrant
	Goals       []*entry.ContestGoal
}

// RunCycle runs one full cycle
func (p *Pipeline) RunCycle(ctx context.Context) (*CycleResult, error) {
	id := uuid.NewString()
	start := time.Now()
	defer func() {
		p.metrics.RecordTiming("cycle.duration", time.Since(start))
	}()

	registry := p.opts.Registry()
	if registry == nil {
		return nil, &CycleError{CycleID: id, Stage: "registry", Err: errors.New("no registry loaded")}
	}
	contests := registry.Contests()

	logger.Info("Starting cycle", logger.Fields{"cycle_id": id, "contests": len(contests)})

	res, err := p.crawler.Crawl(ctx, contests)
	if err != nil {
		return nil, &CycleError{CycleID: id, Stage: "crawl", Err: err}
	}

	result := &CycleResult{
		CycleID:  id,
		Entrants: len(res.Entrants),
		Contests: len(res.Goals),
	}

	if p.opts.Reconcile {
		result.Reconcile = p.reconcile(id, res.Goals, registry)
	}

	ranked := leaderboard.Rank(res.Entrants)
	snap := &storage.Snapshot{
		Ranked:      ranked,
		Leaderboard: leaderboard.Top(ranked, p.opts.LeaderboardSize),
		Goals:       res.Goals,
	}
	if err := p.store.Publish(snap); err != nil {
		return nil, &CycleError{CycleID: id, Stage: "publish", Err: err}
	}
	result.Leaderboard = snap.Leaderboard
	result.Goals = snap.Goals

	p.metrics.SetGauge("entrants.ranked", float64(len(ranked)))
	logger.Info("Published snapshot", logger.Fields{
		"cycle_id":    id,
		"entrants":    result.Entrants,
		"contests":    result.Contests,
		"leaderboard": len(snap.Leaderboard),
	})

	return result, nil
}

// reconcile merges the previous snapshot's bonus-day contributions into goals.
// A missing or unreadable previous snapshot leaves goals at their baselines.
func (p *Pipeline) reconcile(id string, goals []*entry.ContestGoal, registry *contest.Registry) reconcile.Report {
	previous, err := p.store.LoadEntrants()
	if err != nil {
		if errors.Is(err, storage.ErrNoSnapshot) {
			logger.Warn("No previous snapshot to reconcile", logger.Fields{"cycle_id": id})
		} else {
			logger.Error("Unable to read top dogs file", logger.Fields{"cycle_id": id}, err)
		}
		return reconcile.Report{}
	}

	report := reconcile.Apply(goals, previous, registry)
	p.metrics.AddCounter("reconcile.matched", int64(report.Matched))
	p.metrics.AddCounter("reconcile.unmatched", int64(report.Unmatched+report.Missing))

	logger.Info("Reconciled bonus day amounts", logger.Fields{
		"cycle_id":  id,
		"matched":   report.Matched,
		"blank":     report.Blank,
		"unmatched": report.Unmatched,
		"missing":   report.Missing,
		"amount":    report.Amount,
	})
	return report
}

// Run runs a cycle immediately and then one per interval until ctx is done.
// Failed cycles are logged and do not stop the loop.
func (p *Pipeline) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		p.tick(ctx)

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (p *Pipeline) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	if _, err := p.RunCycle(ctx); err != nil {
		p.metrics.IncrCounter("cycles.failed")
		fields := logger.Fields{}
		var cycleErr *CycleError
		if errors.As(err, &cycleErr) {
			fields["cycle_id"] = cycleErr.CycleID
			fields["stage"] = cycleErr.Stage
		}
		logger.Error("Cycle aborted, keeping previous snapshot", fields, err)
	} else {
		p.metrics.IncrCounter("cycles.completed")
	}

	logger.Debug("Metrics", logger.Fields{"metrics": p.metrics.GetSnapshot()})
}
