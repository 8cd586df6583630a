package crawler

import (
	"context"
	"fmt"
	"time"

	"github.com/pfrederiksen/topdog/internal/contest"
	"github.com/pfrederiksen/topdog/internal/entry"
	"github.com/pfrederiksen/topdog/internal/logger"
	"github.com/pfrederiksen/topdog/internal/scraper"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds contest tasks and entry fetches per contest
const DefaultConcurrency = 4

// Pages is the part of the scraper the crawler needs
type Pages interface {
	EntryLinks(ctx context.Context, c contest.Contest) ([]string, error)
	Entrant(ctx context.Context, pageURL string, c contest.Contest) (*entry.Entrant, error)
	Totals(ctx context.Context, c contest.Contest) (scraper.Totals, error)
	EntryCount(ctx context.Context, c contest.Contest) (int, error)
	Now() time.Time
}

// Crawler crawls contests through Pages
type Crawler struct {
	pages       Pages
	concurrency int
	metrics     *logger.Metrics
}

// New creates a Crawler. concurrency <= 0 uses DefaultConcurrency.
func New(pages Pages, concurrency int) *Crawler {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Crawler{
		pages:       pages,
		concurrency: concurrency,
		metrics:     logger.DefaultMetrics(),
	}
}

// Result is the joined output of one crawl
type Result struct {
	// Entrants in registry order, then leaderboard order within a contest
	Entrants []*entry.Entrant
	// Goals in registry order, one per contest
	Goals []*entry.ContestGoal
}

// ContestError reports the contest whose leaderboard or totals could not be crawled
type ContestError struct {
	Contest contest.Contest
	Err     error
}

func (e *ContestError) Error() string {
	return fmt.Sprintf("crawling contest %s: %v", e.Contest.Page, e.Err)
}

func (e *ContestError) Unwrap() error { return e.Err }

// Crawl crawls every contest concurrently and returns once all of them have
// finished. The first contest-level failure cancels the rest and is returned.
func (cr *Crawler) Crawl(ctx context.Context, contests []contest.Contest) (*Result, error) {
	entrants := make([][]*entry.Entrant, len(contests))
	goals := make([]*entry.ContestGoal, len(contests))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cr.concurrency)

	for i, c := range contests {
		i, c := i, c
		g.Go(func() error {
			goal, err := cr.Aggregate(gctx, c)
			if err != nil {
				return &ContestError{Contest: c, Err: err}
			}
			list, err := cr.Entrants(gctx, c)
			if err != nil {
				return &ContestError{Contest: c, Err: err}
			}
			goals[i] = goal
			entrants[i] = list
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &Result{Goals: goals}
	for _, list := range entrants {
		result.Entrants = append(result.Entrants, list...)
	}
	return result, nil
}

// Entrants fetches the leaderboard of c and then up to c.ExpectedEntrants
// entry pages. Entry pages that fail are skipped; the returned list keeps
// leaderboard order.
func (cr *Crawler) Entrants(ctx context.Context, c contest.Contest) ([]*entry.Entrant, error) {
	links, err := cr.pages.EntryLinks(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("fetching leaderboard: %w", err)
	}
	if len(links) > c.ExpectedEntrants {
		links = links[:c.ExpectedEntrants]
	}

	slots := make([]*entry.Entrant, len(links))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cr.concurrency)
	for i, link := range links {
		i, link := i, link
		g.Go(func() error {
			e, err := cr.pages.Entrant(gctx, link, c)
			if err != nil {
				if gctx.Err() != nil {
					// the cycle is already failing elsewhere
					return nil
				}
				cr.metrics.IncrCounter("entrants.skipped")
				logger.Warn("Skipping entry page", logger.Fields{
					"contest":   c.Page,
					"entry_url": link,
					"error":     err.Error(),
				})
				return nil
			}
			logger.Debug("Crawled entry page", logger.Fields{"entry_url": link, "votes": e.Votes})
			slots[i] = e
			return nil
		})
	}
	// entry failures are absorbed above, so Wait only joins
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	list := make([]*entry.Entrant, 0, len(slots))
	for _, e := range slots {
		if e != nil {
			list = append(list, e)
		}
	}

	logger.Info("Crawled contest entries", logger.Fields{
		"contest": c.Page,
		"links":   len(links),
		"entries": len(list),
	})
	return list, nil
}

// Aggregate fetches the contest page and its search page and builds the
// contest's goal with the bonus-day amount at its baseline
func (cr *Crawler) Aggregate(ctx context.Context, c contest.Contest) (*entry.ContestGoal, error) {
	totals, err := cr.pages.Totals(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("fetching totals: %w", err)
	}
	count, err := cr.pages.EntryCount(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("fetching entry count: %w", err)
	}

	return entry.NewContestGoal(c, totals.Goal, totals.Raised, count, cr.pages.Now()), nil
}
