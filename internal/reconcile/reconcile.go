// Package reconcile merges bonus-day contributions into a cycle's contest goals.
//
// The contributions come from the entrant snapshot written by the previous
// cycle: every entrant whose category names a contest adds its raised amount
// to that contest's bonus-day total. Reconciliation is best effort; misses are
// logged and counted, never returned as errors.
package reconcile

import (
	"github.com/pfrederiksen/topdog/internal/contest"
	"github.com/pfrederiksen/topdog/internal/entry"
	"github.com/pfrederiksen/topdog/internal/logger"
)

// Resolver maps an entrant category to a contest
type Resolver interface {
	Resolve(category string) (contest.Contest, bool)
}

// Report counts what happened to each previous entrant
type Report struct {
	Matched   int // added to a goal
	Blank     int // no category
	Unmatched int // category matched no rule
	Missing   int // rule matched a contest not crawled this cycle
	Amount    int // total added across all goals
}

// Apply adds the raised amount of each categorized entrant in previous to the
// goal of the contest its category resolves to. goals are modified in place.
func Apply(goals []*entry.ContestGoal, previous []*entry.Entrant, resolver Resolver) Report {
	var report Report

	for _, e := range previous {
		if e == nil {
			continue
		}
		if e.Category == "" {
			report.Blank++
			logger.Debug("Dog has no category, nothing to add", logger.Fields{"dog": e.Dog})
			continue
		}

		c, ok := resolver.Resolve(e.Category)
		if !ok {
			report.Unmatched++
			logger.Warn("Unable to match dog with contest", logger.Fields{
				"dog":      e.Dog,
				"category": e.Category,
			})
			continue
		}

		goal := entry.FindGoal(goals, c)
		if goal == nil {
			report.Missing++
			logger.Warn("Unable to find contest for dog", logger.Fields{
				"dog":      e.Dog,
				"category": e.Category,
				"contest":  c.Page,
			})
			continue
		}

		goal.AddBonus(e.Raised)
		report.Matched++
		report.Amount += e.Raised
		logger.Debug("Added bonus day amount to contest", logger.Fields{
			"amount":  e.Raised,
			"contest": c.Page,
		})
	}

	return report
}
