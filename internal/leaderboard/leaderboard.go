// Package leaderboard ranks entrants by votes.
package leaderboard

import (
	"sort"

	"github.com/pfrederiksen/topdog/internal/entry"
)

// GlobalSize is how many top entrants make up the global leaderboard
const GlobalSize = 16

// Rank returns a copy of entrants sorted by votes, highest first.
// The sort is stable: entrants with equal votes keep their input order.
func Rank(entrants []*entry.Entrant) []*entry.Entrant {
	ranked := make([]*entry.Entrant, len(entrants))
	copy(ranked, entrants)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Votes > ranked[j].Votes
	})
	return ranked
}

// Top returns the first min(k, len(ranked)) entrants
func Top(ranked []*entry.Entrant, k int) []*entry.Entrant {
	if k < 0 {
		k = 0
	}
	if len(ranked) < k {
		k = len(ranked)
	}
	return ranked[:k]
}
