// Package entry provides the records produced by one crawl cycle.
//
// An Entrant is one dog's scraped state on its detail page; a ContestGoal is
// one contest's aggregate totals plus the bonus-day amount merged in by the
// reconciler. Both carry a flattened CSV projection alongside their JSON form.
package entry
