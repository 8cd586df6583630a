// Package pipeline runs crawl cycles on a fixed interval.
//
// A cycle crawls every registered contest, merges bonus-day contributions
// from the previous snapshot, ranks the entrants and publishes a new snapshot.
// A cycle that fails before publishing leaves the previous snapshot in place;
// the scheduler logs the failure and waits for the next tick. Cycles never
// overlap: ticks that fall due while a cycle is still running are dropped.
package pipeline
