// Package crawler drives the scraper across every contest in a cycle.
//
// For each contest it enumerates the top entrants from the leaderboard and
// fetches their entry pages, and it collects the contest's fundraising totals.
// Contests are crawled concurrently, and so are the entry pages within a
// contest; results are always reassembled in registry and leaderboard order.
//
// Failure policy differs by level: a single entry page that fails is skipped,
// while a leaderboard or aggregate page that fails aborts the whole crawl so
// that a cycle never publishes a snapshot with a contest missing.
package crawler
