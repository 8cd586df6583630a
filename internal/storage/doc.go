// Package storage persists crawl snapshots as JSON and CSV files.
//
// A snapshot is six files in one directory: the ranked entrant list
// (top-dogs), its first sixteen rows (global-leaderboard) and the contest
// goals (contest-goals), each as .json and .csv. Publish stages every file
// under a temporary name and only then renames them into place, so readers
// never see a half-written file and a failed write leaves the previous
// snapshot untouched.
package storage
