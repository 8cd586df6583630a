// Package scraper provides HTTP fetching and HTML parsing for contest pages.
//
// The scraper fetches leaderboard, entry and contest pages from the contest site
// and extracts numbers and text from markup that was never meant for machines.
// Only transport failures (FetchError) and unparseable documents (ParseError)
// are reported; a field whose markup is missing or malformed yields zero or an
// empty string so that one bad field never costs a whole page.
package scraper
