// Package contest holds the registry of fundraising contests to crawl.
//
// A Registry is built from configuration at start-up (and rebuilt when the
// configuration changes between seasons). Besides the contest list it carries
// the ordered category rules used to map an entrant's free-text category to
// the contest that should receive its bonus-day contribution.
package contest
