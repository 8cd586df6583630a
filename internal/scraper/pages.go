package scraper

import (
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/pfrederiksen/topdog/internal/contest"
	"github.com/pfrederiksen/topdog/internal/entry"
)

// Selectors for the contest site's markup
const (
	entryLinkSelector  = "#ContentPlaceHolder_upPanel .searchEntryCont a.searchEntry"
	dogNameSelector    = "#form1 > div.main > div.mainBody > div:nth-child(1) > h1"
	votesSelector      = "h3.viewEntryVotes"
	raisedSelector     = "#ContentPlaceHolder_divRaised > span"
	categorySelector   = "#ContentPlaceHolder_divEntryCategory"
	pictureSelector    = "#ContentPlaceHolder_imgEntry"
	meterRaisedSel     = "#ContentPlaceHolder_divFundraisingMeter > div.raised > span"
	meterGoalSel       = "#ContentPlaceHolder_divFundraisingMeter > div.goal > span"
	numEntriesSelector = "#ContentPlaceHolder_divSearchTitle > span.numEntries"

	categoryLabel = "Entry Category:"
)

// parseEntryLinks collects leaderboard entry links in display order
func parseEntryLinks(doc *goquery.Document, domain string) []string {
	links := make([]string, 0)
	doc.Find(entryLinkSelector).Each(func(i int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok || href == "" {
			return
		}
		links = append(links, absoluteURL(domain, href))
	})
	return links
}

// parseEntrant extracts an entrant from its entry page
func parseEntrant(doc *goquery.Document, pageURL, domain string, c contest.Contest, now time.Time) *entry.Entrant {
	return &entry.Entrant{
		Dog:       firstLines(doc.Find(dogNameSelector).Text(), 2),
		Votes:     numberField(doc, votesSelector),
		Raised:    numberField(doc, raisedSelector),
		Contest:   c,
		Category:  CleanText(doc.Find(categorySelector).Text(), categoryLabel),
		Page:      pageURL,
		Picture:   absoluteURL(domain, attrField(doc, pictureSelector, "src")),
		Timestamp: now.Unix(),
	}
}

// parseTotals extracts the fundraising meter of a contest page
func parseTotals(doc *goquery.Document) Totals {
	return Totals{
		Goal:   numberField(doc, meterGoalSel),
		Raised: numberField(doc, meterRaisedSel),
	}
}

// parseEntryCount extracts the total number of entries from a search page
func parseEntryCount(doc *goquery.Document) int {
	return numberField(doc, numEntriesSelector)
}
