package scraper

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pfrederiksen/topdog/internal/logger"
)

// ParseNumber keeps only the digits and decimal points of text and parses the
// result as a non-negative integer. Anything that does not parse, including
// text with a fractional part such as "12.50", yields 0.
func ParseNumber(text string) int {
	var b strings.Builder
	for _, r := range text {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}

	n, err := strconv.ParseUint(b.String(), 10, strconv.IntSize-1)
	if err != nil {
		return 0
	}
	return int(n)
}

// CleanText trims whitespace and removes a leading boilerplate label
func CleanText(text, label string) string {
	text = strings.TrimSpace(text)
	if label != "" {
		text = strings.TrimSpace(strings.Replace(text, label, "", 1))
	}
	return text
}

// firstLines concatenates the first n lines of text and trims the result
func firstLines(text string, n int) string {
	lines := strings.SplitN(text, "\n", n+1)
	if len(lines) > n {
		lines = lines[:n]
	}
	return strings.TrimSpace(strings.Join(lines, ""))
}

// absoluteURL joins a site-relative path to domain. Empty input stays empty.
func absoluteURL(domain, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	if strings.HasPrefix(ref, "//") {
		return "https:" + ref
	}
	if !strings.HasPrefix(ref, "/") {
		ref = "/" + ref
	}
	return domain + ref
}

// numberField selects selector and parses its text with ParseNumber
func numberField(doc *goquery.Document, selector string) int {
	text := doc.Find(selector).Text()
	n := ParseNumber(text)
	if n == 0 && strings.TrimSpace(text) != "0" {
		logger.Debug("Numeric field defaulted to zero", logger.Fields{
			"selector": selector,
			"text":     strings.TrimSpace(text),
		})
	}
	return n
}

// attrField returns the attribute of the first match, or "" if it is missing
func attrField(doc *goquery.Document, selector, attr string) string {
	v, _ := doc.Find(selector).First().Attr(attr)
	return v
}
