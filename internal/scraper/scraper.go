package scraper

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/pfrederiksen/topdog/internal/contest"
	"github.com/pfrederiksen/topdog/internal/entry"
)

const (
	DefaultDomain    = "https://www.gogophotocontest.com"
	DefaultUserAgent = "topdog-crawler/1.0 (github.com/pfrederiksen/topdog)"
	DefaultTimeout   = 30 * time.Second
)

// Options configures a Scraper. Zero values fall back to the defaults above.
type Options struct {
	Domain    string
	UserAgent string
	Timeout   time.Duration
}

// Scraper fetches and parses contest site pages
type Scraper struct {
	client    *http.Client
	domain    string
	userAgent string
	now       func() time.Time
}

// New creates a new Scraper instance
func New(opts Options) *Scraper {
	if opts.Domain == "" {
		opts.Domain = DefaultDomain
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	return &Scraper{
		client: &http.Client{
			Timeout: opts.Timeout,
		},
		domain:    strings.TrimRight(opts.Domain, "/"),
		userAgent: opts.UserAgent,
		now:       time.Now,
	}
}

// Domain returns the base URL pages are resolved against
func (s *Scraper) Domain() string {
	return s.domain
}

// FetchError reports a page that could not be retrieved
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError reports a page whose body could not be read as HTML
type ParseError struct {
	URL string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing %s: %v", e.URL, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Fetch retrieves url and parses it into a document
func (s *Scraper) Fetch(ctx context.Context, url string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{URL: url, Err: fmt.Errorf("creating request: %w", err)}
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{URL: url, Err: fmt.Errorf("unexpected status code: %d", resp.StatusCode)}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, &ParseError{URL: url, Err: err}
	}
	return doc, nil
}

// EntryLinks returns the absolute URLs of the entries on a contest's
// leaderboard, in display order
func (s *Scraper) EntryLinks(ctx context.Context, c contest.Contest) ([]string, error) {
	doc, err := s.Fetch(ctx, c.SearchURL(s.domain))
	if err != nil {
		return nil, err
	}
	return parseEntryLinks(doc, s.domain), nil
}

// Entrant fetches one entry page and extracts the entrant
func (s *Scraper) Entrant(ctx context.Context, pageURL string, c contest.Contest) (*entry.Entrant, error) {
	doc, err := s.Fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	return parseEntrant(doc, pageURL, s.domain, c, s.now()), nil
}

// Totals holds the fundraising meter of a contest's main page
type Totals struct {
	Goal   int
	Raised int
}

// Totals fetches a contest's main page and extracts its fundraising meter
func (s *Scraper) Totals(ctx context.Context, c contest.Contest) (Totals, error) {
	doc, err := s.Fetch(ctx, c.URL(s.domain))
	if err != nil {
		return Totals{}, err
	}
	return parseTotals(doc), nil
}

// EntryCount fetches a contest's search page and extracts the number of entries
func (s *Scraper) EntryCount(ctx context.Context, c contest.Contest) (int, error) {
	doc, err := s.Fetch(ctx, c.SearchURL(s.domain))
	if err != nil {
		return 0, err
	}
	return parseEntryCount(doc), nil
}

// Now returns the capture time used for records
func (s *Scraper) Now() time.Time {
	return s.now()
}
