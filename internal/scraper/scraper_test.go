package scraper

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/pfrederiksen/topdog/internal/contest"
)

var lakeshore = contest.Contest{
	DisplayName:      "NEW Top Dog Lakeshore",
	Page:             "newtopdoglakeshore2022",
	ExpectedEntrants: 10,
}

func loadDoc(t *testing.T, name string) *goquery.Document {
	t.Helper()
	f, err := os.Open("testdata/" + name)
	if err != nil {
		t.Fatalf("failed to load test fixture: %v", err)
	}
	defer f.Close()

	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		t.Fatalf("parsing fixture: %v", err)
	}
	return doc
}

func docFromString(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parsing html: %v", err)
	}
	return doc
}

// newSiteServer serves fixture files keyed by request path
func newSiteServer(t *testing.T, pages map[string]string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); !strings.Contains(ua, "topdog") {
			t.Errorf("User-Agent = %q, should contain 'topdog'", ua)
		}
		name, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		data, err := os.ReadFile("testdata/" + name)
		if err != nil {
			t.Errorf("reading fixture %s: %v", name, err)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write(data)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"1234", 1234},
		{"$1,234", 1234},
		{"1,234 Votes", 1234},
		{"(87 Entries)", 87},
		{"a1b2c3", 123},
		{"  42\n", 42},
		{"Votes: none", 0},
		{"", 0},
		{"$12.50", 0},  // decimal point kept, integer parse fails
		{"1.2.3", 0},
		{"-15", 15},   // sign is not a digit
		{"99999999999999999999999", 0},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			if got := ParseNumber(tt.text); got != tt.want {
				t.Errorf("ParseNumber(%q) = %d, want %d", tt.text, got, tt.want)
			}
		})
	}
}

func TestCleanText(t *testing.T) {
	tests := []struct {
		text, label, want string
	}{
		{"Entry Category: Lakeshore Humane Society Entry ", "Entry Category:", "Lakeshore Humane Society Entry"},
		{"\n  Neenah  \n", "Entry Category:", "Neenah"},
		{"Entry Category:", "Entry Category:", ""},
		{"  plain  ", "", "plain"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := CleanText(tt.text, tt.label); got != tt.want {
				t.Errorf("CleanText(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestAbsoluteURL(t *testing.T) {
	domain := "https://www.example.com"
	tests := []struct {
		ref, want string
	}{
		{"/photos/a.jpg", "https://www.example.com/photos/a.jpg"},
		{"photos/a.jpg", "https://www.example.com/photos/a.jpg"},
		{"https://cdn.example.org/a.jpg", "https://cdn.example.org/a.jpg"},
		{"//cdn.example.org/a.jpg", "https://cdn.example.org/a.jpg"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			if got := absoluteURL(domain, tt.ref); got != tt.want {
				t.Errorf("absoluteURL(%q) = %q, want %q", tt.ref, got, tt.want)
			}
		})
	}
}

func TestParseEntrant(t *testing.T) {
	doc := loadDoc(t, "entry.html")
	now := time.Unix(1650000000, 0)

	e := parseEntrant(doc, "https://www.example.com/newtopdoglakeshore2022/entry/11", "https://www.example.com", lakeshore, now)

	if e.Dog != "Biscuit the Brave" {
		t.Errorf("Dog = %q, want %q", e.Dog, "Biscuit the Brave")
	}
	if e.Votes != 1234 {
		t.Errorf("Votes = %d, want 1234", e.Votes)
	}
	if e.Raised != 1234 {
		t.Errorf("Raised = %d, want 1234", e.Raised)
	}
	if e.Category != "Lakeshore Humane Society Entry" {
		t.Errorf("Category = %q", e.Category)
	}
	if e.Picture != "https://www.example.com/photos/biscuit.jpg" {
		t.Errorf("Picture = %q", e.Picture)
	}
	if e.Page != "https://www.example.com/newtopdoglakeshore2022/entry/11" {
		t.Errorf("Page = %q", e.Page)
	}
	if !e.Contest.Equal(lakeshore) {
		t.Errorf("Contest = %+v", e.Contest)
	}
	if e.Timestamp != 1650000000 {
		t.Errorf("Timestamp = %d", e.Timestamp)
	}
}

func TestParseEntrant_MissingFieldsDefault(t *testing.T) {
	doc := docFromString(t, `<html><body><h3 class="viewEntryVotes">no votes yet</h3></body></html>`)

	e := parseEntrant(doc, "https://x/entry/1", "https://x", lakeshore, time.Unix(0, 0))

	if e.Dog != "" || e.Category != "" || e.Picture != "" {
		t.Errorf("text fields = %q/%q/%q, want empty", e.Dog, e.Category, e.Picture)
	}
	if e.Votes != 0 || e.Raised != 0 {
		t.Errorf("Votes/Raised = %d/%d, want 0/0", e.Votes, e.Raised)
	}
}

func TestParseEntryLinks(t *testing.T) {
	doc := loadDoc(t, "search.html")

	got := parseEntryLinks(doc, "https://www.example.com")
	want := []string{
		"https://www.example.com/newtopdoglakeshore2022/entry/11",
		"https://www.example.com/newtopdoglakeshore2022/entry/7",
		"https://cdn.example.org/entry/3",
	}

	if len(got) != len(want) {
		t.Fatalf("parseEntryLinks() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("link[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestParseTotalsAndCount(t *testing.T) {
	totals := parseTotals(loadDoc(t, "contest.html"))
	if totals.Goal != 50000 || totals.Raised != 12345 {
		t.Errorf("parseTotals() = %+v, want goal 50000 raised 12345", totals)
	}

	if n := parseEntryCount(loadDoc(t, "search.html")); n != 87 {
		t.Errorf("parseEntryCount() = %d, want 87", n)
	}

	if totals := parseTotals(docFromString(t, "<p>maintenance</p>")); totals != (Totals{}) {
		t.Errorf("parseTotals() on unrecognized markup = %+v, want zeros", totals)
	}
}

func TestScraper_FetchPages(t *testing.T) {
	server := newSiteServer(t, map[string]string{
		"/newtopdoglakeshore2022":          "contest.html",
		"/newtopdoglakeshore2022/search":   "search.html",
		"/newtopdoglakeshore2022/entry/11": "entry.html",
	})

	s := New(Options{Domain: server.URL + "/"})
	s.now = func() time.Time { return time.Unix(99, 0) }
	ctx := context.Background()

	links, err := s.EntryLinks(ctx, lakeshore)
	if err != nil {
		t.Fatalf("EntryLinks() error: %v", err)
	}
	if len(links) != 3 || links[0] != server.URL+"/newtopdoglakeshore2022/entry/11" {
		t.Errorf("EntryLinks() = %v", links)
	}

	e, err := s.Entrant(ctx, links[0], lakeshore)
	if err != nil {
		t.Fatalf("Entrant() error: %v", err)
	}
	if e.Votes != 1234 || e.Picture != server.URL+"/photos/biscuit.jpg" || e.Timestamp != 99 {
		t.Errorf("Entrant() = %+v", e)
	}

	totals, err := s.Totals(ctx, lakeshore)
	if err != nil {
		t.Fatalf("Totals() error: %v", err)
	}
	if totals.Goal != 50000 {
		t.Errorf("Totals() = %+v", totals)
	}

	count, err := s.EntryCount(ctx, lakeshore)
	if err != nil {
		t.Fatalf("EntryCount() error: %v", err)
	}
	if count != 87 {
		t.Errorf("EntryCount() = %d, want 87", count)
	}
}

func TestScraper_FetchErrors(t *testing.T) {
	server := newSiteServer(t, map[string]string{})
	s := New(Options{Domain: server.URL})

	_, err := s.Entrant(context.Background(), server.URL+"/missing", lakeshore)
	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("Entrant() error = %v, want *FetchError", err)
	}
	if !strings.Contains(err.Error(), "404") {
		t.Errorf("error = %q, should mention status", err)
	}

	unreachable := New(Options{Domain: "http://127.0.0.1:1", Timeout: time.Second})
	if _, err := unreachable.Totals(context.Background(), lakeshore); !errors.As(err, &fetchErr) {
		t.Errorf("Totals() error = %v, want *FetchError", err)
	}
}

func TestScraper_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer server.Close()

	s := New(Options{Domain: server.URL, Timeout: 50 * time.Millisecond})
	_, err := s.EntryCount(context.Background(), lakeshore)

	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("EntryCount() error = %v, want *FetchError", err)
	}
}

func TestNew_Defaults(t *testing.T) {
	s := New(Options{})

	if s.client == nil {
		t.Fatal("scraper client is nil")
	}
	if s.client.Timeout != DefaultTimeout {
		t.Errorf("Timeout = %v, want %v", s.client.Timeout, DefaultTimeout)
	}
	if s.Domain() != DefaultDomain {
		t.Errorf("Domain() = %q, want %q", s.Domain(), DefaultDomain)
	}
	if s.userAgent != DefaultUserAgent {
		t.Errorf("userAgent = %q", s.userAgent)
	}
}
