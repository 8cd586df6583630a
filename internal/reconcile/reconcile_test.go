package reconcile

import (
	"bytes"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/pfrederiksen/topdog/internal/contest"
	"github.com/pfrederiksen/topdog/internal/entry"
	"github.com/pfrederiksen/topdog/internal/logger"
)

var (
	neenah    = contest.Contest{DisplayName: "NEW Top Dog Neenah", Page: "newtopdogneenah2022", ExpectedEntrants: 10}
	lakeshore = contest.Contest{DisplayName: "NEW Top Dog Lakeshore", Page: "newtopdoglakeshore2022", ExpectedEntrants: 10}
	oshkosh   = contest.Contest{DisplayName: "Top Dog Oshkosh", Page: "topdogoshkosh2021"}
)

func registry(t *testing.T) *contest.Registry {
	t.Helper()
	r, err := contest.NewRegistry([]contest.Contest{neenah, lakeshore}, []contest.RuleConfig{
		{Fragment: "lakeshore", Page: lakeshore.Page},
		{Fragment: "neenah", Page: neenah.Page},
		{Fragment: "oshkosh", DisplayName: oshkosh.DisplayName, Page: oshkosh.Page},
	})
	if err != nil {
		t.Fatalf("NewRegistry() error: %v", err)
	}
	return r
}

func goals() []*entry.ContestGoal {
	at := time.Unix(0, 0)
	return []*entry.ContestGoal{
		entry.NewContestGoal(neenah, 0, 0, 0, at),
		entry.NewContestGoal(lakeshore, 0, 0, 0, at),
	}
}

func TestApply_LakeshoreRoundTrip(t *testing.T) {
	g := goals()
	previous := []*entry.Entrant{
		{Dog: "Biscuit", Raised: 50, Category: "Lakeshore Humane Society Entry"},
		{Dog: "Pepper", Raised: 75, Category: ""},
	}

	report := Apply(g, previous, registry(t))

	if g[1].BonusDayAmount != 50 {
		t.Errorf("lakeshore BonusDayAmount = %d, want 50", g[1].BonusDayAmount)
	}
	if g[0].BonusDayAmount != 0 {
		t.Errorf("neenah BonusDayAmount = %d, want 0", g[0].BonusDayAmount)
	}
	if report.Matched != 1 || report.Blank != 1 || report.Amount != 50 {
		t.Errorf("report = %+v", report)
	}
}

func TestApply_Outcomes(t *testing.T) {
	g := goals()
	g[0].BonusDayAmount = 5000 // baseline

	previous := []*entry.Entrant{
		{Dog: "a", Raised: 10, Category: "NEENAH champ"},
		{Dog: "b", Raised: 15, Category: "neenah"},
		{Dog: "c", Raised: 99, Category: "Fox Valley"},
		{Dog: "d", Raised: 20, Category: "Oshkosh Area Humane Society"},
		nil,
		{Dog: "e", Raised: 30, Category: "Lakeshore"},
	}

	report := Apply(g, previous, registry(t))

	if g[0].BonusDayAmount != 5025 {
		t.Errorf("neenah BonusDayAmount = %d, want 5025", g[0].BonusDayAmount)
	}
	if g[1].BonusDayAmount != 30 {
		t.Errorf("lakeshore BonusDayAmount = %d, want 30", g[1].BonusDayAmount)
	}

	want := Report{Matched: 3, Unmatched: 1, Missing: 1, Amount: 55}
	if report != want {
		t.Errorf("report = %+v, want %+v", report, want)
	}
}

func TestApply_NoPrevious(t *testing.T) {
	g := goals()
	report := Apply(g, nil, registry(t))

	if report != (Report{}) {
		t.Errorf("report = %+v, want zero", report)
	}
	for _, goal := range g {
		if goal.BonusDayAmount != 0 {
			t.Errorf("%s BonusDayAmount = %d, want unchanged", goal.Contest.Page, goal.BonusDayAmount)
		}
	}
}

func TestApply_MatchesByIdentityNotCounts(t *testing.T) {
	// this season's registry bumped the expected entrant count
	bumped := lakeshore
	bumped.ExpectedEntrants = 25
	g := []*entry.ContestGoal{entry.NewContestGoal(bumped, 0, 0, 0, time.Unix(0, 0))}

	Apply(g, []*entry.Entrant{{Raised: 40, Category: "lakeshore"}}, registry(t))

	if g[0].BonusDayAmount != 40 {
		t.Errorf("BonusDayAmount = %d, want 40", g[0].BonusDayAmount)
	}
}

func TestApply_LogsBlankCategory(t *testing.T) {
	var buf bytes.Buffer
	logger.SetDefault(logger.New(logger.LevelDebug, &buf))
	defer logger.SetDefault(logger.New(logger.LevelInfo, os.Stderr))

	report := Apply(goals(), []*entry.Entrant{{Dog: "Pepper", Raised: 75}}, registry(t))

	if report.Blank != 1 || report.Amount != 0 {
		t.Errorf("report = %+v", report)
	}
	if !strings.Contains(buf.String(), `"dog":"Pepper"`) {
		t.Errorf("blank-category entrant not logged:\n%s", buf.String())
	}
}
