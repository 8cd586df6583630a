package entry

import (
	"strconv"
	"time"

	"github.com/pfrederiksen/topdog/internal/contest"
)

// EntrantCSVHeader is the column set of top-dogs.csv and global-leaderboard.csv
var EntrantCSVHeader = []string{
	"display_name", "contest_page", "dog_name", "votes", "entry_url", "picture_url", "timestamp",
}

// ContestCSVHeader is the column set of contest-goals.csv
var ContestCSVHeader = []string{
	"display_name", "page", "goal", "raised", "total_entries", "bonus_day_amount", "timestamp",
}

// Entrant is one dog's state as scraped from its entry page
type Entrant struct {
	Dog       string          `json:"dog"`
	Votes     int             `json:"votes"`
	Raised    int             `json:"raised"` // $1 = 1 vote, so this often equals Votes
	Contest   contest.Contest `json:"contest"`
	Category  string          `json:"category"`
	Page      string          `json:"page"`
	Picture   string          `json:"picture"`
	Timestamp int64           `json:"timestamp"`
}

// CSVRecord flattens the entrant into EntrantCSVHeader order
func (e *Entrant) CSVRecord() []string {
	return []string{
		e.Contest.DisplayName,
		e.Contest.Page,
		e.Dog,
		strconv.Itoa(e.Votes),
		e.Page,
		e.Picture,
		strconv.FormatInt(e.Timestamp, 10),
	}
}

// ContestGoal is one contest's aggregate state for a cycle
type ContestGoal struct {
	Contest        contest.Contest `json:"contest"`
	Goal           int             `json:"goal"`
	Raised         int             `json:"raised"`
	TotalEntries   int             `json:"total_entries"`
	BonusDayAmount int             `json:"bonus_day_amount"`
	Timestamp      int64           `json:"timestamp"`
}

// NewContestGoal creates a ContestGoal whose bonus-day amount starts at the
// contest's configured baseline
func NewContestGoal(c contest.Contest, goal, raised, totalEntries int, capturedAt time.Time) *ContestGoal {
	return &ContestGoal{
		Contest:        c,
		Goal:           goal,
		Raised:         raised,
		TotalEntries:   totalEntries,
		BonusDayAmount: c.BonusDayBaseline,
		Timestamp:      capturedAt.Unix(),
	}
}

// AddBonus adds a matched entrant's contribution. Negative amounts are ignored
// so the bonus-day amount only ever grows.
func (g *ContestGoal) AddBonus(amount int) {
	if amount > 0 {
		g.BonusDayAmount += amount
	}
}

// CSVRecord flattens the contest goal into ContestCSVHeader order
func (g *ContestGoal) CSVRecord() []string {
	return []string{
		g.Contest.DisplayName,
		g.Contest.Page,
		strconv.Itoa(g.Goal),
		strconv.Itoa(g.Raised),
		strconv.Itoa(g.TotalEntries),
		strconv.Itoa(g.BonusDayAmount),
		strconv.FormatInt(g.Timestamp, 10),
	}
}

// FindGoal returns the goal produced for c, matched by contest identity
func FindGoal(goals []*ContestGoal, c contest.Contest) *ContestGoal {
	for _, g := range goals {
		if g.Contest.Equal(c) {
			return g
		}
	}
	return nil
}
