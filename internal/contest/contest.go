package contest

import (
	"fmt"
	"strings"
)

// Contest is one fundraising campaign page being tracked
type Contest struct {
	DisplayName      string `json:"display_name" mapstructure:"display_name"`
	Page             string `json:"page" mapstructure:"page"`
	ExpectedEntrants int    `json:"expected_entrants" mapstructure:"expected_entrants"`
	BonusDayBaseline int    `json:"bonus_day_baseline" mapstructure:"bonus_day_baseline"`
}

// Equal reports whether two contests are the same campaign.
// Identity is the (display name, page) pair; counts may change between seasons.
func (c Contest) Equal(other Contest) bool {
	return c.DisplayName == other.DisplayName && c.Page == other.Page
}

// URL returns the contest's main page under domain
func (c Contest) URL(domain string) string {
	return strings.TrimRight(domain, "/") + "/" + c.Page
}

// SearchURL returns the contest's leaderboard/search page under domain
func (c Contest) SearchURL(domain string) string {
	return c.URL(domain) + "/search"
}

func (c Contest) validate() error {
	if strings.TrimSpace(c.Page) == "" {
		return fmt.Errorf("contest %q: page is required", c.DisplayName)
	}
	if c.ExpectedEntrants < 0 {
		return fmt.Errorf("contest %q: expected_entrants must be >= 0", c.Page)
	}
	if c.BonusDayBaseline < 0 {
		return fmt.Errorf("contest %q: bonus_day_baseline must be >= 0", c.Page)
	}
	return nil
}

// Registry is the immutable catalog of contests crawled in a cycle
type Registry struct {
	contests []Contest
	rules    []CategoryRule
}

// NewRegistry validates contests and rule definitions and builds a Registry.
// Rules are kept in the order given; the first matching rule wins.
func NewRegistry(contests []Contest, rules []RuleConfig) (*Registry, error) {
	if len(contests) == 0 {
		return nil, fmt.Errorf("registry needs at least one contest")
	}

	seen := make(map[string]bool, len(contests))
	list := make([]Contest, 0, len(contests))
	for _, c := range contests {
		if err := c.validate(); err != nil {
			return nil, err
		}
		key := c.DisplayName + "|" + c.Page
		if seen[key] {
			return nil, fmt.Errorf("duplicate contest %q (%s)", c.DisplayName, c.Page)
		}
		seen[key] = true
		list = append(list, c)
	}

	r := &Registry{contests: list}
	for i, rc := range rules {
		rule, err := r.buildRule(rc)
		if err != nil {
			return nil, fmt.Errorf("category rule %d: %w", i, err)
		}
		r.rules = append(r.rules, rule)
	}

	return r, nil
}

// Contests returns a copy of the registry's contests in configured order
func (r *Registry) Contests() []Contest {
	out := make([]Contest, len(r.contests))
	copy(out, r.contests)
	return out
}

// Rules returns the ordered category rules
func (r *Registry) Rules() []CategoryRule {
	out := make([]CategoryRule, len(r.rules))
	copy(out, r.rules)
	return out
}

// Lookup finds a registered contest by page slug
func (r *Registry) Lookup(page string) (Contest, bool) {
	for _, c := range r.contests {
		if c.Page == page {
			return c, true
		}
	}
	return Contest{}, false
}
