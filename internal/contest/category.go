package contest

import (
	"fmt"
	"strings"
)

// RuleConfig is the configuration form of a category rule
type RuleConfig struct {
	Fragment    string `mapstructure:"fragment"`
	DisplayName string `mapstructure:"display_name"`
	Page        string `mapstructure:"page"`
}

// CategoryRule maps any category containing Fragment (case-insensitive) to Contest
type CategoryRule struct {
	Fragment string
	Contest  Contest
}

// Matches reports whether category contains the rule's fragment
func (r CategoryRule) Matches(category string) bool {
	return strings.Contains(strings.ToLower(category), r.Fragment)
}

// buildRule resolves a rule's target against the registry. A rule may point
// at a contest that is no longer registered (a previous season); it then
// keeps the configured name and page so the miss stays visible at reconcile time.
func (r *Registry) buildRule(rc RuleConfig) (CategoryRule, error) {
	fragment := strings.ToLower(strings.TrimSpace(rc.Fragment))
	if fragment == "" {
		return CategoryRule{}, fmt.Errorf("fragment is required")
	}
	if rc.Page == "" {
		return CategoryRule{}, fmt.Errorf("fragment %q: page is required", rc.Fragment)
	}

	target, ok := r.Lookup(rc.Page)
	if !ok || (rc.DisplayName != "" && rc.DisplayName != target.DisplayName) {
		target = Contest{DisplayName: rc.DisplayName, Page: rc.Page}
	}

	return CategoryRule{Fragment: fragment, Contest: target}, nil
}

// Resolve maps a free-text category to a contest.
// Rules are evaluated in order and the first match wins; ok is false when the
// category is blank or matches no rule.
func (r *Registry) Resolve(category string) (Contest, bool) {
	if strings.TrimSpace(category) == "" {
		return Contest{}, false
	}
	for _, rule := range r.rules {
		if rule.Matches(category) {
			return rule.Contest, true
		}
	}
	return Contest{}, false
}
