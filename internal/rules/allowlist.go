package rules

import (
	"fmt"
	"path"
	"strings"
)

// AllowList handles common evidence-waiver logic for rules.
// It waives individual offending entities (logins, repository names) by
// exact match or glob pattern, configured per rule via --set.
type AllowList struct {
	Entries  map[string]bool
	Patterns []string
}

// Options returns the standard configuration options for allow-listing.
func (a *AllowList) Options() []Option {
	return []Option{
		{
			Name:        "allow.entries",
			Description: "Comma-separated list of entities (logins or repository names) whose violations are waived.",
		},
		{
			Name:        "allow.patterns",
			Description: "Comma-separated list of wildcard patterns for waived entities (e.g. bot-*, *-archive).",
		},
	}
}

// Configure parses the configuration options to populate the AllowList.
func (a *AllowList) Configure(opts map[string]string) {
	a.Entries = make(map[string]bool)
	a.Patterns = nil

	if val, ok := opts["allow.entries"]; ok && val != "" {
		for _, s := range strings.Split(val, ",") {
			s = strings.TrimSpace(s)
			if s != "" {
				a.Entries[strings.ToLower(s)] = true
			}
		}
	}

	if val, ok := opts["allow.patterns"]; ok && val != "" {
		for _, s := range strings.Split(val, ",") {
			s = strings.TrimSpace(s)
			if s != "" {
				// Lowercased to support case-insensitive matching.
				a.Patterns = append(a.Patterns, strings.ToLower(s))
			}
		}
	}
}

// IsAllowed checks if the entity is waived by any of the configured entries
// or patterns.
func (a *AllowList) IsAllowed(entity string) bool {
	entity = strings.ToLower(entity)

	if a.Entries[entity] {
		return true
	}

	for _, pattern := range a.Patterns {
		if matched, _ := path.Match(pattern, entity); matched {
			return true
		}
	}

	return false
}

// CheckResult applies the waiver to a violation's evidence. Waived entities
// are removed; a violation whose entire evidence is waived becomes a pass.
// Organisation-wide violations (no evidence) are never waived.
func (a *AllowList) CheckResult(result Result) Result {
	if result.Status != StatusViolation || len(result.Evidence) == 0 {
		return result
	}
	if len(a.Entries) == 0 && len(a.Patterns) == 0 {
		return result
	}

	var remaining []string
	waived := 0
	for _, e := range result.Evidence {
		if a.IsAllowed(e) {
			waived++
			continue
		}
		remaining = append(remaining, e)
	}

	if waived == 0 {
		return result
	}
	if len(remaining) == 0 {
		return PassResultWithMessage(result.RuleID, fmt.Sprintf("Allowed violation: %s (all %d offending entities allowed by policy)", result.Message, waived))
	}

	result.Evidence = remaining
	return result
}
