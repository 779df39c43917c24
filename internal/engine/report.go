package engine

import "ghauditor/internal/rules"

// Report is the ordered collection of rule verdicts for one audit run.
// Results appear in the order the rules were supplied to Run.
type Report struct {
	Org     string         `json:"org"`
	Results []rules.Result `json:"results"`
}

// IsCompliant reports whether every result passed. An empty report is
// compliant by definition; callers are responsible for registering the
// default rule set.
func (r Report) IsCompliant() bool {
	for _, res := range r.Results {
		if res.Status != rules.StatusPass {
			return false
		}
	}
	return true
}
