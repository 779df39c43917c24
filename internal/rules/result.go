package rules

type Status string

const (
	StatusPass      Status = "PASS"
	StatusViolation Status = "VIOLATION"
)

type Result struct {
	RuleID string `json:"rule_id"`
	Org    string `json:"org"`
	Status Status `json:"status"`
	// Message is the human-readable warning for a violation.
	Message string `json:"message,omitempty"`
	// Evidence lists the offending entities (logins, repository names) in
	// the same relative order they appear in the snapshot.
	Evidence []string `json:"evidence,omitempty"`
	// Recommendation is remediation advice; empty for passing results.
	Recommendation string `json:"recommendation,omitempty"`
}
