package rules

import "ghauditor/internal/snapshot"

type Rule interface {
	ID() string
	Title() string
	Description() string

	// Evaluate runs rule logic over the snapshot.
	// Rules are pure: no I/O, no mutation of the snapshot, total over all
	// inputs (empty or nil sequences evaluate as vacuously compliant).
	Evaluate(snap snapshot.Snapshot) Result
}

type Option struct {
	Name        string
	Description string
	Default     string
}

type ConfigurableRule interface {
	Rule
	Options() []Option
	Configure(opts map[string]string) error
}
