package rules

import "ghauditor/internal/snapshot"

// AllowListWrapper wraps a Rule to provide automatic allowlist functionality.
type AllowListWrapper struct {
	Rule
	allowList AllowList
}

// ID returns the inner rule's ID.
func (w *AllowListWrapper) ID() string {
	return w.Rule.ID()
}

// Title returns the inner rule's Title.
func (w *AllowListWrapper) Title() string {
	return w.Rule.Title()
}

// Description returns the inner rule's Description.
func (w *AllowListWrapper) Description() string {
	return w.Rule.Description()
}

// Evaluate calls the inner rule's Evaluate and then applies the waiver logic.
func (w *AllowListWrapper) Evaluate(snap snapshot.Snapshot) Result {
	return w.allowList.CheckResult(w.Rule.Evaluate(snap))
}

// Options returns the combined options of the allowlist and the inner rule (if configurable).
func (w *AllowListWrapper) Options() []Option {
	opts := w.allowList.Options()
	if cr, ok := w.Rule.(ConfigurableRule); ok {
		opts = append(opts, cr.Options()...)
	}
	return opts
}

// Configure configures the allowlist and the inner rule (if configurable).
func (w *AllowListWrapper) Configure(opts map[string]string) error {
	w.allowList.Configure(opts)
	if cr, ok := w.Rule.(ConfigurableRule); ok {
		return cr.Configure(opts)
	}
	return nil
}
