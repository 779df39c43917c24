package rules

import "ghauditor/internal/snapshot"

type staticRule struct {
	id     string
	result Result
}

func (r *staticRule) ID() string {
	if r.id != "" {
		return r.id
	}
	return "static"
}
func (r *staticRule) Title() string       { return "Static Rule" }
func (r *staticRule) Description() string { return "Returns a fixed result" }
func (r *staticRule) Evaluate(snap snapshot.Snapshot) Result {
	return r.result
}

func emptySnapshot() snapshot.Snapshot {
	return snapshot.Snapshot{Org: "acme"}
}
