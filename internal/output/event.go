package output

import "ghauditor/internal/rules"

// Event is a lifecycle record for NDJSON streaming output.
//
// In NDJSON mode, sinks emit Events (one JSON object per line), including:
// - run.started
// - rule.result
// - run.finished
//
// JSON mode remains an aggregate of rules.Result values.
type Event struct {
	Type string `json:"type"`
	Org  string `json:"org,omitempty"`
	*rules.Result
	Rules    int `json:"rules,omitempty"`
	ExitCode int `json:"exit_code,omitempty"`
}

func eventFromResult(r rules.Result) Event {
	return Event{Type: "rule.result", Org: r.Org, Result: &r}
}
