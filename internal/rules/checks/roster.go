package checks

import "strings"

// parseLoginList parses a comma-separated login list, preserving order and
// normalizing to lower case (GitHub logins are case-insensitive).
func parseLoginList(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// diffRoster compares the observed logins against an expected roster.
// Evidence lists unexpected logins first (observed order), then missing
// logins (roster order), each prefixed so the reader can tell them apart.
func diffRoster(observed []string, expected []string) []string {
	want := make(map[string]bool, len(expected))
	for _, l := range expected {
		want[l] = true
	}
	got := make(map[string]bool, len(observed))

	var evidence []string
	for _, l := range observed {
		key := strings.ToLower(l)
		got[key] = true
		if !want[key] {
			evidence = append(evidence, "unexpected:"+l)
		}
	}
	for _, l := range expected {
		if !got[l] {
			evidence = append(evidence, "missing:"+l)
		}
	}
	return evidence
}
