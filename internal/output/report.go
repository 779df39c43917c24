package output

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"ghauditor/internal/rules"
)

// ReportSink collects one audit run's results and writes a Markdown report
// on Close.
type ReportSink struct {
	path    string
	mu      sync.Mutex
	org     string
	results []rules.Result
	started time.Time
	now     func() time.Time
}

func NewReportSink(path string) (*ReportSink, error) {
	if path == "" {
		return nil, fmt.Errorf("report path required")
	}

	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create report directory: %w", err)
		}
	}

	now := time.Now
	return &ReportSink{path: path, started: now(), now: now}, nil
}

func (s *ReportSink) Write(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch t := v.(type) {
	case rules.Result:
		if s.org == "" {
			s.org = t.Org
		}
		s.results = append(s.results, t)
	case Event:
		if t.Org != "" && s.org == "" {
			s.org = t.Org
		}
	}
	return nil
}

func (s *ReportSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var b strings.Builder

	violations := 0
	for _, r := range s.results {
		if r.Status == rules.StatusViolation {
			violations++
		}
	}

	fmt.Fprintf(&b, "# Security Audit Report: %s\n\n", s.org)
	fmt.Fprintf(&b, "Generated: %s\n\n", s.now().UTC().Format(time.RFC3339))
	if violations == 0 {
		fmt.Fprintf(&b, "**Result: COMPLIANT** — %d rules evaluated, no violations.\n\n", len(s.results))
	} else {
		fmt.Fprintf(&b, "**Result: NOT COMPLIANT** — %d of %d rules violated.\n\n", violations, len(s.results))
	}

	b.WriteString("## Summary\n\n")
	b.WriteString("| Rule | Status | Offenders |\n")
	b.WriteString("|------|--------|-----------|\n")
	for _, r := range s.results {
		fmt.Fprintf(&b, "| %s | %s | %d |\n", r.RuleID, r.Status, len(r.Evidence))
	}
	b.WriteString("\n")

	if violations > 0 {
		b.WriteString("## Violations\n\n")
		for _, r := range s.results {
			if r.Status != rules.StatusViolation {
				continue
			}
			fmt.Fprintf(&b, "### %s\n\n", r.RuleID)
			if r.Message != "" {
				fmt.Fprintf(&b, "%s\n\n", r.Message)
			}
			if len(r.Evidence) > 0 {
				b.WriteString("Offending entities:\n\n")
				for _, e := range r.Evidence {
					fmt.Fprintf(&b, "- `%s`\n", e)
				}
				b.WriteString("\n")
			}
			if r.Recommendation != "" {
				fmt.Fprintf(&b, "**Recommendation:** %s\n\n", r.Recommendation)
			}
		}
	}

	return os.WriteFile(s.path, []byte(b.String()), 0644)
}
