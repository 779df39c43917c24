package config

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"
)

type Config struct {
	// MAINTAINER NOTE: If you add/change/remove config fields that affect
	// audit behavior, keep the CLI flags in internal/cli/audit.go in sync.
	Targeting Targeting
	Auth      Auth
	Rules     Rules
	Output    Output
	Runtime   Runtime
}

type Targeting struct {
	// Org is the GitHub organisation to audit (name or URL; positional arg).
	Org string
}

type Auth struct {
	// Token is the explicit GitHub access token (see -t/--token).
	// When empty, the token is resolved from the environment or the gh CLI.
	Token string
}

type Rules struct {
	// Selector picks rules by comma-separated ID list (see --rules).
	// Empty means all registered rules.
	Selector string

	// Set carries per-rule options as ruleID.option=value (see --set).
	Set []string
}

type Output struct {
	// ConsoleFormat selects console rendering: text, json, or ndjson.
	ConsoleFormat string

	// ConsoleFilterStatus filters console output by status (PASS, VIOLATION).
	ConsoleFilterStatus []string

	// Report is the path for an optional Markdown report (see --report).
	Report string

	// Out is the path for structured output (see --out).
	Out string

	// OutFormat is the structured output format for Out: json or ndjson.
	// Empty means inferred from the file extension.
	OutFormat string

	// Emit lists additional structured streams written to stdout (see --emit).
	Emit []string

	// NoConsole suppresses the console sink.
	NoConsole bool
}

type Runtime struct {
	// Concurrency bounds concurrent GitHub fetches during snapshot capture.
	Concurrency int

	// Timeout bounds the whole audit run.
	Timeout time.Duration

	// ActivityWindow is how far back a push counts as recent activity.
	ActivityWindow time.Duration

	// Verbose enables per-request GitHub API logging on stderr.
	Verbose bool
}

func New() *Config {
	return &Config{
		Output: Output{
			ConsoleFormat: "text",
		},
		Runtime: Runtime{
			Concurrency:    5,
			Timeout:        30 * time.Minute,
			ActivityWindow: 90 * 24 * time.Hour,
		},
	}
}

func (c *Config) Validate() error {
	org, err := normalizeAccountSelector(c.Targeting.Org)
	if err != nil {
		return fmt.Errorf("invalid organisation %v", err)
	}
	if org == "" {
		return errors.New("organisation is required")
	}
	c.Targeting.Org = org

	c.Output.ConsoleFormat = normalizeEnumValue(c.Output.ConsoleFormat)
	switch c.Output.ConsoleFormat {
	case "", "text", "json", "ndjson":
	default:
		return fmt.Errorf("unsupported console format: %s", c.Output.ConsoleFormat)
	}

	for _, emit := range c.Output.Emit {
		e := normalizeEnumValue(emit)
		if e != "json" && e != "ndjson" {
			return fmt.Errorf("unsupported emit format: %s", emit)
		}
	}

	if c.Output.Out != "" {
		c.Output.OutFormat = normalizeEnumValue(c.Output.OutFormat)
		if c.Output.OutFormat == "" {
			ext := strings.ToLower(filepath.Ext(c.Output.Out))
			switch ext {
			case ".json":
				c.Output.OutFormat = "json"
			case ".ndjson", ".jsonl":
				c.Output.OutFormat = "ndjson"
			default:
				if ext == "" {
					return errors.New("cannot infer output format from file extension (missing extension); use --out-format")
				}
				return fmt.Errorf("cannot infer output format from file extension %q; use --out-format", ext)
			}
		} else if c.Output.OutFormat != "json" && c.Output.OutFormat != "ndjson" {
			return fmt.Errorf("unsupported output format: %s", c.Output.OutFormat)
		}
	}

	if c.Runtime.Concurrency < 1 {
		return fmt.Errorf("concurrency must be >= 1, got %d", c.Runtime.Concurrency)
	}
	if c.Runtime.ActivityWindow <= 0 {
		return fmt.Errorf("activity window must be positive, got %s", c.Runtime.ActivityWindow)
	}

	// Rule option syntax validation (rule.option=value)
	if len(c.Rules.Set) > 0 {
		if _, err := ParseRuleOptionAssignments(c.Rules.Set); err != nil {
			return err
		}
	}

	return nil
}

func normalizeEnumValue(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

func normalizeAccountSelector(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}

	// Accept a raw organisation name, or a GitHub URL like:
	//   https://github.com/<name>
	//   https://github.com/orgs/<name>
	//   github.com/<name>
	if strings.HasPrefix(raw, "github.com/") || strings.HasPrefix(raw, "www.github.com/") {
		raw = "https://" + raw
	}
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		u, err := url.Parse(raw)
		if err != nil {
			return "", fmt.Errorf("%q", raw)
		}
		host := strings.ToLower(u.Hostname())
		if host == "www.github.com" {
			host = "github.com"
		}
		if host != "github.com" {
			return "", fmt.Errorf("%q", raw)
		}
		parts := strings.FieldsFunc(strings.Trim(u.Path, "/"), func(r rune) bool { return r == '/' })
		if len(parts) == 0 {
			return "", fmt.Errorf("%q", raw)
		}
		if parts[0] == "orgs" {
			if len(parts) < 2 {
				return "", fmt.Errorf("%q", raw)
			}
			return parts[1], nil
		}
		return parts[0], nil
	}

	// Basic sanity: reject obvious owner/repo-like inputs.
	if strings.Contains(raw, "/") {
		return "", fmt.Errorf("%q", raw)
	}
	return raw, nil
}

// ParseRuleOptionAssignments parses values of the form "ruleID.option=value".
//
// Notes:
// - Each entry is one whole assignment; values may themselves contain commas
//   (e.g. admin-allowlist.allowed.logins=alice,bob), so --set is repeatable
//   rather than comma-delimited.
// - This validates syntax only (no validation of rule IDs or option names).
// - Empty values are allowed ("rule.option=").
func ParseRuleOptionAssignments(values []string) (map[string]map[string]string, error) {
	out := make(map[string]map[string]string)
	for _, raw := range values {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		left, value, ok := strings.Cut(raw, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --set entry %q: expected rule.option=value", raw)
		}
		left = strings.TrimSpace(left)
		value = strings.TrimSpace(value)
		ruleID, opt, ok := strings.Cut(left, ".")
		if !ok {
			return nil, fmt.Errorf("invalid --set entry %q: expected rule.option=value", raw)
		}
		ruleID = strings.TrimSpace(ruleID)
		opt = strings.TrimSpace(opt)
		if ruleID == "" || opt == "" {
			return nil, fmt.Errorf("invalid --set entry %q: expected non-empty rule and option", raw)
		}
		if _, ok := out[ruleID]; !ok {
			out[ruleID] = make(map[string]string)
		}
		out[ruleID][opt] = value
	}
	return out, nil
}
