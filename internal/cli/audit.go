package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"ghauditor/internal/config"
	"ghauditor/internal/engine"
	"ghauditor/internal/flags"
	gh "ghauditor/internal/github"
	"ghauditor/internal/output"
	"ghauditor/internal/provider"
	"ghauditor/internal/rules"

	"github.com/spf13/cobra"
)

var cfg = config.New()

var auditCmd = &cobra.Command{
	Use:   "audit <organisation>",
	Short: "Audit a GitHub organisation against the built-in security rules",
	Long: `Audit a GitHub organisation's security posture and report violations.

ghauditor captures a point-in-time snapshot of the organisation (settings,
member roster, repository branch protection) via the GitHub API, evaluates
every registered rule against it, and reports each verdict with remediation
advice. The snapshot is read-only: nothing is ever mutated.

Authentication:
  ghauditor uses a GitHub access token with at least read:org scope. It
  prefers -t/--token, then GITHUB_TOKEN, then GITHUB_AUTH_KEY, and finally
  GitHub CLI authentication if the gh CLI is installed and logged in.

Output:
	Console output is controlled by --console-format (default: text).
	Structured outputs can be written via:
	- --out / --out-format: write an aggregate JSON array or NDJSON stream to a file
	- --emit: write an additional structured stream to stdout (json or ndjson)
	- --report: write a Markdown report
	- --no-console: suppress the console sink (use with --emit/--out for machine output)

	NDJSON mode emits one JSON object per line. Objects are lifecycle Events with a
	"type" field (run.started, rule.result, run.finished). Rule results are
	represented as an Event with type "rule.result" and a nested "result" object.

Exit codes:
	0 = compliant, no violations
	1 = violations detected
	3 = fatal error (audit did not run)

Examples:
  # Token via environment variable
  export GITHUB_TOKEN="<your_token>"
  ghauditor audit my-org

  # Explicit token
  ghauditor audit my-org -t "<your_token>"

	# Restrict the rule set and waive known offenders
	ghauditor audit my-org --rules default-branch-protected \
		--set default-branch-protected.allow.patterns=*-archive

	# AI Agent: stream machine-readable events to stdout
	ghauditor audit my-org --no-console --emit ndjson
`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 && cmd.Flags().NFlag() == 0 {
			_ = cmd.Help()
			return
		}
		if len(args) > 0 {
			cfg.Targeting.Org = args[0]
		}

		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(exitFatal)
		}

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Runtime.Timeout)
		defer cancel()

		token, _, err := gh.ResolveAuthToken(ctx, cfg.Auth.Token)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to resolve GitHub auth token: %v\n", err)
			os.Exit(exitFatal)
		}
		if strings.TrimSpace(token) == "" {
			fmt.Fprintln(os.Stderr, "Error: GitHub auth token is required (use --token, set GITHUB_TOKEN, or run 'gh auth login')")
			os.Exit(exitFatal)
		}

		client, err := gh.NewClient(ctx, token, gh.WithVerbose(cfg.Runtime.Verbose, nil))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to create GitHub client: %v\n", err)
			os.Exit(exitFatal)
		}
		os.Exit(runAudit(ctx, cfg, client))
	},
}

const (
	exitCompliant  = 0
	exitViolations = 1
	exitFatal      = 3
)

// runAudit orchestrates one audit: snapshot capture, rule resolution, pure
// evaluation, and result emission. Returns the process exit code.
func runAudit(ctx context.Context, cfg *config.Config, client *gh.Client) int {
	selectedRules, ok := resolveAndConfigureRules(cfg)
	if !ok {
		return exitFatal
	}
	if len(selectedRules) == 0 && !cfg.Output.NoConsole {
		fmt.Fprintln(os.Stderr, "Warning: no rules selected; report is compliant by definition")
	}

	p, err := provider.New(client, provider.NewRequestBudget(),
		provider.WithConcurrency(cfg.Runtime.Concurrency),
		provider.WithActivityWindow(cfg.Runtime.ActivityWindow),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitFatal
	}

	if !cfg.Output.NoConsole {
		fmt.Fprintf(os.Stderr, "Capturing snapshot of %s...\n", cfg.Targeting.Org)
	}
	snap, err := p.Fetch(ctx, cfg.Targeting.Org)
	if err != nil {
		reportFetchError(err)
		return exitFatal
	}

	outMgr, err := setupOutputManager(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output sinks: %v\n", err)
		return exitFatal
	}
	defer outMgr.Close()

	_ = outMgr.Write(output.Event{Type: "run.started", Org: snap.Org, Rules: len(selectedRules)})

	report := engine.Run(snap, selectedRules)
	for _, res := range report.Results {
		_ = outMgr.Write(res)
	}

	code := exitCompliant
	if !report.IsCompliant() {
		code = exitViolations
	}
	_ = outMgr.Write(output.Event{Type: "run.finished", Org: snap.Org, ExitCode: code})
	return code
}

// reportFetchError surfaces a Data Provider failure with advice matched to
// its classification. No partial report is emitted.
func reportFetchError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	switch provider.KindOf(err) {
	case provider.KindUnauthorized:
		fmt.Fprintln(os.Stderr, "The token is missing, invalid, or lacks read:org scope for this organisation.")
	case provider.KindNotFound:
		fmt.Fprintln(os.Stderr, "The organisation was not found; check the name and the token's permission scope.")
	case provider.KindRateLimited:
		fmt.Fprintln(os.Stderr, "GitHub rate limit hit; retry after the limit resets.")
	default:
		fmt.Fprintln(os.Stderr, "Transient network failure while fetching the snapshot; retrying may succeed.")
	}
}

func resolveAndConfigureRules(cfg *config.Config) ([]rules.Rule, bool) {
	if !cfg.Output.NoConsole {
		fmt.Fprintln(os.Stderr, "Resolving rules...")
	}
	selectedRules, err := rules.Resolve(cfg.Rules.Selector)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error resolving rules: %v\n", err)
		return nil, false
	}

	if err := applyRuleOptionsIfAny(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error configuring rules: %v\n", err)
		return nil, false
	}

	if !cfg.Output.NoConsole {
		fmt.Fprintf(os.Stderr, "Selected %d rules.\n", len(selectedRules))
	}
	return selectedRules, true
}

// applyRuleOptionsIfAny applies per-rule configuration supplied via repeated
// --set flags.
//
// --set values are parsed as "ruleID.option=value" and routed to the matching
// rule's Configure method (only rules that implement rules.ConfigurableRule).
//
// Example:
//
//	ghauditor audit my-org --set admin-allowlist.allowed.logins=alice,bob
func applyRuleOptionsIfAny(cfg *config.Config) error {
	if len(cfg.Rules.Set) == 0 {
		return nil
	}

	assignments, err := config.ParseRuleOptionAssignments(cfg.Rules.Set)
	if err != nil {
		return err
	}

	all := rules.List()
	byID := make(map[string]rules.Rule, len(all))
	for _, r := range all {
		byID[r.ID()] = r
	}

	for ruleID, opts := range assignments {
		r, ok := byID[ruleID]
		if !ok {
			return fmt.Errorf("unknown rule ID %q", ruleID)
		}
		cr, ok := r.(rules.ConfigurableRule)
		if !ok {
			return fmt.Errorf("rule %q does not support options", ruleID)
		}

		allowed := make(map[string]struct{})
		for _, opt := range cr.Options() {
			allowed[opt.Name] = struct{}{}
		}
		for name := range opts {
			if _, ok := allowed[name]; !ok {
				return fmt.Errorf("unknown option %q for rule %q", name, ruleID)
			}
		}

		if err := cr.Configure(opts); err != nil {
			return fmt.Errorf("configure rule %q: %w", ruleID, err)
		}
	}

	return nil
}

func setupOutputManager(cfg *config.Config) (*output.Manager, error) {
	outMgr := output.NewManager()

	// Console Sink
	if !cfg.Output.NoConsole {
		if err := outMgr.AddSink(output.NewConsoleSink(nil, cfg.Output.ConsoleFormat, cfg.Output.ConsoleFilterStatus)); err != nil {
			outMgr.Close()
			return nil, err
		}
	}

	// Emit Sinks (additional structured streams)
	for _, emit := range cfg.Output.Emit {
		es, err := output.NewEmitSink(os.Stdout, emit)
		if err != nil {
			outMgr.Close()
			return nil, err
		}
		if err := outMgr.AddSink(es); err != nil {
			outMgr.Close()
			return nil, err
		}
	}

	// File Sink
	if cfg.Output.Out != "" {
		fs, err := output.NewFileSink(cfg.Output.Out, cfg.Output.OutFormat)
		if err != nil {
			outMgr.Close()
			return nil, err
		}
		if err := outMgr.AddSink(fs); err != nil {
			outMgr.Close()
			return nil, err
		}
	}

	// Report Sink
	if cfg.Output.Report != "" {
		rs, err := output.NewReportSink(cfg.Output.Report)
		if err != nil {
			outMgr.Close()
			return nil, err
		}
		if err := outMgr.AddSink(rs); err != nil {
			outMgr.Close()
			return nil, err
		}
	}

	return outMgr, nil
}

func init() {
	rootCmd.AddCommand(auditCmd)

	// Auth
	auditCmd.Flags().StringVarP(&cfg.Auth.Token, flags.FlagToken, "t", "", "GitHub access token (defaults to GITHUB_TOKEN, GITHUB_AUTH_KEY, or gh CLI auth)")

	// Rules
	auditCmd.Flags().StringVar(&cfg.Rules.Selector, flags.FlagRules, "", "Rule selector: comma-separated rule IDs (empty = all rules)")
	auditCmd.Flags().StringArrayVar(&cfg.Rules.Set, flags.FlagSet, nil, "Per-rule options as ruleID.option=value (repeatable)")

	// Output
	auditCmd.Flags().StringVar(&cfg.Output.ConsoleFormat, flags.FlagConsoleFormat, "text", "Console output format: text|json|ndjson (default: text)")
	auditCmd.Flags().StringSliceVar(&cfg.Output.ConsoleFilterStatus, flags.FlagConsoleFilterStatus, nil, "Filter console output by status (PASS, VIOLATION). Comma-separated.")
	auditCmd.Flags().StringVar(&cfg.Output.Report, flags.FlagReport, "", "Write a Markdown report to this path")
	auditCmd.Flags().StringVar(&cfg.Output.Out, flags.FlagOut, "", "Write structured output to this path")
	auditCmd.Flags().StringVar(&cfg.Output.OutFormat, flags.FlagOutFormat, "", "Structured output format for --out: json|ndjson (default: inferred from file extension)")
	auditCmd.Flags().StringSliceVar(&cfg.Output.Emit, flags.FlagEmit, nil, "Emit additional structured stream to stdout: json|ndjson (repeatable; comma-separated accepted)")
	auditCmd.Flags().BoolVar(&cfg.Output.NoConsole, flags.FlagNoConsole, false, "Suppress console output (use with --emit/--out/--report)")

	// Runtime
	auditCmd.Flags().IntVar(&cfg.Runtime.Concurrency, flags.FlagConcurrency, cfg.Runtime.Concurrency, "Concurrent snapshot fetches (default: 5)")
	auditCmd.Flags().DurationVar(&cfg.Runtime.Timeout, flags.FlagTimeout, cfg.Runtime.Timeout, "Global timeout (default: 30m)")
	auditCmd.Flags().DurationVar(&cfg.Runtime.ActivityWindow, flags.FlagActivityWindow, cfg.Runtime.ActivityWindow, "How far back a push counts as recent activity (default: 2160h = 90 days)")
}
