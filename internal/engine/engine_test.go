package engine_test

import (
	"fmt"
	"reflect"
	"testing"
	"time"

	"ghauditor/internal/engine"
	"ghauditor/internal/rules"
	_ "ghauditor/internal/rules/checks"
	"ghauditor/internal/snapshot"
)

// fakeRule lets tests control result content and evaluation latency.
type fakeRule struct {
	id     string
	delay  time.Duration
	result rules.Result
}

func (r *fakeRule) ID() string          { return r.id }
func (r *fakeRule) Title() string       { return r.id }
func (r *fakeRule) Description() string { return r.id }
func (r *fakeRule) Evaluate(snap snapshot.Snapshot) rules.Result {
	if r.delay > 0 {
		time.Sleep(r.delay)
	}
	return r.result
}

func builtinRules(t *testing.T) []rules.Rule {
	t.Helper()
	selected, err := rules.Resolve("two-factor-required,admin-separation,default-branch-protected")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	return selected
}

func resultByRule(t *testing.T, report engine.Report, ruleID string) rules.Result {
	t.Helper()
	for _, r := range report.Results {
		if r.RuleID == ruleID {
			return r
		}
	}
	t.Fatalf("no result for rule %s in %+v", ruleID, report.Results)
	return rules.Result{}
}

func TestRun_EmptyRuleSetIsCompliantByDefinition(t *testing.T) {
	report := engine.Run(snapshot.Snapshot{Org: "acme"}, nil)
	if len(report.Results) != 0 {
		t.Errorf("results = %v, want empty", report.Results)
	}
	if !report.IsCompliant() {
		t.Error("empty report must be compliant")
	}
}

func TestRun_TwoFactorDisabledOnly(t *testing.T) {
	// requiresTwoFactor=false, empty members, empty repos: exactly one
	// violation, from the two-factor rule.
	snap := snapshot.Snapshot{Org: "acme", RequiresTwoFactor: false}
	report := engine.Run(snap, builtinRules(t))

	if len(report.Results) != 3 {
		t.Fatalf("got %d results, want 3", len(report.Results))
	}
	if report.IsCompliant() {
		t.Error("expected non-compliant report")
	}

	violations := 0
	for _, r := range report.Results {
		if r.Status == rules.StatusViolation {
			violations++
			if r.RuleID != "two-factor-required" {
				t.Errorf("unexpected violation from %s", r.RuleID)
			}
		}
	}
	if violations != 1 {
		t.Errorf("violations = %d, want 1", violations)
	}
}

func TestRun_AdminWithPushActivity(t *testing.T) {
	snap := snapshot.Snapshot{
		Org:               "acme",
		RequiresTwoFactor: true,
		Members: []snapshot.Member{
			{Login: "alice", Role: snapshot.RoleAdmin, HasRecentPushActivity: true},
		},
	}
	report := engine.Run(snap, builtinRules(t))

	if report.IsCompliant() {
		t.Error("expected non-compliant report")
	}
	res := resultByRule(t, report, "admin-separation")
	if res.Status != rules.StatusViolation {
		t.Fatalf("status = %q", res.Status)
	}
	if !reflect.DeepEqual(res.Evidence, []string{"alice"}) {
		t.Errorf("evidence = %v, want [alice]", res.Evidence)
	}
}

func TestRun_UnprotectedDefaultBranch(t *testing.T) {
	snap := snapshot.Snapshot{
		Org:               "acme",
		RequiresTwoFactor: true,
		Repositories: []snapshot.Repository{
			{Name: "test-repo", DefaultBranch: "master", DefaultBranchProtected: false},
		},
	}
	report := engine.Run(snap, builtinRules(t))

	res := resultByRule(t, report, "default-branch-protected")
	if res.Status != rules.StatusViolation {
		t.Fatalf("status = %q", res.Status)
	}
	if !reflect.DeepEqual(res.Evidence, []string{"test-repo"}) {
		t.Errorf("evidence = %v, want [test-repo]", res.Evidence)
	}
}

func TestRun_FullyCompliantSnapshot(t *testing.T) {
	snap := snapshot.Snapshot{
		Org:               "acme",
		RequiresTwoFactor: true,
		Members: []snapshot.Member{
			{Login: "alice", Role: snapshot.RoleAdmin, HasRecentPushActivity: false},
			{Login: "bob", Role: snapshot.RoleMember, HasRecentPushActivity: true},
		},
		Repositories: []snapshot.Repository{
			{Name: "api", DefaultBranch: "main", DefaultBranchProtected: true},
		},
	}
	report := engine.Run(snap, builtinRules(t))

	if len(report.Results) != 3 {
		t.Fatalf("got %d results, want 3", len(report.Results))
	}
	if !report.IsCompliant() {
		t.Errorf("expected compliant report, got %+v", report.Results)
	}
	for _, r := range report.Results {
		if r.Status != rules.StatusPass {
			t.Errorf("rule %s: status = %q", r.RuleID, r.Status)
		}
		if len(r.Evidence) != 0 || r.Recommendation != "" {
			t.Errorf("rule %s: pass result carries evidence/recommendation: %+v", r.RuleID, r)
		}
	}
}

func TestRun_Deterministic(t *testing.T) {
	snap := snapshot.Snapshot{
		Org: "acme",
		Members: []snapshot.Member{
			{Login: "alice", Role: snapshot.RoleAdmin, HasRecentPushActivity: true},
			{Login: "bob", Role: snapshot.RoleAdmin, HasRecentPushActivity: true},
		},
		Repositories: []snapshot.Repository{
			{Name: "web", DefaultBranch: "main"},
			{Name: "api", DefaultBranch: "main"},
		},
	}
	ruleSet := builtinRules(t)

	first := engine.Run(snap, ruleSet)
	for i := 0; i < 10; i++ {
		again := engine.Run(snap, ruleSet)
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differs:\nfirst: %+v\nagain: %+v", i, first, again)
		}
	}
}

func TestRun_DoesNotMutateSnapshot(t *testing.T) {
	members := []snapshot.Member{
		{Login: "alice", Role: snapshot.RoleAdmin, HasRecentPushActivity: true},
	}
	repos := []snapshot.Repository{
		{Name: "web", DefaultBranch: "main", DefaultBranchProtected: false},
	}
	snap := snapshot.Snapshot{Org: "acme", Members: members, Repositories: repos}

	want := snapshot.Snapshot{
		Org: "acme",
		Members: []snapshot.Member{
			{Login: "alice", Role: snapshot.RoleAdmin, HasRecentPushActivity: true},
		},
		Repositories: []snapshot.Repository{
			{Name: "web", DefaultBranch: "main", DefaultBranchProtected: false},
		},
	}

	engine.Run(snap, builtinRules(t))
	engine.Run(snap, builtinRules(t))

	if !reflect.DeepEqual(snap, want) {
		t.Errorf("snapshot mutated:\n got %+v\nwant %+v", snap, want)
	}
}

func TestRun_PreservesSupplyOrderUnderConcurrency(t *testing.T) {
	// Later rules finish first; the report must still follow supply order.
	const n = 20
	ruleSet := make([]rules.Rule, n)
	for i := range ruleSet {
		ruleSet[i] = &fakeRule{
			id:     fmt.Sprintf("rule-%02d", i),
			delay:  time.Duration(n-i) * time.Millisecond,
			result: rules.Result{Status: rules.StatusPass},
		}
	}

	report := engine.Run(snapshot.Snapshot{Org: "acme"}, ruleSet)
	if len(report.Results) != n {
		t.Fatalf("got %d results, want %d", len(report.Results), n)
	}
	for i, res := range report.Results {
		want := fmt.Sprintf("rule-%02d", i)
		if res.RuleID != want {
			t.Errorf("results[%d].RuleID = %q, want %q", i, res.RuleID, want)
		}
	}
}

func TestRun_BackfillsIdentifiers(t *testing.T) {
	ruleSet := []rules.Rule{
		&fakeRule{id: "anonymous", result: rules.Result{Status: rules.StatusPass}},
	}
	report := engine.Run(snapshot.Snapshot{Org: "acme"}, ruleSet)

	res := report.Results[0]
	if res.RuleID != "anonymous" {
		t.Errorf("RuleID = %q, want backfilled rule ID", res.RuleID)
	}
	if res.Org != "acme" {
		t.Errorf("Org = %q, want backfilled org", res.Org)
	}
}

func TestReport_IsCompliant(t *testing.T) {
	compliant := engine.Report{Results: []rules.Result{
		{Status: rules.StatusPass},
		{Status: rules.StatusPass},
	}}
	if !compliant.IsCompliant() {
		t.Error("all-pass report must be compliant")
	}

	violated := engine.Report{Results: []rules.Result{
		{Status: rules.StatusPass},
		{Status: rules.StatusViolation},
	}}
	if violated.IsCompliant() {
		t.Error("report with a violation must not be compliant")
	}
}
