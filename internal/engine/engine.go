package engine

import (
	"ghauditor/internal/rules"
	"ghauditor/internal/snapshot"

	"golang.org/x/sync/errgroup"
)

// Run evaluates every rule exactly once against the snapshot and collects
// the verdicts into a Report.
//
// Guarantees:
//   - Results appear in the order the rules were supplied, regardless of
//     evaluation concurrency.
//   - The snapshot is shared read-only across evaluations and is never
//     mutated; Run performs no I/O and has no observable side effects.
//   - Run cannot fail: rule evaluation is total, and an empty rule set
//     yields an empty (compliant-by-definition) report.
//
// Rules are mutually independent, so they are evaluated concurrently by a
// worker pool bounded by the rule count, then reassembled in supply order.
func Run(snap snapshot.Snapshot, ruleSet []rules.Rule) Report {
	report := Report{Org: snap.Org}
	if len(ruleSet) == 0 {
		return report
	}

	results := make([]rules.Result, len(ruleSet))

	var g errgroup.Group
	g.SetLimit(len(ruleSet))
	for i, r := range ruleSet {
		g.Go(func() error {
			res := r.Evaluate(snap)

			// Backfill identifiers so output stays consistent and well-formed.
			// Rules care about PASS/VIOLATION + message/evidence; the engine
			// already knows the org and rule ID, so stamp them here.
			if res.RuleID == "" {
				res.RuleID = r.ID()
			}
			if res.Org == "" {
				res.Org = snap.Org
			}

			results[i] = res
			return nil
		})
	}
	// Rule evaluation never returns an error; Wait only synchronizes the pool.
	_ = g.Wait()

	report.Results = results
	return report
}
