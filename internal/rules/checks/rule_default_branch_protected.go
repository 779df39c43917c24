package checks

import (
	"ghauditor/internal/rules"
	"ghauditor/internal/snapshot"
)

type DefaultBranchProtectedRule struct{}

func (r *DefaultBranchProtectedRule) ID() string {
	return "default-branch-protected"
}

func (r *DefaultBranchProtectedRule) Title() string {
	return "Default Branches Are Protected"
}

func (r *DefaultBranchProtectedRule) Description() string {
	return "Verifies that every repository's default branch has branch protection configured.\n\n" +
		"An unprotected default branch accepts direct pushes and force pushes from anyone with write " +
		"access. The rule fails if any repository's default branch is unprotected; evidence lists the " +
		"offending repository names in input order. An organisation with no repositories passes vacuously."
}

func (r *DefaultBranchProtectedRule) Evaluate(snap snapshot.Snapshot) rules.Result {
	var offending []string
	for _, repo := range snap.Repositories {
		if !repo.DefaultBranchProtected {
			offending = append(offending, repo.Name)
		}
	}

	if len(offending) == 0 {
		return rules.PassResult(r.ID())
	}
	return rules.ViolationResult(
		r.ID(),
		"Repositories have unprotected default branches",
		offending,
		"Protect default branches and require pull-request based merges",
	)
}

func init() {
	rules.Register(&DefaultBranchProtectedRule{})
}
