package checks

import (
	"ghauditor/internal/rules"
	"ghauditor/internal/snapshot"
)

type AdminSeparationRule struct{}

func (r *AdminSeparationRule) ID() string {
	return "admin-separation"
}

func (r *AdminSeparationRule) Title() string {
	return "Administrator Accounts Have No Push Activity"
}

func (r *AdminSeparationRule) Description() string {
	return "Verifies that administrator accounts are not used for day-to-day development.\n\n" +
		"Push activity on an administrative account is usually an indication that the account is " +
		"used for purposes other than administration, widening the blast radius if it is compromised. " +
		"The rule fails if any administrator or owner has recent push activity; evidence lists the " +
		"offending logins in member order. An organisation with no members passes vacuously."
}

func (r *AdminSeparationRule) Evaluate(snap snapshot.Snapshot) rules.Result {
	var offending []string
	for _, m := range snap.Members {
		if m.Role.IsAdministrative() && m.HasRecentPushActivity {
			offending = append(offending, m.Login)
		}
	}

	if len(offending) == 0 {
		return rules.PassResult(r.ID())
	}
	return rules.ViolationResult(
		r.ID(),
		"Administrators have recent push activity",
		offending,
		"Create separate accounts for administration access to the organisation",
	)
}

func init() {
	rules.Register(&AdminSeparationRule{})
}
