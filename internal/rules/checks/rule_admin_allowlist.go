package checks

import (
	"ghauditor/internal/rules"
	"ghauditor/internal/snapshot"
)

type AdminAllowlistRule struct {
	allowed []string
}

func (r *AdminAllowlistRule) ID() string {
	return "admin-allowlist"
}

func (r *AdminAllowlistRule) Title() string {
	return "Administrators Match The Configured Allowlist"
}

func (r *AdminAllowlistRule) Description() string {
	return "Compares the organisation's administrators and owners against a configured allowlist.\n\n" +
		"The rule fails if an administrative account exists that is not on the list, or a listed " +
		"account is not an administrator. Evidence entries are prefixed unexpected: or missing:. " +
		"When no allowlist is configured the rule passes."
}

func (r *AdminAllowlistRule) Options() []rules.Option {
	return []rules.Option{
		{
			Name:        "allowed.logins",
			Description: "Comma-separated list of logins expected to hold administrative access.",
		},
	}
}

func (r *AdminAllowlistRule) Configure(opts map[string]string) error {
	if val, ok := opts["allowed.logins"]; ok {
		r.allowed = parseLoginList(val)
	}
	return nil
}

func (r *AdminAllowlistRule) Evaluate(snap snapshot.Snapshot) rules.Result {
	if len(r.allowed) == 0 {
		return rules.PassResultWithMessage(r.ID(), "No administrator allowlist configured")
	}

	var observed []string
	for _, m := range snap.Members {
		if m.Role.IsAdministrative() {
			observed = append(observed, m.Login)
		}
	}

	evidence := diffRoster(observed, r.allowed)
	if len(evidence) == 0 {
		return rules.PassResult(r.ID())
	}
	return rules.ViolationResult(
		r.ID(),
		"Administrators do not match the configured allowlist",
		evidence,
		"Review the administrator roster and align it with the expected allowlist",
	)
}

func init() {
	rules.Register(&AdminAllowlistRule{})
}
