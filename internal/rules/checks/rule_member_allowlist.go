package checks

import (
	"ghauditor/internal/rules"
	"ghauditor/internal/snapshot"
)

type MemberAllowlistRule struct {
	allowed []string
}

func (r *MemberAllowlistRule) ID() string {
	return "member-allowlist"
}

func (r *MemberAllowlistRule) Title() string {
	return "Members Match The Configured Allowlist"
}

func (r *MemberAllowlistRule) Description() string {
	return "Compares the organisation's full member roster against a configured allowlist.\n\n" +
		"The rule fails if a member exists that is not on the list, or a listed account is not a " +
		"member. Evidence entries are prefixed unexpected: or missing:. When no allowlist is " +
		"configured the rule passes."
}

func (r *MemberAllowlistRule) Options() []rules.Option {
	return []rules.Option{
		{
			Name:        "allowed.logins",
			Description: "Comma-separated list of logins expected to be members of the organisation.",
		},
	}
}

func (r *MemberAllowlistRule) Configure(opts map[string]string) error {
	if val, ok := opts["allowed.logins"]; ok {
		r.allowed = parseLoginList(val)
	}
	return nil
}

func (r *MemberAllowlistRule) Evaluate(snap snapshot.Snapshot) rules.Result {
	if len(r.allowed) == 0 {
		return rules.PassResultWithMessage(r.ID(), "No member allowlist configured")
	}

	observed := make([]string, 0, len(snap.Members))
	for _, m := range snap.Members {
		observed = append(observed, m.Login)
	}

	evidence := diffRoster(observed, r.allowed)
	if len(evidence) == 0 {
		return rules.PassResult(r.ID())
	}
	return rules.ViolationResult(
		r.ID(),
		"Members do not match the configured allowlist",
		evidence,
		"Review the member roster and align it with the expected allowlist",
	)
}

func init() {
	rules.Register(&MemberAllowlistRule{})
}
