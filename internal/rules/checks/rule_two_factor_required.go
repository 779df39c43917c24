package checks

import (
	"ghauditor/internal/rules"
	"ghauditor/internal/snapshot"
)

type TwoFactorRequiredRule struct{}

func (r *TwoFactorRequiredRule) ID() string {
	return "two-factor-required"
}

func (r *TwoFactorRequiredRule) Title() string {
	return "Two-Factor Authentication Is Required"
}

func (r *TwoFactorRequiredRule) Description() string {
	return "Verifies that the organisation requires two-factor authentication for all of its members.\n\n" +
		"Organisations without org-wide two-factor enforcement are one phished password away from a " +
		"member account takeover. The condition is organisation-wide, so a violation carries no " +
		"per-entity evidence."
}

func (r *TwoFactorRequiredRule) Evaluate(snap snapshot.Snapshot) rules.Result {
	if snap.RequiresTwoFactor {
		return rules.PassResult(r.ID())
	}
	return rules.ViolationResult(
		r.ID(),
		"Two-factor authentication is not required for members of the organisation",
		nil,
		"Enable two-factor authentication as a requirement for all members",
	)
}

func init() {
	rules.Register(&TwoFactorRequiredRule{})
}
