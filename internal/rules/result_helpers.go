package rules

func NewResult(ruleID string, status Status, message string) Result {
	res := Result{
		Status: status,
		RuleID: ruleID,
	}
	if message != "" {
		res.Message = message
	}
	return res
}

func PassResult(ruleID string) Result {
	return NewResult(ruleID, StatusPass, "")
}

func PassResultWithMessage(ruleID string, message string) Result {
	return NewResult(ruleID, StatusPass, message)
}

// ViolationResult builds a violation with its warning, supporting evidence,
// and remediation advice. Evidence may be empty for organisation-wide
// conditions that have no per-entity offenders.
func ViolationResult(ruleID string, message string, evidence []string, recommendation string) Result {
	res := NewResult(ruleID, StatusViolation, message)
	res.Evidence = evidence
	res.Recommendation = recommendation
	return res
}
