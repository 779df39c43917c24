package snapshot

// Role is an organisation membership role.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// IsAdministrative reports whether the role grants organisation administration.
// GitHub's members API only distinguishes admin/member; owners surface as admin.
func (r Role) IsAdministrative() bool {
	return r == RoleOwner || r == RoleAdmin
}

// Member is one organisation member as observed at snapshot time.
type Member struct {
	Login string `json:"login"`
	Role  Role   `json:"role"`
	// HasRecentPushActivity is true when the member pushed commits within the
	// provider's activity window. Only populated for administrative accounts.
	HasRecentPushActivity bool `json:"has_recent_push_activity"`
}

// Repository is one organisation repository as observed at snapshot time.
type Repository struct {
	Name                   string `json:"name"`
	DefaultBranch          string `json:"default_branch"`
	DefaultBranchProtected bool   `json:"default_branch_protected"`
}

// Snapshot is a point-in-time read of organisation state. It is the sole
// input to rule evaluation and is never mutated after capture.
//
// Nil Members/Repositories are valid and mean the same as empty: absence of
// data is not evidence of a violation.
type Snapshot struct {
	Org               string       `json:"org"`
	RequiresTwoFactor bool         `json:"requires_two_factor"`
	Members           []Member     `json:"members"`
	Repositories      []Repository `json:"repositories"`
}
