package entity

// Role selects which profile collection a registration lands in.
type Role string

const (
	RoleLearner Role = "learner"
	RoleProctor Role = "proctor"
)

// Roles lists every recognised role.
var Roles = []Role{RoleLearner, RoleProctor}

// ParseRole returns the Role for s, or false when s is not a recognised role.
func ParseRole(s string) (Role, bool) {
	for _, r := range Roles {
		if string(r) == s {
			return r, true
		}
	}
	return "", false
}
