package model

import "strings"

// Role is the closed set of roles the user directory can resolve a username
// to. Escalation handling dispatches on it.
type Role string

const (
	RoleUser           Role = "USER"
	RoleSupervisor     Role = "SUPERVISOR"
	RoleDepartmentHead Role = "DEPARTMENT_HEAD"
	RoleBenco          Role = "BENCO"
)

// ParseRole normalizes a wire-level role string. Unknown values map to
// RoleUser so an escalated notice falls back to the supervisor path.
func ParseRole(value string) Role {
	switch Role(strings.ToUpper(strings.TrimSpace(value))) {
	case RoleSupervisor:
		return RoleSupervisor
	case RoleDepartmentHead:
		return RoleDepartmentHead
	case RoleBenco:
		return RoleBenco
	default:
		return RoleUser
	}
}

// Approver identifies who approves next: a username and the role it
// currently holds in the directory.
type Approver struct {
	Username string `json:"username"`
	Role     Role   `json:"role"`
}
