package authority

import "strings"

const (
	RoleAdmin    = "admin"
	RoleHr       = "hr"
	RolePm       = "pm"
	RoleEmployee = "employee"

	// PermResetSecret is the only perm carried by a session issued from a verified reset code
	PermResetSecret = "reset-secret"
)

type Permissions []string

func (c Permissions) HasRole(role string) bool {
	for _, v := range c {
		if strings.EqualFold(v, role) {
			return true
		}
	}
	return false
}

func (c Permissions) HasAnyRole(roles ...string) bool {
	for _, role := range roles {
		if c.HasRole(role) {
			return true
		}
	}
	return false
}

// HasGlobalViewRole admin and hr can view records of every project
func (c Permissions) HasGlobalViewRole() bool {
	return c.HasRole(RoleAdmin) || c.HasRole(RoleHr)
}
