// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

// Role is the closed set of admin roles. Authorization is decided by
// comparing role levels, never by ad-hoc string equality.
type Role string

const (
	RoleViewer     Role = "viewer"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleViewer, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// Level returns the rank of a role. Unknown roles rank below viewer.
func (r Role) Level() int {
	switch r {
	case RoleSuperAdmin:
		return 3
	case RoleAdmin:
		return 2
	case RoleViewer:
		return 1
	}
	return 0
}

// AtLeast reports whether r grants everything required does.
func (r Role) AtLeast(required Role) bool {
	return r.Level() >= required.Level()
}
