package domain

import "time"

// Role is the sole authorization axis for users.
type Role string

const (
	RoleEmployee Role = "employee"
	RoleManager  Role = "manager"
	RoleIT       Role = "it"
)

// ValidRole reports whether r is a known role.
func ValidRole(r Role) bool {
	switch r {
	case RoleEmployee, RoleManager, RoleIT:
		return true
	}
	return false
}

// User is the domain model for employees using the system.
type User struct {
	ID             string
	Username       string
	Email          string
	PasswordHash   string
	Role           Role
	FullName       string
	Designation    string
	PhoneExtension string
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// CanManageUsers reports whether the user may administer accounts.
func (u *User) CanManageUsers() bool {
	return u != nil && u.Role == RoleIT
}

// CanApproveRequests reports whether the user may approve or decline
// requisitions submitted by others.
func (u *User) CanApproveRequests() bool {
	return u != nil && (u.Role == RoleManager || u.Role == RoleIT)
}

// HasRole reports whether the user holds the given role.
func (u *User) HasRole(r Role) bool {
	return u != nil && u.Role == r
}

// HasAnyRole reports whether the user holds one of the given roles.
func (u *User) HasAnyRole(roles ...Role) bool {
	if u == nil {
		return false
	}
	for _, r := range roles {
		if u.Role == r {
			return true
		}
	}
	return false
}
