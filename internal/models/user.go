package models

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleAdmin     UserRole = "ADMIN"
	RoleLecturer  UserRole = "LECTURER"
	RoleHOD       UserRole = "HOD"
	RoleAA        UserRole = "AA"
	RolePrincipal UserRole = "PRINCIPAL"
	RoleStudent   UserRole = "STUDENT"
)

// Valid reports whether the role belongs to the closed role set.
func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleLecturer, RoleHOD, RoleAA, RolePrincipal, RoleStudent:
		return true
	}
	return false
}

// Identity is the resolved caller passed explicitly into every workflow operation.
type Identity struct {
	UserID string   `json:"userId"`
	Role   UserRole `json:"role"`
}

// Is reports whether the identity carries the given role.
func (i Identity) Is(role UserRole) bool {
	return i.Role == role
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
