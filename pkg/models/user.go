package models

// UserRole represents valid user roles
type UserRole string

const (
	UserRoleUser      UserRole = "user"
	UserRoleModerator UserRole = "moderator"
	UserRoleAdmin     UserRole = "admin"
)

func (r UserRole) Valid() bool {
	switch r {
	case UserRoleUser, UserRoleModerator, UserRoleAdmin:
		return true
	}
	return false
}

// Identity is the authenticated caller as vouched for by the identity
// service. Users themselves are not stored here.
type Identity struct {
	UserID string   `json:"user_id"`
	Role   UserRole `json:"role"`
}

// HasRole checks if the caller has the required role (for middleware)
func (i *Identity) HasRole(requiredRole UserRole) bool {
	switch requiredRole {
	case UserRoleAdmin:
		return i.Role == UserRoleAdmin
	case UserRoleModerator:
		return i.Role == UserRoleModerator || i.Role == UserRoleAdmin
	default: // UserRoleUser
		return true
	}
}
