package domain

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// DefaultRoles are granted to accounts created without explicit roles.
func DefaultRoles() []string {
	return []string{RoleUser}
}
