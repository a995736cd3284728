package domain

// Roles carried in the JWT "role" claim.
const (
	RoleAdmin   = "admin"
	RoleUser    = "user"
	RoleService = "service"
)
