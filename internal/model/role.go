package model

// Roles carried in the access token "role" claim.
const (
	RoleAdmin      = "ADMIN"
	RoleContractor = "CONTRACTOR"
)
