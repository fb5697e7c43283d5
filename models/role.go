package models

// Role is the view class a session is granted.
type Role string

const (
	RoleAnonymous Role = "anonymous"
	RoleCustomer  Role = "customer"
	RoleProvider  Role = "provider"
)
