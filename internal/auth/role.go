package auth

// Role is the authorization level carried in a JWT's claims. The server
// has exactly one admin account, configured via RESEARCH_ADMIN_USER, so
// this package no longer depends on a user table the way the teacher's
// auth middleware depended on internal/user.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)
