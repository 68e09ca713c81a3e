package models

import "strings"

// RoleClient is the default role assigned when the account service does not
// report one.
const RoleClient = "client"

// User models an authenticated MovieBuzz account.
type User struct {
	ID         string `json:"id"`
	UserName   string `json:"userName"`
	Email      string `json:"email"`
	PersonName string `json:"personName"`
	Role       string `json:"role,omitempty"`
}

// IsAdmin reports whether the user may view other users' watchlists.
func (u User) IsAdmin() bool {
	return strings.EqualFold(u.Role, "admin")
}

// Session pairs an authenticated user with the bearer credential proving it.
// A session lives only as long as the credential validates against the
// account service.
type Session struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}
