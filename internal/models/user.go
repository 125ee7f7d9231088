package models

import "strings"

// Role identifies which side of the marketplace a user acts on.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleProvider Role = "provider"
)

// User is the canonical account record.
type User struct {
	UID          string   `json:"uid"`
	Name         string   `json:"name"`
	Email        string   `json:"email"`
	Role         Role     `json:"role"`
	PhoneNumber  string   `json:"phoneNumber,omitempty"`
	Rating       *float64 `json:"rating,omitempty"`
	TotalReviews *int     `json:"totalReviews,omitempty"`
}

// IsProvider reports whether the user accepts deliveries.
func (u User) IsProvider() bool {
	return strings.EqualFold(string(u.Role), string(RoleProvider))
}

// Session is the authenticated identity held by the client.
type Session struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

// IsAuthenticated is derived from the presence of a uid and a token.
func (s Session) IsAuthenticated() bool {
	return strings.TrimSpace(s.User.UID) != "" && strings.TrimSpace(s.Token) != ""
}
