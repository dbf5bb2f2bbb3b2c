package model

import (
	"fmt"
	"strings"
	"time"
)

// Role is one of the closed set of capabilities a user may hold.  A
// user holds a set of roles; the attendee role is granted on
// registration and the organizer role after an admin approves an
// organizer request.
type Role string

const (
	RoleAttendee  Role = "attendee"
	RoleOrganizer Role = "organizer"
	RoleAdmin     Role = "admin"
)

// AllRoles lists every known role in a stable order.
var AllRoles = []Role{RoleAttendee, RoleOrganizer, RoleAdmin}

// ParseRole converts a string into a Role.  Matching is case
// insensitive so tokens and rows written in upper case still parse.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	switch r {
	case RoleAttendee, RoleOrganizer, RoleAdmin:
		return r, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// ParseRoles parses every entry in ss, skipping unknown names.
func ParseRoles(ss []string) []Role {
	out := make([]Role, 0, len(ss))
	for _, s := range ss {
		if r, err := ParseRole(s); err == nil {
			out = append(out, r)
		}
	}
	return out
}

// RoleStrings is the inverse of ParseRoles.
func RoleStrings(rs []Role) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = string(r)
	}
	return out
}

// User represents an application user record as stored in the
// `users` table.  Roles are stored one per row in `user_roles` and
// loaded alongside the user.
//
// Fields:
//  ID                 – primary key identifier of the user.
//  Name               – display name used in discussion threads.
//  Email              – unique email address.
//  PasswordHash       – bcrypt hashed password.
//  Roles              – set of roles held by the user.
//  OrganizerRequested – the user asked to become an organizer.
//  IsActive           – whether the account is active.
//  CreatedAt          – timestamp of creation.
//  UpdatedAt          – timestamp of last update.
type User struct {
	ID                 uint64    `json:"id"`                 // users.id
	Name               string    `json:"name"`               // users.name
	Email              string    `json:"email"`              // users.email
	PasswordHash       string    `json:"-"`                  // users.password_hash
	Roles              []Role    `json:"roles"`              // user_roles.role
	OrganizerRequested bool      `json:"organizerRequested"` // users.organizer_requested
	IsActive           bool      `json:"isActive"`           // users.is_active
	CreatedAt          time.Time `json:"createdAt"`          // users.created_at
	UpdatedAt          time.Time `json:"updatedAt"`          // users.updated_at
}

// HasRole reports whether r is among the user's roles.
func (u *User) HasRole(r Role) bool {
	if u == nil {
		return false
	}
	for _, have := range u.Roles {
		if have == r {
			return true
		}
	}
	return false
}

// RefreshToken models an entry in the `refresh_tokens` table.  Each
// refresh token belongs to a user and contains metadata for expiry
// and revocation.  The plain token is not stored; only its
// SHA-256 hash.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – owner of the token.
//  TokenHash – SHA-256 hex digest of the token value.
//  ExpiresAt – expiration timestamp of the token.
//  RevokedAt – when the token was revoked (null if still active).
//  CreatedAt – timestamp of creation.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}
