package domain

import "time"

// User represents an account row together with its lazily loaded collections.
// The collection fields are populated by the identity stores on first access
// and live only as long as this value; a fresh lookup of the same account
// returns a new value with empty caches.
type User struct {
	ID                   string
	UserName             string
	NormalizedUserName   string
	Email                string
	NormalizedEmail      string
	EmailConfirmed       bool
	PasswordHash         string
	SecurityStamp        string
	ConcurrencyStamp     string
	PhoneNumber          string
	PhoneNumberConfirmed bool
	TwoFactorEnabled     bool
	LockoutEnd           *time.Time
	LockoutEnabled       bool
	AccessFailedCount    int
	Picture              string

	// nil means not yet loaded; a loaded-but-empty collection is a
	// non-nil empty slice so the stores can tell the two states apart.
	Claims []Claim
	Logins []Login
	Roles  []UserRole
	Tokens []Token
}

// Role is a named grant with its own lazily loaded claim collection.
type Role struct {
	ID             string
	Name           string
	NormalizedName string

	Claims []Claim
}

// Claim is a (type, value) attribute attached to a user or role.
type Claim struct {
	Type  string
	Value string
}

// Login links a local account to one external provider identity.
// (LoginProvider, ProviderKey) is globally unique.
type Login struct {
	LoginProvider       string
	ProviderKey         string
	ProviderDisplayName string
	UserID              string
}

// Token is an opaque named value scoped to (UserID, LoginProvider, Name).
type Token struct {
	UserID        string
	LoginProvider string
	Name          string
	Value         string
}

// UserRole is the membership edge between a user and a role.
type UserRole struct {
	UserID   string
	RoleID   string
	RoleName string
}
