package models

import "time"

// Role is the authorization role of a principal.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// Home is the landing page of a verified principal with this role.
func (r Role) Home() string {
	if r == RoleAdmin {
		return "/admin"
	}
	return "/dashboard"
}

// User is a registered principal. OTP is empty and OTPExp is zero when no
// code is outstanding; PublicID is empty until assigned.
type User struct {
	ID           int64
	PublicID     string
	Email        string
	UserName     string
	PasswordHash string
	Role         Role
	IsVerified   bool
	OTP          string
	OTPExp       time.Time
	IsDeleted    bool
	IsBanned     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Subject is the token subject of u: the public id once assigned and the
// numeric id before that.
func (u *User) Subject() string {
	if u.PublicID != "" {
		return u.PublicID
	}
	return formatID(u.ID)
}
