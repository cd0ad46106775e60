package auth

import (
	"github.com/gin-gonic/gin"
)

// Role はセッション解決時に一度だけ決まる
type Role int

const (
	RoleStudent Role = iota + 1
	RoleStaff
)

func (r Role) String() string {
	switch r {
	case RoleStudent:
		return "student"
	case RoleStaff:
		return "staff"
	default:
		return "unknown"
	}
}

// ParseRole accepts the login form's role field. Empty means "either".
func ParseRole(s string) (Role, bool) {
	switch s {
	case "student":
		return RoleStudent, true
	case "staff":
		return RoleStaff, true
	}
	return 0, false
}

func roleOf(a *Account) Role {
	if a.IsStaffMember {
		return RoleStaff
	}
	return RoleStudent
}

// Session is what every authenticated handler receives.
type Session struct {
	UserID   uint64
	Username string
	Role     Role
}

func (s Session) IsStaff() bool { return s.Role == RoleStaff }

const ctxSessionKey = "session"

func SetSession(c *gin.Context, s Session) { c.Set(ctxSessionKey, s) }

// SessionFrom は RequireAuth 配下でのみ ok=true
func SessionFrom(c *gin.Context) (Session, bool) {
	v, ok := c.Get(ctxSessionKey)
	if !ok {
		return Session{}, false
	}
	s, ok := v.(Session)
	return s, ok
}
