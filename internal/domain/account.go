package domain

import (
	"fmt"
	"strings"
)

// Role enumerates account roles.
type Role string

const (
	RoleOutlet Role = "OUTLET"
	RoleAdmin  Role = "ADMIN"
)

// ParseRole normalizes a role string. PELAPOR is the legacy name for outlets.
func ParseRole(raw string) (Role, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "OUTLET", "PELAPOR":
		return RoleOutlet, nil
	case "ADMIN":
		return RoleAdmin, nil
	default:
		return "", fmt.Errorf("unknown role %q", raw)
	}
}

// Account is an outlet or admin login. Accounts are provisioned outside the
// request surface and only read by it.
type Account struct {
	ID       string
	Role     Role
	Password string
	Email    string
}

// DeliverableEmail returns the trimmed email when it looks like an address.
func (a Account) DeliverableEmail() (string, bool) {
	email := strings.TrimSpace(a.Email)
	if email == "" || !strings.Contains(email, "@") {
		return "", false
	}
	return email, true
}

// SameID compares account identifiers the way outlet names are matched
// against ticket reporters: trimmed and case-insensitive.
func SameID(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
