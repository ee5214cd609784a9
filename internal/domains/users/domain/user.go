package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Role grants a class of workflow actions.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleStaff    Role = "staff"
	RoleApprover Role = "approver"
	RoleAdmin    Role = "admin"
)

var (
	ErrEmptyID      = errors.New("user id is required")
	ErrEmptyName    = errors.New("display name is required")
	ErrInvalidEmail = errors.New("email must contain '@'")
	ErrUnknownRole  = errors.New("role is invalid")
)

// ParseRole accepts only known roles.
func ParseRole(raw string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(raw))); r {
	case RoleCustomer, RoleStaff, RoleApprover, RoleAdmin:
		return r, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, raw)
	}
}

// User is an identity known to the directory. Workflows only reference users by id.
type User struct {
	ID          string
	DisplayName string
	Email       string
	Roles       []Role
	Active      bool
}

// NewUser builds an active user ensuring required invariants.
func NewUser(id, displayName string, roles ...Role) (*User, error) {
	user := &User{
		ID:          strings.TrimSpace(id),
		DisplayName: strings.TrimSpace(displayName),
		Roles:       append([]Role(nil), roles...),
		Active:      true,
	}
	if err := user.Validate(); err != nil {
		return nil, err
	}
	return user, nil
}

// SetEmail validates and stores an optional contact address.
func (u *User) SetEmail(email string) error {
	email = strings.TrimSpace(email)
	if email != "" && !strings.Contains(email, "@") {
		return ErrInvalidEmail
	}
	u.Email = email
	return nil
}

// HasRole reports whether the user holds role.
func (u *User) HasRole(role Role) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Validate re-applies core invariants for persistence.
func (u *User) Validate() error {
	if strings.TrimSpace(u.ID) == "" {
		return ErrEmptyID
	}
	if strings.TrimSpace(u.DisplayName) == "" {
		return ErrEmptyName
	}
	if err := u.SetEmail(u.Email); err != nil {
		return err
	}
	for _, r := range u.Roles {
		if _, err := ParseRole(string(r)); err != nil {
			return err
		}
	}
	return nil
}

// Clone returns a deep copy.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	clone := *u
	clone.Roles = append([]Role(nil), u.Roles...)
	return &clone
}
