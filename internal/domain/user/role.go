package user

import (
	"errors"
	"strings"
)

// Role is the role claim carried by access tokens.
type Role string

const (
	RoleCustomer       Role = "customer"
	RoleDeliveryDriver Role = "delivery_driver"
	RoleAdmin          Role = "admin"
	RoleService        Role = "service"
)

var ErrInvalidRole = errors.New("invalid role")

// ParseRole normalizes (lowercases+trims) and validates a role string.
func ParseRole(s string) (Role, error) {
	role := Role(strings.ToLower(strings.TrimSpace(s)))
	if role.Valid() {
		return role, nil
	}
	return "", ErrInvalidRole
}

// Valid reports whether role is one of the allowed role constants.
func (role Role) Valid() bool {
	switch role {
	case RoleCustomer, RoleDeliveryDriver, RoleAdmin, RoleService:
		return true
	default:
		return false
	}
}

// String returns the string representation of the Role.
func (role Role) String() string {
	return string(role)
}

// Convenience helpers.
func (role Role) IsDriver() bool { return role == RoleDeliveryDriver }
func (role Role) IsAdmin() bool  { return role == RoleAdmin }
