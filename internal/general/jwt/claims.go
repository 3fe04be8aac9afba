package jwt

import (
	"slices"
	"strings"
	"time"

	"delivery-realtime/internal/domain/user"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// Claims defines our canonical JWT claims payload.
type Claims struct {
	Role     user.Role `json:"role"`         // role for RBAC (delivery_driver/customer/admin/service)
	EntityID string    `json:"id,omitempty"` // driver or user id when it differs from the subject (subject is often an email)
	jwtlib.RegisteredClaims
}

// ensure Claims implements jwtlib.Claims interface
var _ jwtlib.Claims = (*Claims)(nil)

// NewUserClaims constructs claims for an entity.
func NewUserClaims(entityID string, role user.Role, ttl time.Duration) *Claims {
	now := time.Now().UTC()
	return &Claims{
		Role:     role,
		EntityID: entityID,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   entityID,
			ExpiresAt: jwtlib.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwtlib.NewNumericDate(now),
		},
	}
}

// Entity returns the id claim, falling back to the subject.
func (c *Claims) Entity() string {
	if id := strings.TrimSpace(c.EntityID); id != "" {
		return id
	}
	return strings.TrimSpace(c.Subject)
}

// HasRole reports whether the role claim is one of allowed.
func (c *Claims) HasRole(allowed ...user.Role) bool {
	return slices.Contains(allowed, c.Role)
}
