package jwt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"delivery-realtime/internal/domain/user"
	"delivery-realtime/internal/ports"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

var (
	ErrEmptySecret   = errors.New("jwt: empty secret key")
	ErrNoEntity      = errors.New("jwt: entity id required")
	ErrNoToken       = errors.New("missing or malformed Authorization")
	ErrRoleForbidden = errors.New("role not allowed")
	ErrInvalidToken  = errors.New("invalid token")
)

// DefaultLeeway is the clock skew tolerated on exp, nbf and iat.
const DefaultLeeway = 30 * time.Second

// Manager signs and verifies the HS256 access tokens shared by the delivery
// services. It also serves as the handshake authenticator of the driver socket.
type Manager struct {
	secret []byte
	ttl    time.Duration
	issuer string
	leeway time.Duration
	parser *jwtlib.Parser
}

var _ ports.TokenAuthenticator = (*Manager)(nil)

// Option tunes a Manager.
type Option func(*Manager)

// WithIssuer stamps issued tokens with iss and rejects tokens carrying any
// other issuer. Without it the iss claim is ignored.
func WithIssuer(iss string) Option {
	return func(m *Manager) { m.issuer = strings.TrimSpace(iss) }
}

// WithLeeway overrides DefaultLeeway.
func WithLeeway(d time.Duration) Option {
	return func(m *Manager) {
		if d >= 0 {
			m.leeway = d
		}
	}
}

// NewManager builds a manager whose tokens live for ttl.
func NewManager(secret string, ttl time.Duration, opts ...Option) (*Manager, error) {
	s := strings.TrimSpace(secret)
	if s == "" {
		return nil, ErrEmptySecret
	}

	m := &Manager{secret: []byte(s), ttl: ttl, leeway: DefaultLeeway}
	for _, opt := range opts {
		opt(m)
	}

	parserOpts := []jwtlib.ParserOption{
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
		jwtlib.WithLeeway(m.leeway),
		jwtlib.WithExpirationRequired(),
		jwtlib.WithIssuedAt(),
	}
	if m.issuer != "" {
		parserOpts = append(parserOpts, jwtlib.WithIssuer(m.issuer))
	}
	m.parser = jwtlib.NewParser(parserOpts...)
	return m, nil
}

// Issue signs an access token naming entityID in both sub and id.
func (m *Manager) Issue(entityID string, role user.Role) (string, *Claims, error) {
	entityID = strings.TrimSpace(entityID)
	if entityID == "" {
		return "", nil, ErrNoEntity
	}
	if !role.Valid() {
		return "", nil, fmt.Errorf("invalid role: %s", role)
	}

	claims := NewUserClaims(entityID, role, m.ttl)
	claims.Issuer = m.issuer
	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

// Verify checks the signature and registered claims, then requires a known
// role and a non-empty entity. Failures other than ErrNoToken wrap
// ErrInvalidToken.
func (m *Manager) Verify(raw string) (*Claims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrNoToken
	}

	claims := &Claims{}
	if _, err := m.parser.ParseWithClaims(raw, claims, m.key); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	role, err := user.ParseRole(claims.Role.String())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	claims.Role = role

	if claims.Entity() == "" {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, ErrNoEntity)
	}
	return claims, nil
}

// AuthenticateToken is Verify for the socket handshake. Any failure wraps
// ports.ErrUnauthorized.
func (m *Manager) AuthenticateToken(raw string) (ports.Identity, error) {
	claims, err := m.Verify(raw)
	if err != nil {
		return ports.Identity{}, fmt.Errorf("%w: %w", ports.ErrUnauthorized, err)
	}
	return ports.Identity{Role: claims.Role, EntityID: claims.Entity()}, nil
}

func (m *Manager) key(*jwtlib.Token) (any, error) {
	return m.secret, nil
}
