// Package identity is the boundary to the external identity provider. The
// core only needs a verified user id and role; everything else about
// authentication lives outside this service.
package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type Role string

const (
	RoleDoctor  Role = "doctor"
	RolePatient Role = "patient"
)

// Caller is the authenticated identity attached to each request.
type Caller struct {
	UserID uuid.UUID
	Role   Role
}

var (
	ErrInvalidToken = errors.New("invalid identity token")
)

type claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Verifier checks HS256 tokens issued by the identity provider.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

func (v *Verifier) Verify(token string) (Caller, error) {
	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !parsed.Valid {
		return Caller{}, ErrInvalidToken
	}

	userID, err := uuid.Parse(c.Subject)
	if err != nil {
		return Caller{}, ErrInvalidToken
	}

	role := Role(c.Role)
	if role != RoleDoctor && role != RolePatient {
		return Caller{}, ErrInvalidToken
	}

	return Caller{UserID: userID, Role: role}, nil
}

// Issue mints a token for a user. Used by the seeder and by tests; the real
// identity provider issues production tokens.
func (v *Verifier) Issue(userID uuid.UUID, role Role, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	signed, err := token.SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
