// Package auth issues and reads the JWTs reviewers authenticate with.
package auth

import (
	"sort"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/pkg/errors"

	"github.com/trezcool/backoffice/core"
	"github.com/trezcool/backoffice/core/admission"
)

// Roles
const (
	RoleReviewer = "reviewer"
	RoleAdmin    = "admin"
)

const audience = "BackOffice"

// SigningMethod is the algorithm tokens are signed with.
var SigningMethod = jwt.SigningMethodHS256

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	Name  string   `json:"name,omitempty"`
	Email string   `json:"email,omitempty"`
	Roles []string `json:"roles,omitempty"`
}

// NewClaims returns the claims of a reviewer token valid for conf.Server.JWTExpirationDelta.
func NewClaims(conf *core.Config, reviewer admission.Reviewer, roles ...string) *Claims {
	now := time.Now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   reviewer.ID,
			Audience:  audience,
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		Name:  reviewer.Name,
		Email: reviewer.Email,
		Roles: roles,
	}
}

// Reviewer is the identity carried by the claims.
func (c Claims) Reviewer() admission.Reviewer {
	return admission.Reviewer{ID: c.Subject, Name: c.Name, Email: c.Email}
}

// HasAnyRole reports whether the claims hold one of roles; admins hold every role.
func (c Claims) HasAnyRole(roles ...string) bool {
	if len(roles) == 0 {
		return true
	}
	owned := make([]string, len(c.Roles))
	copy(owned, c.Roles)
	sort.Strings(owned)
	has := func(role string) bool {
		i := sort.SearchStrings(owned, role)
		return i < len(owned) && owned[i] == role
	}
	if has(RoleAdmin) {
		return true
	}
	for _, role := range roles {
		if has(role) {
			return true
		}
	}
	return false
}

// GenerateToken generates a signed JWT token string representing the Claims.
func GenerateToken(claims *Claims, secretKey string) (string, error) {
	token := jwt.NewWithClaims(SigningMethod, claims)
	ss, err := token.SignedString([]byte(secretKey))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

// ParseToken verifies a token generated with GenerateToken.
func ParseToken(tokenStr, secretKey string) (*Claims, error) {
	claims := new(Claims)
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != SigningMethod.Alg() {
			return nil, errors.Errorf("unexpected signing method %s", token.Method.Alg())
		}
		return []byte(secretKey), nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "parsing token")
	}
	return claims, nil
}
