package server

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/conversagent/core/ai/errs"
)

// JWTAuthenticator implements BearerAuthenticator by verifying an
// HS256-signed token and reading the actor id from its "sub" claim.
// This is the one concrete credential-verification path this module
// ships; deployments fronting it with a different scheme (OAuth
// session, API gateway) supply their own BearerAuthenticator instead.
type JWTAuthenticator struct {
	secret []byte
}

func NewJWTAuthenticator(secret string) *JWTAuthenticator {
	return &JWTAuthenticator{secret: []byte(secret)}
}

func (a *JWTAuthenticator) Authenticate(token string) (string, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errs.NotAuthenticated("unexpected signing method")
		}
		return a.secret, nil
	})
	if err != nil || !parsed.Valid {
		return "", errs.NotAuthenticated("token validation failed")
	}
	sub, err := parsed.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", errs.NotAuthenticated("token missing subject claim")
	}
	return sub, nil
}

var _ BearerAuthenticator = (*JWTAuthenticator)(nil)
