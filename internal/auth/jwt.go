// Package auth verifies bearer tokens issued by the identity service
package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"novelhub/pkg/models"
)

// Authenticator resolves a bearer token to the caller's identity
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.Identity, error)
}

// JWT claims structure shared with the identity service
type jwtClaims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// JWTAuthenticator validates HS256 tokens against a shared secret
type JWTAuthenticator struct {
	secret []byte
	issuer string
}

// NewJWTAuthenticator creates an authenticator; an empty issuer skips the issuer check
func NewJWTAuthenticator(secret, issuer string) *JWTAuthenticator {
	return &JWTAuthenticator{secret: []byte(secret), issuer: issuer}
}

// Authenticate verifies a JWT token and returns the identity it carries
func (a *JWTAuthenticator) Authenticate(ctx context.Context, tokenString string) (*models.Identity, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwtClaims{}, func(token *jwt.Token) (interface{}, error) {
		// Verify signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return nil, models.ErrInvalidToken
	}

	claims, ok := token.Claims.(*jwtClaims)
	if !ok || !token.Valid {
		return nil, models.ErrInvalidToken
	}
	if a.issuer != "" && !claims.VerifyIssuer(a.issuer, true) {
		return nil, models.ErrInvalidToken
	}
	if claims.UserID == "" {
		return nil, models.ErrInvalidToken
	}

	role := models.UserRole(claims.Role)
	if !role.Valid() {
		role = models.UserRoleUser
	}
	return &models.Identity{UserID: claims.UserID, Role: role}, nil
}

// IssueToken signs a token for id. The identity service owns issuance in
// production; this serves local runs and tests.
func (a *JWTAuthenticator) IssueToken(id models.Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &jwtClaims{
		UserID: id.UserID,
		Role:   string(id.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    a.issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}
