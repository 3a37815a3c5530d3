package services

import (
	"errors"
	"fmt"
	"time"

	"shuttle/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	RoleAdmin       = "admin"
	DefaultTokenTTL = 12 * time.Hour
)

// AdminAuth guards the admin surface with one shared secret, stored only as a bcrypt hash.
type AdminAuth struct {
	hash      []byte
	jwtSecret []byte
	TTL       time.Duration
	now       func() time.Time
}

// NewAdminAuth prefers an existing hash; a plain password is hashed once at start-up.
// With neither, every secret check fails.
func NewAdminAuth(password, passwordHash, jwtSecret string) (*AdminAuth, error) {
	a := &AdminAuth{jwtSecret: []byte(jwtSecret), TTL: DefaultTokenTTL, now: time.Now}
	switch {
	case passwordHash != "":
		if _, err := bcrypt.Cost([]byte(passwordHash)); err != nil {
			return nil, fmt.Errorf("invalid admin password hash: %w", err)
		}
		a.hash = []byte(passwordHash)
	case password != "":
		h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash admin password: %w", err)
		}
		a.hash = h
	}
	if len(a.jwtSecret) == 0 {
		return nil, errors.New("jwt secret is required")
	}
	return a, nil
}

// Configured reports whether an admin secret exists.
func (a *AdminAuth) Configured() bool {
	return len(a.hash) > 0
}

// CheckSecret returns AuthError on a wrong secret.
func (a *AdminAuth) CheckSecret(secret string) error {
	if !a.Configured() {
		return domain.AuthError{Msg: "admin access is not configured"}
	}
	if secret == "" || bcrypt.CompareHashAndPassword(a.hash, []byte(secret)) != nil {
		return domain.AuthError{Msg: "invalid admin password"}
	}
	return nil
}

// Login checks the secret and issues an HS256 token with role admin.
func (a *AdminAuth) Login(secret string) (string, time.Time, error) {
	if err := a.CheckSecret(secret); err != nil {
		return "", time.Time{}, err
	}
	exp := a.now().Add(a.TTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "admin",
		"role": RoleAdmin,
		"exp":  exp.Unix(),
		"iat":  a.now().Unix(),
	})
	signed, err := token.SignedString(a.jwtSecret)
	if err != nil {
		return "", time.Time{}, domain.InternalError{Msg: "failed to sign token", Err: err}
	}
	return signed, exp, nil
}

// ParseToken validates a token and returns its role.
func (a *AdminAuth) ParseToken(raw string) (string, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return a.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return "", domain.AuthError{Msg: "invalid or expired token"}
	}
	role, _ := claims["role"].(string)
	if role == "" {
		return "", domain.AuthError{Msg: "token without role"}
	}
	return role, nil
}
