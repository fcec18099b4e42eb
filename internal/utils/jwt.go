package utils

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var jwtSecret []byte

// InitJWT sets the signing secret. Called once at startup before any
// token is issued or validated.
func InitJWT(secret string) {
	jwtSecret = []byte(secret)
}

// Claims carries the authenticated identity and its tenant.
type Claims struct {
	Identity       string `json:"identity"`
	OrganizationID *int64 `json:"organizationId,omitempty"`
	jwt.RegisteredClaims
}

// GenerateToken issues a signed token for an identity, valid for 24 hours.
func GenerateToken(identity string, organizationID *int64) (string, error) {
	claims := &Claims{
		Identity:       strings.ToLower(strings.TrimSpace(identity)),
		OrganizationID: organizationID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret)
}

// ValidateToken parses and verifies a token, returning its claims.
func ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return jwtSecret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrSignatureInvalid
	}
	return claims, nil
}
