package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccountKind distinguishes the two account collections that can log in.
type AccountKind string

const (
	KindUser  AccountKind = "user"
	KindBrand AccountKind = "brand"
)

// Claims defines the structure of the JWT claims.
type Claims struct {
	AccountID string      `json:"account_id"`
	Kind      AccountKind `json:"kind"`
	Email     string      `json:"email"`
	IsAdmin   bool        `json:"is_admin"`
	jwt.RegisteredClaims
}

// GenerateJWT creates a signed HS256 token for an account.
func GenerateJWT(accountID string, kind AccountKind, email string, isAdmin bool, secretKey string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		AccountID: accountID,
		Kind:      kind,
		Email:     email,
		IsAdmin:   isAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   accountID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(secretKey))
	if err != nil {
		return "", fmt.Errorf("failed to sign JWT: %w", err)
	}
	return tokenString, nil
}

// ValidateJWT verifies a JWT string and returns the claims if valid.
func ValidateJWT(tokenString string, secretKey string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secretKey), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse JWT: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid JWT")
	}
	if claims.AccountID == "" {
		return nil, fmt.Errorf("JWT has no account id")
	}
	return claims, nil
}
