package test

import (
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/tidepool-org/vitals/auth"
)

const TokenSecret = "test-token-secret"

// Token returns a session token for the user signed with TokenSecret
func Token(userId string, role auth.Role, expiry time.Duration) string {
	return SignedToken(TokenSecret, userId, role, expiry)
}

func SignedToken(secret string, userId string, role auth.Role, expiry time.Duration) string {
	claims := auth.Claims{
		UserId: userId,
		Email:  userId + "@example.com",
		Name:   "Test User",
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiry)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		panic(err)
	}
	return token
}
