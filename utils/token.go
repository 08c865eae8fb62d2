package utils

import (
	"fmt"
	"os"
	"time"

	"github.com/dgrijalva/jwt-go"
)

// JwtCustomClaim is issued by the identity service; only parsed here.
type JwtCustomClaim struct {
	UserId   int    `json:"user_id"`
	UserName string `json:"user_name"`
	TenantId int    `json:"tenant_id"`
	Role     string `json:"role"`
	jwt.StandardClaims
}

func getJwtSecret() []byte {
	secret := os.Getenv("API_SECRET")
	if secret == "" {
		return []byte("lpg-distribution-secret")
	}
	return []byte(secret)
}

// JwtGenerate signs a token for the given identity. Used by tests and the seed tool.
func JwtGenerate(claim JwtCustomClaim, lifespan time.Duration) (string, error) {
	claim.StandardClaims = jwt.StandardClaims{
		ExpiresAt: time.Now().Add(lifespan).Unix(),
		IssuedAt:  time.Now().Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, &claim)
	return t.SignedString(getJwtSecret())
}

func JwtValidate(token string) (*jwt.Token, error) {
	return jwt.ParseWithClaims(token, &JwtCustomClaim{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("there's a problem with the signing method")
		}
		return getJwtSecret(), nil
	})
}
