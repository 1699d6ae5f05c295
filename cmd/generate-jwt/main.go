package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// OwnerClaims represents the token claims for a study owner
type OwnerClaims struct {
	OwnerAddress string `json:"owner_address"`
	jwt.RegisteredClaims
}

func main() {
	owner := flag.String("owner", "", "study owner address")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		fmt.Println("JWT_SECRET environment variable is required")
		os.Exit(1)
	}
	if *owner == "" {
		fmt.Println("Usage: generate-jwt -owner 0x... [-ttl 24h]")
		os.Exit(1)
	}

	now := time.Now()
	claims := OwnerClaims{
		OwnerAddress: *owner,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(*ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    "zorp-backend",
			Subject:   *owner,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		fmt.Printf("Error generating token: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("============================================================")
	fmt.Println("JWT Token Generated")
	fmt.Println("============================================================")
	fmt.Println()
	fmt.Println("Token:")
	fmt.Println(tokenString)
	fmt.Println()
	fmt.Printf("  Owner Address: %s\n", *owner)
	fmt.Printf("  Expires: %s\n", claims.ExpiresAt.Time)
	fmt.Println()
	fmt.Printf("Usage: curl -H \"Authorization: Bearer %s\" ...\n", tokenString)
}
