package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/eleven-am/vlm-docking/internal/auth"
)

func main() {
	operatorID := flag.String("id", "admin", "operator id (token subject)")
	role := flag.String("role", string(auth.RoleOperator), "viewer or operator")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	key := os.Getenv("HMAC_KEY")
	if key == "" {
		key = "change-me-in-production"
	}

	r := auth.Role(*role)
	if r != auth.RoleViewer && r != auth.RoleOperator {
		fmt.Fprintf(os.Stderr, "Unknown role %q\n", *role)
		os.Exit(1)
	}

	token, err := auth.NewJWTValidator(key).Issue(*operatorID, r, *ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to sign token: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Token for %s (%s), valid %s:\n", *operatorID, r, *ttl)
	fmt.Println("")
	fmt.Println(token)
	fmt.Println("")
	fmt.Println("Use this token in the Authorization header:")
	fmt.Printf("  Authorization: Bearer %s\n", token)
}
