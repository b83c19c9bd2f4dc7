// Command token issues a bearer token for local testing.
//
//	go run ./cmd/token -user <uuid> -role faculty
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"docverify/internal/config"
	"docverify/internal/domain"
	jwtsvc "docverify/internal/pkg/jwt"
)

func main() {
	userID := flag.String("user", "", "user id placed in the token")
	role := flag.String("role", string(domain.RoleStudent), "student, faculty or admin")
	ttl := flag.Duration("ttl", 0, "token lifetime, defaults to JWT_TTL")
	flag.Parse()

	if *userID == "" {
		flag.Usage()
		os.Exit(2)
	}
	switch domain.Role(*role) {
	case domain.RoleStudent, domain.RoleFaculty, domain.RoleAdmin:
	default:
		log.Fatalf("unknown role %q", *role)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.IsProd() {
		log.Fatal("refusing to issue tokens in a production environment")
	}

	lifetime := cfg.JWTTTL
	if *ttl > 0 {
		lifetime = *ttl
	}

	tok, err := jwtsvc.New(cfg.JWTSecret, lifetime).GenerateToken(*userID, *role)
	if err != nil {
		log.Fatalf("sign token: %v", err)
	}
	fmt.Println(tok)
}
