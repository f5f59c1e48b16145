// Command devtoken prints an access token for a user id, signed with the
// configured JWT settings, for calling the API locally.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/arklim/account-service/internal/infra/config"
	"github.com/arklim/account-service/internal/infra/security"
)

func main() {
	userID := flag.String("user", "", "user id placed in the token subject")
	ttl := flag.Duration("ttl", 0, "token lifetime, defaults to jwt.dev_ttl")
	flag.Parse()

	if *userID == "" {
		fmt.Fprintln(os.Stderr, "usage: devtoken -user <id> [-ttl 1h]")
		os.Exit(2)
	}

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if cfg.App.Env == "production" {
		log.Fatal("devtoken refuses to run with app.env=production")
	}

	lifetime := *ttl
	if lifetime <= 0 {
		lifetime = cfg.JWT.DevTTL
	}
	if lifetime <= 0 {
		lifetime = time.Hour
	}

	tokens, err := security.NewTokenManager(cfg.JWT.SigningKey, cfg.JWT.Issuer, cfg.JWT.Audience)
	if err != nil {
		log.Fatalf("failed to init token manager: %v", err)
	}

	token, err := tokens.Issue(*userID, lifetime)
	if err != nil {
		log.Fatalf("failed to issue token: %v", err)
	}
	fmt.Println(token)
}
