// Command admintoken prints a bearer token for the admin catalog routes,
// signed with the configured JWT_SECRET.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"farmstand/internal/config"
	"farmstand/internal/logger"
	"farmstand/internal/middleware"

	"go.uber.org/zap"
)

func main() {
	userID := flag.String("user", "admin", "user id to put in the token")
	role := flag.String("role", middleware.RoleAdmin, "role claim")
	ttl := flag.Duration("ttl", 12*time.Hour, "token lifetime")
	flag.Parse()

	cfg := config.Load()
	log := logger.NewWithDefaults()
	defer log.Sync()

	if cfg.JWT.Secret == "" {
		log.Error("JWT_SECRET is not set")
		os.Exit(1)
	}

	token, err := middleware.IssueToken(cfg.JWT.Secret, *userID, *role, *ttl)
	if err != nil {
		log.Error("Failed to issue token", zap.Error(err))
		os.Exit(1)
	}

	log.Info("Issued token", zap.String("user_id", *userID), zap.String("role", *role), zap.Duration("ttl", *ttl))
	fmt.Println(token)
}
