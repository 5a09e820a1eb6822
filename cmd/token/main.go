// cmd/token/main.go

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"stagemap/internal/adapter/storage"
	"stagemap/internal/config"
	"stagemap/internal/logging"
	identityService "stagemap/internal/service/identity"
)

func main() {
	username := flag.String("username", "admin", "admin username to ensure")
	email := flag.String("email", "admin@stagemap.local", "email for a newly created admin")
	ttl := flag.Duration("ttl", 0, "token lifetime (defaults to IDENTITY_TOKEN_EXPIRY)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.Environment, "warn")
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := pgxpool.Connect(ctx, cfg.Database.ConnString())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := storage.EnsureSchema(ctx, db); err != nil {
		log.Fatalf("Failed to apply schema: %v", err)
	}

	expiry := cfg.Identity.TokenExpiry
	if *ttl > 0 {
		expiry = *ttl
	}

	users := identityService.NewUserService(
		storage.NewUserStore(db),
		storage.NewEventStore(db),
		identityService.NewJWTTokenManager(cfg.Identity.TokenSecret),
		logger,
		identityService.UserServiceConfig{TokenExpiry: expiry},
	)

	admin, err := users.EnsureAdmin(ctx, *username, *email)
	if err != nil {
		log.Fatalf("Failed to ensure admin %q: %v", *username, err)
	}

	token, err := users.IssueToken(ctx, admin.ID)
	if err != nil {
		log.Fatalf("Failed to issue token: %v", err)
	}

	fmt.Fprintf(os.Stderr, "Token for %s (%s), valid for %s:\n", admin.Username, admin.ID, expiry)
	fmt.Println(token)
}
