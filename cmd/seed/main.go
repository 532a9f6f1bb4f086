package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"ocgamma/internal/auth"
	"ocgamma/internal/config"
	"ocgamma/internal/db"
	apperrors "ocgamma/internal/errors"
	"ocgamma/internal/logging"
	"ocgamma/internal/model"
	"ocgamma/internal/repository"
	"ocgamma/internal/service"
)

const defaultSeedSource = "seed/users.json"

// SeedUser is one demo account in the seed file.
type SeedUser struct {
	Email           string  `json:"email"`
	Username        string  `json:"username"`
	FullName        *string `json:"full_name"`
	Password        string  `json:"password"`
	ThemePreference string  `json:"theme_preference"`
}

func main() {
	cfg := config.Load()

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	source := defaultSeedSource
	if len(os.Args) > 1 {
		source = os.Args[1]
	} else if v := os.Getenv("SEED_USERS"); v != "" {
		source = v
	}

	gormDB, err := db.NewMySQL(cfg.MySQLDSN)
	if err != nil {
		logger.Fatal("connect to database", zap.Error(err))
	}
	if err := db.Migrate(gormDB, logger); err != nil {
		logger.Fatal("run migrations", zap.Error(err))
	}

	users, err := loadSeedUsers(source)
	if err != nil {
		logger.Fatal("load seed users", zap.String("source", source), zap.Error(err))
	}
	logger.Info("loaded seed users", zap.String("source", source), zap.Int("count", len(users)))

	repo := repository.NewUserRepository(gormDB)
	userService := service.NewUserService(repo)
	// Seeding never issues tokens; the JWT service only satisfies the constructor.
	authService := service.NewAuthService(repo, userService, auth.NewJWTService(cfg.JWTSecret, cfg.AccessTokenTTL), auth.NewTokenStore(nil))

	created, skipped, err := seedUsers(context.Background(), authService, userService, users, logger)
	if err != nil {
		logger.Fatal("seed users", zap.Error(err))
	}
	logger.Info("seed completed", zap.Int("created", created), zap.Int("skipped", skipped))
}

// loadSeedUsers reads the seed list from a local file or an http(s) URL.
func loadSeedUsers(source string) ([]SeedUser, error) {
	var body []byte
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		client := &http.Client{Timeout: 15 * time.Second}
		resp, err := client.Get(source)
		if err != nil {
			return nil, fmt.Errorf("fetch seed file: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("seed source returned status code: %d", resp.StatusCode)
		}
		if body, err = io.ReadAll(resp.Body); err != nil {
			return nil, fmt.Errorf("read seed body: %w", err)
		}
	} else {
		var err error
		if body, err = os.ReadFile(source); err != nil {
			return nil, fmt.Errorf("read seed file: %w", err)
		}
	}

	var users []SeedUser
	if err := json.Unmarshal(body, &users); err != nil {
		return nil, fmt.Errorf("parse seed JSON: %w", err)
	}
	return users, nil
}

// seedUsers registers every user that does not exist yet. Existing accounts are left untouched.
func seedUsers(ctx context.Context, auths service.AuthService, users service.UserService, seeds []SeedUser, logger *zap.Logger) (created, skipped int, err error) {
	for _, s := range seeds {
		user, err := auths.Register(ctx, service.RegisterInput{
			Email:    s.Email,
			Username: s.Username,
			FullName: s.FullName,
			Password: s.Password,
		})
		if errors.Is(err, apperrors.ErrEmailTaken) || errors.Is(err, apperrors.ErrUsernameTaken) {
			logger.Info("user exists, skipping", zap.String("username", s.Username))
			skipped++
			continue
		}
		if err != nil {
			return created, skipped, fmt.Errorf("register %s: %w", s.Username, err)
		}

		if pref := model.ThemePreference(s.ThemePreference); pref != "" && pref != user.ThemePreference {
			if _, err := users.UpdateTheme(ctx, user.ID, pref); err != nil {
				return created, skipped, fmt.Errorf("set theme for %s: %w", s.Username, err)
			}
		}
		created++
	}
	return created, skipped, nil
}
