package app

import (
	"context"
	"fmt"
	"time"

	"github.com/cliptube/backend/internal/auth"
	"github.com/cliptube/backend/internal/config"
	"github.com/cliptube/backend/internal/db"
	"github.com/cliptube/backend/internal/handlers"
	"github.com/cliptube/backend/internal/middleware"
	"github.com/cliptube/backend/internal/repositories"
	"github.com/cliptube/backend/internal/storage"
)

// buildDependencies wires together concrete implementations used by the HTTP handlers.
func buildDependencies(ctx context.Context, pool db.Pool, cfg config.Config) (handlers.Dependencies, error) {
	tokens := auth.NewTokenProvider(
		[]byte(cfg.AccessTokenSecret),
		[]byte(cfg.RefreshTokenSecret),
		cfg.AccessTokenTTL,
		cfg.RefreshTokenTTL,
	)
	sessions := auth.NewManager(tokens, repositories.NewPostgresCredentialRepository(pool))

	media, err := storage.NewS3Storage(ctx, cfg.ObjectStore)
	if err != nil {
		return handlers.Dependencies{}, fmt.Errorf("configure media storage: %w", err)
	}

	return handlers.Dependencies{
		Users:         repositories.NewPostgresUserRepository(pool),
		Sessions:      sessions,
		Access:        sessions,
		Subscriptions: repositories.NewPostgresSubscriptionRepository(pool),
		Videos:        repositories.NewPostgresVideoRepository(pool),
		Comments:      repositories.NewPostgresCommentRepository(pool),
		Media:         media,
		AuthLimiter:   middleware.NewIPRateLimiter(10, time.Minute, 5, 10*time.Minute),
	}, nil
}
