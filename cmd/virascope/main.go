package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/cvclon3/virascope/internal/server"
	"github.com/cvclon3/virascope/pkg/cache"
	"github.com/cvclon3/virascope/pkg/keypool"
	"github.com/cvclon3/virascope/pkg/logging"
	"github.com/cvclon3/virascope/pkg/ratelimit"
	"github.com/cvclon3/virascope/pkg/search"
	"github.com/cvclon3/virascope/pkg/youtube"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := loadConfig()

	logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.LogLevel),
		Pretty: cfg.LogPretty,
	})

	ctx := context.Background()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisURL})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal().Err(err).Str("addr", cfg.RedisURL).Msg("failed to connect to Redis")
	}
	defer redisClient.Close()
	log.Info().Str("addr", cfg.RedisURL).Msg("connected to Redis")

	pool, err := keypool.New(cfg.APIKeys)
	if err != nil {
		log.Fatal().Err(err).Msg("YOUTUBE_API_KEYS must contain at least one key")
	}

	limiter, err := ratelimit.NewLimiter(redisClient, ratelimit.Config{
		Limit:  cfg.RateLimitCount,
		Window: cfg.RateLimitWindow,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("invalid rate limit configuration")
	}

	ytClient := youtube.New(youtube.Config{})

	searchCfg := search.DefaultConfig()
	searchCfg.MaxPages = cfg.MaxPages
	searchCfg.ChannelTTL = cfg.ChannelCacheTTL

	svc, err := search.NewService(pool, ytClient, searchCfg,
		search.WithChannelCache(cache.NewManager(redisClient, "channel:")),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create search service")
	}

	srv := server.New(server.Config{
		Addr:           ":" + cfg.Port,
		AllowedOrigins: cfg.AllowedOrigins,
		RateLimiter:    limiter,
		Search:         svc,
		Keys:           pool,
	})

	shutdownCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		log.Fatal().Err(err).Msg("server failed")
	case <-shutdownCtx.Done():
	}

	drainCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(drainCtx); err != nil {
		log.Error().Err(err).Msg("shutdown did not complete cleanly")
		os.Exit(1)
	}
	log.Info().Msg("server stopped")
}
