// Command authdemo runs a small standalone authentication server: the
// core mounted on Echo with the configured storage backend. It exists to
// try the module out; real deployments embed the library instead.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/pilab-dev/authcore"
	echoapi "github.com/pilab-dev/authcore/api/echo"
	"github.com/pilab-dev/authcore/config"
	"github.com/pilab-dev/authcore/domain"
	applog "github.com/pilab-dev/authcore/log"
	"github.com/pilab-dev/authcore/memadapter"
	"github.com/pilab-dev/authcore/mongodb"
	"github.com/pilab-dev/authcore/providers"
	"github.com/pilab-dev/authcore/redisadapter"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("loading configuration")
	}
	applog.Setup(cfg.LogLevel, cfg.LogPretty)
	logger := applog.NewZerologAdapter(cfg.LogLevel, cfg.LogPretty).
		With(map[string]any{"service": "authdemo"})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	adapter, cleanup, err := buildAdapter(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("storage", cfg.Storage).Msg("initializing storage")
	}
	defer cleanup()

	providerSet, err := buildProviders(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("configuring providers")
	}
	if len(providerSet) == 0 {
		log.Fatal().Msg("no providers configured; set GOOGLE_CLIENT_ID etc")
	}

	auth, err := authcore.New(authcore.Options{
		BaseURL:            cfg.BaseURL,
		DefaultRedirectURL: cfg.DefaultRedirectURL,
		Providers:          providerSet,
		Adapter:            adapter,
		Session: authcore.SessionOptions{
			Strategy: cfg.SessionStrategy,
			MaxAge:   time.Duration(cfg.SessionMaxAgeMin) * time.Minute,
			Secret:   []byte(cfg.JWTSecretKey),
		},
	})
	if err != nil {
		log.Fatal().Err(err).Msg("building auth core")
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	echoapi.NewAPI(auth).RegisterRoutes(e, "/auth")

	go func() {
		addr := ":" + cfg.HTTPPort
		logger.Info(ctx, "starting HTTP server", map[string]any{"addr": addr})
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	<-ctx.Done()
	logger.Info(ctx, "shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error(shutdownCtx, "shutting down HTTP server", err)
	}
}

func buildAdapter(ctx context.Context, cfg *config.ServerConfig) (domain.Adapter, func(), error) {
	switch cfg.Storage {
	case "mongodb":
		db, err := mongodb.Connect(ctx, cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			return nil, nil, err
		}
		adapter, err := mongodb.NewAdapter(ctx, db)
		if err != nil {
			mongodb.Disconnect(ctx, db)
			return nil, nil, err
		}
		return adapter, func() { mongodb.Disconnect(context.Background(), db) }, nil
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, nil, err
		}
		return redisadapter.New(client, ""), func() { _ = client.Close() }, nil
	default:
		adapter := memadapter.New()
		return adapter, func() { _ = adapter.Close() }, nil
	}
}

func buildProviders(cfg *config.ServerConfig) ([]providers.Provider, error) {
	var set []providers.Provider

	if cfg.Google.ClientID != "" {
		p, err := providers.NewGoogle(providers.GoogleConfig{
			ClientID:     cfg.Google.ClientID,
			ClientSecret: cfg.Google.ClientSecret,
		})
		if err != nil {
			return nil, err
		}
		set = append(set, p)
	}
	if cfg.GitHub.ClientID != "" {
		p, err := providers.NewGitHub(providers.GitHubConfig{
			ClientID:     cfg.GitHub.ClientID,
			ClientSecret: cfg.GitHub.ClientSecret,
		})
		if err != nil {
			return nil, err
		}
		set = append(set, p)
	}
	if cfg.Discord.ClientID != "" {
		p, err := providers.NewDiscord(providers.DiscordConfig{
			ClientID:     cfg.Discord.ClientID,
			ClientSecret: cfg.Discord.ClientSecret,
		})
		if err != nil {
			return nil, err
		}
		set = append(set, p)
	}
	return set, nil
}
