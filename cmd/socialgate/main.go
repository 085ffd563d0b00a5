// Command socialgate runs the social login gateway.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/dropDatabas3/socialgate/internal/cache"
	cachemem "github.com/dropDatabas3/socialgate/internal/cache/memory"
	cacheredis "github.com/dropDatabas3/socialgate/internal/cache/redis"
	"github.com/dropDatabas3/socialgate/internal/config"
	"github.com/dropDatabas3/socialgate/internal/email"
	"github.com/dropDatabas3/socialgate/internal/http/controllers"
	"github.com/dropDatabas3/socialgate/internal/http/router"
	"github.com/dropDatabas3/socialgate/internal/http/services/session"
	"github.com/dropDatabas3/socialgate/internal/http/services/social"
	"github.com/dropDatabas3/socialgate/internal/metrics"
	"github.com/dropDatabas3/socialgate/internal/oauth/github"
	"github.com/dropDatabas3/socialgate/internal/observability/logger"
	"github.com/dropDatabas3/socialgate/internal/rate"
	"github.com/dropDatabas3/socialgate/internal/security/token"
	"github.com/dropDatabas3/socialgate/internal/store"
	storemem "github.com/dropDatabas3/socialgate/internal/store/memory"
	storepg "github.com/dropDatabas3/socialgate/internal/store/postgres"
)

const version = "0.3.0"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "socialgate:", err)
		os.Exit(1)
	}
}

func run() error {
	var configPath string
	flag.StringVar(&configPath, "config", os.Getenv("SOCIALGATE_CONFIG"), "path to config.yaml")
	flag.Parse()

	// Best effort; the file is optional outside development.
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger.Init(logger.Config{
		Env:         cfg.Log.Env,
		Level:       cfg.Log.Level,
		ServiceName: "socialgate",
		Version:     version,
	})
	defer func() { _ = logger.Sync() }()
	log := logger.L()

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Cache backend. Session payloads and (optionally) rate counters
	// live here.
	var (
		byteCache   cache.Cache
		redisClient *cacheredis.Cache
	)
	switch cfg.Cache.Kind {
	case "redis":
		redisClient = cacheredis.New(cfg.Cache.Redis.Addr, cfg.Cache.Redis.DB)
		byteCache = redisClient
		log.Info("cache backend: redis", logger.String("addr", cfg.Cache.Redis.Addr))
	default:
		byteCache = cachemem.New(cfg.CacheDefaultTTL())
		log.Info("cache backend: memory")
	}

	// Account store.
	var (
		accounts store.Store
		ready    func() error
	)
	switch cfg.Storage.Driver {
	case "postgres":
		pg, err := storepg.New(rootCtx, cfg.Storage.DSN)
		if err != nil {
			return err
		}
		defer pg.Close()
		if cfg.Storage.Migrate {
			if err := pg.Migrate(rootCtx); err != nil {
				return err
			}
			log.Info("schema migrations applied")
		}
		accounts = pg
		ready = func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return pg.Ping(ctx)
		}
		log.Info("storage backend: postgres")
	default:
		accounts = storemem.New()
		log.Info("storage backend: memory")
	}

	var mailer email.Mailer = email.Noop{}
	if cfg.SMTP.Host != "" {
		mailer = email.NewSMTPSender(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.From, cfg.SMTP.User, cfg.SMTP.Pass)
		log.Info("mailer: smtp", logger.String("host", cfg.SMTP.Host))
	}

	var limiter rate.Limiter
	if cfg.Rate.Enabled {
		if redisClient != nil {
			limiter = rate.NewRedisLimiter(redisClient.Client(), "rl:", cfg.Rate.Limit, cfg.RateWindow())
		} else {
			limiter = rate.NewMemoryLimiter(cfg.Rate.Limit, cfg.RateWindow())
		}
		log.Info("rate limiting enabled",
			logger.Int("limit", cfg.Rate.Limit),
			logger.Duration(cfg.RateWindow()),
		)
	}

	flow, err := buildFlow(cfg, byteCache, accounts, mailer)
	if err != nil {
		return err
	}

	handler := router.New(router.Deps{
		Social:  controllers.NewSocialController(flow, cfg.Server.PublicBaseURI),
		Health:  &controllers.HealthController{Ready: ready},
		Metrics: metrics.Register(nil),
		Limiter: limiter,
		RateMax: int64(cfg.Rate.Limit),
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	g, gctx := errgroup.WithContext(rootCtx)
	g.Go(func() error {
		log.Info("listening", logger.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	})

	return g.Wait()
}

// buildFlow decides once, at startup, whether the GitHub flow is live.
// Requests never re-check configuration.
func buildFlow(cfg *config.Config, byteCache cache.Cache, accounts store.Store, mailer email.Mailer) (social.Service, error) {
	if !cfg.GitHubEnabled() {
		logger.L().Warn("github credentials absent, social login disabled")
		return social.NewNotConfigured(), nil
	}

	tokens, err := token.NewService([]byte(cfg.Token.Secret), "socialgate")
	if err != nil {
		return nil, err
	}

	provider := github.New(
		cfg.Providers.GitHub.ClientID,
		cfg.Providers.GitHub.ClientSecret,
		cfg.Server.PublicBaseURI+"/oauth/github/callback",
		cfg.Providers.GitHub.Scopes,
	)

	sessions := session.New(session.Deps{
		Cache: byteCache,
		Cookie: session.CookieConfig{
			Name:     cfg.Session.CookieName,
			Domain:   cfg.Session.Domain,
			SameSite: cfg.CookieSameSite(),
			Secure:   cfg.Session.Secure,
			TTL:      cfg.SessionTTL(),
		},
	})

	return social.New(social.Deps{
		Tokens:        tokens,
		Provider:      provider,
		Accounts:      accounts,
		Sessions:      sessions,
		Mailer:        mailer,
		PublicBaseURI: cfg.Server.PublicBaseURI,
		StateTTL:      cfg.StateTTL(),
		AuthTTL:       cfg.AuthTTL(),
	}), nil
}
