package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cartbase/authcore/pkg/auth"
	"github.com/cartbase/authcore/pkg/config"
	"github.com/cartbase/authcore/pkg/email"
	"github.com/cartbase/authcore/pkg/httpserver"
	"github.com/cartbase/authcore/pkg/jwt"
	"github.com/cartbase/authcore/pkg/logger"
	"github.com/cartbase/authcore/pkg/password"
	"github.com/cartbase/authcore/pkg/pg"
	"github.com/cartbase/authcore/pkg/ratelimiter"
	"github.com/cartbase/authcore/pkg/redis"
	"github.com/cartbase/authcore/pkg/validator"
	"github.com/cartbase/authcore/storage/postgres"
	"github.com/cartbase/authcore/svc/authapi"
)

type appConfig struct {
	AppName string `env:"APP_NAME" envDefault:"CartBase"`
	AppURL  string `env:"APP_URL" envDefault:"http://localhost:8080"`

	LogLevel  string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat logger.Format `env:"LOG_FORMAT" envDefault:"json"`

	GoogleOAuthEnabled bool `env:"GOOGLE_OAUTH_ENABLED" envDefault:"false"`

	// Password composition rules are disabled unless configured; length is
	// always bounded.
	PasswordMinLength      int `env:"PASSWORD_MIN_LENGTH" envDefault:"0"`
	PasswordMinCharClasses int `env:"PASSWORD_MIN_CHAR_CLASSES" envDefault:"0"`

	RateLimitCapacity int           `env:"HTTP_RATE_LIMIT_CAPACITY" envDefault:"60"`
	RateLimitRefill   int           `env:"HTTP_RATE_LIMIT_REFILL" envDefault:"60"`
	RateLimitInterval time.Duration `env:"HTTP_RATE_LIMIT_INTERVAL" envDefault:"1m"`
}

func main() {
	ctx := context.Background()

	var cfg appConfig
	config.MustLoad(&cfg)

	log := logger.New(
		logger.WithFormat(cfg.LogFormat),
		logger.WithLevel(parseLevel(cfg.LogLevel)),
		logger.WithAttr(slog.String("app", "authd")),
	)

	if err := run(ctx, cfg, log); err != nil {
		log.ErrorContext(ctx, "authd exited with error", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg appConfig, log *slog.Logger) error {
	// Postgres is the canonical store.
	var pgCfg pg.Config
	config.MustLoad(&pgCfg)

	pool, err := pg.Connect(ctx, pgCfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, pgCfg, log); err != nil {
		return err
	}
	store := postgres.New(pool)

	// Redis backs the perimeter rate limiter only.
	var redisCfg redis.Config
	config.MustLoad(&redisCfg)

	redisClient, err := redis.Connect(ctx, redisCfg)
	if err != nil {
		return err
	}
	defer redisClient.Close() //nolint:errcheck

	bucket, err := ratelimiter.NewBucket(
		ratelimiter.NewRedisStore(redisClient, "authapi"),
		ratelimiter.Config{
			Capacity:       cfg.RateLimitCapacity,
			RefillRate:     cfg.RateLimitRefill,
			RefillInterval: cfg.RateLimitInterval,
		},
	)
	if err != nil {
		return err
	}

	// Email goes through Postmark when a server token is configured and
	// falls back to log-only delivery for local development.
	var emailCfg email.Config
	config.MustLoad(&emailCfg)

	var sender email.Sender
	if emailCfg.PostmarkServerToken != "" {
		sender, err = email.NewPostmarkClient(emailCfg)
		if err != nil {
			return err
		}
	} else {
		log.InfoContext(ctx, "no postmark token configured, using dev email sender")
		sender = email.NewDevSender(log)
	}
	notifier := email.NewNotifier(email.NewMailer(sender, cfg.AppName, cfg.AppURL), log)

	hasher, err := password.New(password.DefaultCost)
	if err != nil {
		return err
	}

	var jwtCfg jwt.Config
	config.MustLoad(&jwtCfg)
	issuer, err := jwt.New(jwtCfg)
	if err != nil {
		return err
	}

	var settingsCfg auth.SettingsConfig
	config.MustLoad(&settingsCfg)
	settings := auth.NewStaticSettings(settingsCfg)

	sessions := auth.NewSessionService(store, auth.WithSessionLogger(log))
	attempts := auth.NewAttemptService(store, auth.WithAttemptLogger(log))
	twoFactor := auth.NewTwoFactorService(store, sessions,
		auth.WithTwoFactorLogger(log),
		auth.WithTwoFactorNotifier(notifier),
		auth.WithTwoFactorIssuer(cfg.AppName),
	)
	verification := auth.NewVerificationService(store, store,
		auth.WithVerificationLogger(log),
		auth.WithVerificationNotifier(notifier),
	)
	passwordPolicy := validator.PasswordStrengthConfig{
		MinLength:      cfg.PasswordMinLength,
		MaxLength:      128,
		MinCharClasses: cfg.PasswordMinCharClasses,
	}

	reset := auth.NewResetService(store, store, sessions, hasher,
		auth.WithResetLogger(log),
		auth.WithResetNotifier(notifier),
		auth.WithResetPasswordStrength(passwordPolicy),
	)
	magicLink := auth.NewMagicLinkService(store, store, sessions, issuer,
		auth.WithMagicLinkLogger(log),
		auth.WithMagicLinkNotifier(notifier),
	)

	provisioner := auth.NewSellerProvisioner(store,
		auth.WithProvisionerLogger(log),
		auth.WithProvisionerNotifier(notifier),
	)

	svc := auth.NewService(store, attempts, sessions, twoFactor, verification, hasher, issuer,
		auth.WithLogger(log),
		auth.WithNotifier(notifier),
		auth.WithSettings(settings),
		auth.WithRegistrationHook(auth.RoleSeller, provisioner),
		auth.WithPasswordStrength(passwordPolicy),
	)

	var oauthSvc *auth.OAuthService
	if cfg.GoogleOAuthEnabled {
		var googleCfg auth.GoogleOAuthConfig
		config.MustLoad(&googleCfg)
		oauthSvc = auth.NewOAuthService(store, store, auth.NewGoogleAdapter(googleCfg), sessions, issuer,
			auth.WithOAuthLogger(log),
			auth.WithOAuthNotifier(notifier),
			auth.WithOAuthProvisioner(provisioner),
			auth.WithOAuthStateTTL(googleCfg.StateTTL),
		)
	}

	api := authapi.New(authapi.Deps{
		Service:      svc,
		Sessions:     sessions,
		TwoFactor:    twoFactor,
		Verification: verification,
		Reset:        reset,
		MagicLink:    magicLink,
		OAuth:        oauthSvc,
		Users:        store,
	}, authapi.WithLogger(log), authapi.WithRateLimiter(bucket))

	r := chi.NewRouter()
	r.Get("/health", httpserver.HealthCheckHandler(log))
	r.Get("/ready", httpserver.HealthCheckHandler(log,
		pool.Ping,
		func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
	))
	r.Mount("/auth", api.Router())

	var httpCfg httpserver.Config
	config.MustLoad(&httpCfg)

	srv := httpserver.New(httpCfg,
		httpserver.WithLogger(log),
		httpserver.WithStartHook(func(l *slog.Logger) {
			l.InfoContext(ctx, "authd listening", slog.String("addr", httpCfg.Addr))
		}),
		httpserver.WithStopHook(func(l *slog.Logger) {
			l.InfoContext(ctx, "authd stopped")
		}),
	)
	return srv.Run(ctx, r)
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}
