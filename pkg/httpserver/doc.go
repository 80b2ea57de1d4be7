// Package httpserver runs the HTTP listener with graceful shutdown.
//
// New builds a server from an env-loaded Config. Run blocks until the
// context is cancelled or SIGINT/SIGTERM arrives, then drains in-flight
// requests within the configured shutdown timeout. Start and stop hooks
// receive the configured logger for lifecycle logging:
//
//	var cfg httpserver.Config
//	config.MustLoad(&cfg)
//
//	srv := httpserver.New(cfg,
//		httpserver.WithLogger(log),
//		httpserver.WithStartHook(func(l *slog.Logger) {
//			l.Info("listening", slog.String("addr", cfg.Addr))
//		}),
//	)
//	if err := srv.Run(ctx, router); err != nil {
//		log.Error("server exited", logger.Error(err))
//	}
//
// HealthCheckHandler serves both probe styles from one helper: liveness
// ("ALIVE") when called with no checks, readiness ("READY"/"NOT_READY")
// when dependency checks are supplied.
package httpserver
