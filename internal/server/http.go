package server

import (
	"log/slog"
	"os"

	"github.com/gofiber/fiber/v2"

	"github.com/Anvoria/scanly/internal/cache"
	"github.com/Anvoria/scanly/internal/config"
	"github.com/Anvoria/scanly/internal/database"
	"github.com/Anvoria/scanly/internal/domain/login"
	"github.com/Anvoria/scanly/internal/domain/scene"
	"github.com/Anvoria/scanly/internal/domain/session"
	"github.com/Anvoria/scanly/internal/domain/signature"
	"github.com/Anvoria/scanly/internal/domain/token"
	"github.com/Anvoria/scanly/internal/domain/user"
	"github.com/Anvoria/scanly/internal/metrics"
	"github.com/Anvoria/scanly/internal/migrations"
)

// Start is the composition root: every component is constructed exactly
// once here and passed down by reference. It blocks until the listener
// stops, then shuts the session reaper down.
func Start(cfg *config.Config, env *config.Environment) error {
	initLogger(cfg.Logging.Level)

	db, err := database.Connect(cfg)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		return err
	}
	slog.Info("Database connected successfully")

	if err := migrations.RunMigrations(db); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return err
	}
	slog.Info("Migrations completed successfully")

	var nonces login.NonceChecker
	if cfg.Redis.Enabled {
		client, err := cache.Connect(&cfg.Redis)
		if err != nil {
			slog.Error("Failed to connect to Redis", "error", err)
			return err
		}
		defer client.Close()

		if cfg.Login.ReplayProtection {
			nonces = cache.NewNonceCache(client)
			slog.Info("Replay protection enabled")
		}
	}

	store := session.NewMemoryStore(cfg.Login.SceneTTL(), cfg.Login.ReapInterval())
	defer store.Stop()
	store.SetReapHook(func(reaped int) {
		metrics.SessionsReaped.Add(float64(reaped))
	})

	scenes := scene.NewIdentifier(cfg.Login.SceneTTL())
	signer := signature.NewVerifier(env.ScanSecret, cfg.Login.SceneTTL())
	tokens := token.NewIssuer(env.TokenSecret, cfg.Login.TokenTTL())
	users := user.NewService(user.NewRepository(db))

	service := login.NewService(scenes, signer, store, tokens, users, nonces, cfg.Login.QRBaseURL)
	handler := login.NewHandler(service)

	app := fiber.New()
	SetupRoutes(app, handler, service)

	if cfg.Metrics.Enabled {
		go metrics.Serve(cfg.Metrics.Port)
	}

	addr := cfg.Server.Address()
	slog.Info("Server starting", "address", addr)
	if err := app.Listen(addr); err != nil {
		slog.Error("Failed to start server", "error", err)
		return err
	}

	return nil
}

func initLogger(level string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	handler := slog.NewTextHandler(os.Stdout, opts)
	slog.SetDefault(slog.New(handler))
}
