package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/bugline/bugline"
	"github.com/bugline/bugline/adapters/memory"
	"github.com/bugline/bugline/adapters/postgres"
	"github.com/bugline/bugline/cache"
	"github.com/bugline/bugline/cli/styles"
	"github.com/bugline/bugline/cli/ui"
	"github.com/bugline/bugline/config"
	"github.com/bugline/bugline/domain"
	"github.com/bugline/bugline/httpapi"
	"github.com/bugline/bugline/logging"
	"github.com/bugline/bugline/middleware/metrics"
	"github.com/bugline/bugline/middleware/tracing"
	"github.com/bugline/bugline/security"
	"github.com/bugline/bugline/serializer/msgpack"
	"github.com/bugline/bugline/service"
)

// eventCodec resolves the configured event-store payload codec.
func eventCodec(name string) (bugline.PayloadCodec, error) {
	switch name {
	case "", "json":
		return bugline.JSONCodec{}, nil
	case "msgpack":
		return msgpack.Codec{}, nil
	default:
		return nil, fmt.Errorf("unknown event codec %q", name)
	}
}

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	var autoMigrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the bugline HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), autoMigrate)
		},
	}
	cmd.Flags().BoolVar(&autoMigrate, "auto-migrate", false, "apply database migrations on startup (postgres only)")
	return cmd
}

func runServe(parent context.Context, autoMigrate bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logging.Level)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var factory domain.UnitOfWorkFactory
	switch cfg.Database.Driver {
	case "postgres":
		codec, err := eventCodec(cfg.Database.EventCodec)
		if err != nil {
			return err
		}
		store, err := postgres.Open(ctx, cfg.Database.URL,
			postgres.WithSchema(cfg.Database.Schema),
			postgres.WithCodec(codec),
			postgres.WithLogger(logger),
		)
		if err != nil {
			return fmt.Errorf("connecting to postgres: %w", err)
		}
		defer store.Close() //nolint:errcheck
		if autoMigrate {
			if err := store.Migrate(ctx); err != nil {
				return fmt.Errorf("migrating: %w", err)
			}
			logger.Info("migrations applied", "schema", cfg.Database.Schema)
		}
		factory = store.Factory()
	default:
		logger.Warn("using in-memory storage, data is lost on restart")
		factory = memory.NewStore().Factory()
	}

	var rmCache service.ReadModelCache
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close() //nolint:errcheck
		rmCache = cache.New(client,
			cache.WithTTL(cfg.Redis.TTL.Std()),
			cache.WithLogger(logger),
		)
		logger.Info("read-model cache enabled", "addr", cfg.Redis.Addr)
	}

	hasher := security.NewArgon2Hasher(security.DefaultArgon2Params())
	tokens := security.NewJWTManager(security.JWTConfig{
		Secret:     cfg.Auth.Secret,
		Issuer:     cfg.Auth.Issuer,
		AccessTTL:  cfg.Auth.AccessTTL.Std(),
		RefreshTTL: cfg.Auth.RefreshTTL.Std(),
	})

	recorder := metrics.NewRecorder(prometheus.DefaultRegisterer)
	busFactory := service.NewBusFactory(
		service.NewRegistry(), factory, hasher, tokens, rmCache, logger,
		bugline.WithMiddleware[service.Deps](
			recorder.Middleware(),
			tracing.Middleware(nil),
		),
		bugline.WithEventObserver[service.Deps](recorder.Observer()),
	)
	views := service.NewViews(factory, rmCache)

	router := httpapi.NewServer(busFactory, views, tokens, logger).Router()
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", cfg.Server.Addr, "driver", cfg.Database.Driver)
		errCh <- srv.ListenAndServe()
	}()

	fmt.Print(ui.Banner(bugline.Version()))
	fmt.Println(styles.FormatInfo("listening on " + cfg.Server.Addr))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
