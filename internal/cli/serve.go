package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"kifu/internal/adapters"
	"kifu/internal/bootstrap"
	recordDelivery "kifu/internal/delivery/record"
	repo "kifu/internal/repository"
	recordUC "kifu/internal/usecase/record"
)

type dataBaseAdapters struct {
	redisAdapter *adapters.AdapterRedis
	mongoAdapter *adapters.AdapterMongo
}

func newServeCommand(root *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and websocket API",
		Long: `Serve connects to MongoDB and Redis and exposes the record API:

  POST /records                          import a KIF body
  GET  /records?page=N                   list stored records
  GET  /records/{key}                    one record with its tree
  GET  /records/{key}/sequences          sequence outline
  GET  /records/{key}/sequences/{sequence}/moves/{n}
  GET  /records/{key}/line/{sequence}    moves from the start to a sequence end
  GET  /records/stream                   websocket ingestion

Example:
  kifu serve --config .env`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), root)
		},
	}
}

func runServe(ctx context.Context, opts *options) error {
	cfg, err := bootstrap.Setup(opts.cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := NewLogger()
	defer logger.Sync()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	databaseAdapters, err := initDatabaseAdapters(ctx, logger, cfg)
	if err != nil {
		return err
	}
	defer databaseAdapters.mongoAdapter.Close(context.Background())
	defer databaseAdapters.redisAdapter.Close(context.Background())

	recordRepo := repo.NewRecordRepository(*cfg, logger, databaseAdapters.redisAdapter.GetClient(), databaseAdapters.mongoAdapter.Database)
	if err = recordRepo.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("failed to prepare records collection: %w", err)
	}

	server := &http.Server{Addr: ":" + cfg.ServerPort, Handler: newRouter(*cfg, logger, recordUC.NewRecordUseCase(recordRepo, logger, *cfg))}
	go handleShutdown(ctx, server, logger)

	logger.Infof("Server is running on port %s", cfg.ServerPort)
	if err = server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func newRouter(cfg bootstrap.Config, logger *zap.SugaredLogger, uc *recordUC.RecordUseCase) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	recordDelivery.NewRecordHandler(cfg, logger, uc).Routes(r)
	return r
}

func NewLogger() *zap.SugaredLogger {
	logger, err := zap.NewProduction()
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	return logger.Sugar()
}

func initDatabaseAdapters(ctx context.Context, log *zap.SugaredLogger, cfg *bootstrap.Config) (*dataBaseAdapters, error) {
	mongoAdapter := adapters.NewAdapterMongo(cfg, log)
	if err := mongoAdapter.Init(ctx); err != nil {
		return nil, fmt.Errorf("не удалось инициализировать MongoDB: %w", err)
	}

	redisAdapter := adapters.NewAdapterRedis(cfg, log)
	if err := redisAdapter.Init(ctx); err != nil {
		_ = mongoAdapter.Close(context.Background())
		return nil, fmt.Errorf("не удалось инициализировать Redis: %w", err)
	}

	log.Info("Адаптеры баз данных инициализированы")
	return &dataBaseAdapters{
		redisAdapter: redisAdapter,
		mongoAdapter: mongoAdapter,
	}, nil
}

func handleShutdown(ctx context.Context, server *http.Server, log *zap.SugaredLogger) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)
	select {
	case <-sigs:
		log.Info("Received shutdown signal")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Graceful shutdown failed", zap.Error(err))
	}
}
