package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/cobra"

	"github.com/Tomlord1122/todo-api/internal/config"
	"github.com/Tomlord1122/todo-api/internal/database"
	"github.com/Tomlord1122/todo-api/internal/logging"
	"github.com/Tomlord1122/todo-api/internal/repository"
	"github.com/Tomlord1122/todo-api/internal/server"
	"github.com/Tomlord1122/todo-api/internal/service"
)

func newRootCmd() *cobra.Command {
	v := config.New()

	cmd := &cobra.Command{
		Use:           "todo-api",
		Short:         "Serve the todo list HTTP API",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg)
		},
	}

	if err := config.BindFlags(v, cmd.Flags()); err != nil {
		panic(err)
	}
	return cmd
}

func run(ctx context.Context, cfg *config.Config) error {
	logger := logging.New(cfg.Log.Level, cfg.Log.Format)

	dbService, err := database.New(cfg.DB, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := dbService.Close(); err != nil {
			logger.Error("closing database connection pool", "err", err)
		}
	}()

	if err := dbService.Migrate(); err != nil {
		return err
	}

	todoRepo := repository.NewGormTodoRepository(dbService.GetDB())
	todoService := service.NewTodoService(todoRepo, logger)
	apiServer := server.NewServer(cfg, todoService, dbService, logger)

	done := make(chan struct{})
	go gracefulShutdown(ctx, apiServer, logger, done)

	logger.Info("starting server", "addr", apiServer.Addr, "driver", cfg.DB.Driver)
	if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}

	<-done
	logger.Info("graceful shutdown complete")
	return nil
}

// gracefulShutdown waits for ctx to be cancelled by a signal and gives
// in-flight requests five seconds to finish.
func gracefulShutdown(ctx context.Context, apiServer *http.Server, logger *log.Logger, done chan<- struct{}) {
	defer close(done)
	<-ctx.Done()

	logger.Info("shutting down gracefully")

	ctxTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctxTimeout); err != nil {
		logger.Error("server forced to shutdown", "err", err)
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "todo-api:", err)
		os.Exit(1)
	}
}
