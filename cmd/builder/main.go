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

	"game-builder/internal/config"
	"game-builder/internal/domain"
	"game-builder/internal/logger"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfg *config.Config
	log *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "builder",
	Short: "Build a browser game from a one-line idea",
	Long: `builder asks a few clarifying questions about your game idea, plans the
game and writes index.html, style.css and game.js to OUTPUT_DIR.

When the generation service is unreachable every stage falls back to a
deterministic offline game, so a playable bundle is always written.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not load .env file: %v\n", err)
		}
		var err error
		if cfg, err = config.Load(); err != nil {
			return err
		}
		log, err = logger.New(logger.Config{
			Level:      cfg.LogLevel,
			Encoding:   cfg.LogEncoding,
			OutputPath: cfg.LogOutput,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		if cfg.MetricsAddr != "" {
			go serveMetrics(cfg.MetricsAddr)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			_ = log.Sync()
		}
	},
	RunE: runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd, recordCmd, leaderboardCmd, profileCmd)
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	log.Info("Metrics listener started", zap.String("addr", addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("Metrics listener failed", zap.Error(err))
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	switch {
	case err == nil:
	case errors.Is(err, domain.ErrOperatorAbort):
		fmt.Println("\n\nGame building cancelled. Goodbye!")
	default:
		fmt.Fprintf(os.Stderr, "\nError: %v\n", err)
		os.Exit(1)
	}
}
