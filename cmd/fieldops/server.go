package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tedtam/fieldops/internal/api"
	"github.com/tedtam/fieldops/internal/config"
	"github.com/tedtam/fieldops/internal/store"
)

const healthTimeout = 2 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the fieldops server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		mcpStdio, _ := cmd.Flags().GetBool("mcp-stdio")
		return runServer(mcpStdio)
	},
}

func init() {
	serveCmd.Flags().Bool("mcp-stdio", false, "also serve MCP tools over stdin/stdout")
}

// openStore builds the configured backend. Both satisfy store.Store
// and store.ReportStore.
func openStore(ctx context.Context, cfg config.Config) (store.Store, store.ReportStore, error) {
	switch cfg.Store.Backend {
	case config.BackendPostgres:
		pg, err := store.OpenPostgres(ctx, cfg.Store.PostgresURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		return pg, pg, nil
	default:
		sq, err := store.OpenSQLite(cfg.Store.DataDir)
		if err != nil {
			return nil, nil, fmt.Errorf("opening store: %w", err)
		}
		return sq, sq, nil
	}
}

func runServer(mcpStdio bool) error {
	fmt.Fprintf(os.Stderr, "fieldops version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logLevel := slog.LevelInfo
	if strings.EqualFold(cfg.Log.Level, "debug") {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	if healthCheck(addr) {
		printWarning("fieldops is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, reports, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Warn("closing store", "error", err)
		}
	}()
	logger.Info("store ready", "backend", cfg.Store.Backend)

	handler := api.NewHandler(api.Deps{
		Store:   st,
		Reports: reports,
		Token:   cfg.APIToken,
		Metrics: cfg.Server.Metrics,
		Logger:  logger,
	})

	mcpSrv := api.NewMCPServer(st)

	topRouter := chi.NewRouter()
	topRouter.Handle("/mcp", mcpserver.NewStreamableHTTPServer(mcpSrv))
	topRouter.Mount("/", handler)
	srv := &http.Server{Addr: addr, Handler: topRouter}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		fmt.Fprintf(os.Stderr, "fieldops listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	if mcpStdio {
		stdioSrv := mcpserver.NewStdioServer(mcpSrv)
		g.Go(func() error {
			if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("MCP stdio server error", "error", err)
			}
			return nil
		})
		logger.Info("MCP server started (stdio transport)")
	}

	g.Go(func() error {
		<-ctx.Done()
		fmt.Fprintln(os.Stderr, "shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
