package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mchmarny/healthscore/pkg/config"
	"github.com/mchmarny/healthscore/pkg/data"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v3"
)

const (
	serverShutdownWaitSeconds = 5
	serverTimeoutSeconds      = 300
	serverMaxHeaderBytes      = 20
)

var (
	portFlag = &cli.IntFlag{
		Name:  "port",
		Usage: "Port on which the server will listen (overrides config)",
	}

	serverCmd = &cli.Command{
		Name:            "server",
		Aliases:         []string{"serve"},
		Usage:           "Start local HTTP evaluation service",
		HideHelpCommand: true,
		Action:          cmdStartServer,
		Flags: []cli.Flag{
			portFlag,
		},
	}
)

func cmdStartServer(ctx context.Context, cmd *cli.Command) error {
	cfg := getConfig(cmd)

	port := cfg.Config.Port
	if cmd.IsSet(portFlag.Name) {
		port = cmd.Int(portFlag.Name)
	}
	address := fmt.Sprintf("127.0.0.1:%d", port)

	store, err := cfg.Store(ctx)
	if err != nil {
		return err
	}

	s := &http.Server{
		Addr:           address,
		Handler:        makeRouter(cfg.Config, store),
		ReadTimeout:    serverTimeoutSeconds * time.Second,
		WriteTimeout:   serverTimeoutSeconds * time.Second,
		MaxHeaderBytes: 1 << serverMaxHeaderBytes,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	slog.Info("server started", "address", "http://"+address)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("error starting server: %w", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), serverShutdownWaitSeconds*time.Second)
	defer cancel()

	if err := s.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("error shutting down server", "error", err)
	}
	return nil
}

func makeRouter(c *config.Config, store *data.Store) *http.ServeMux {
	mux := http.NewServeMux()

	// Evaluation API
	mux.HandleFunc("POST /api/evaluate", evaluateAPIHandler(c, store))
	mux.HandleFunc("GET /api/results", listResultsAPIHandler(store))
	mux.HandleFunc("GET /api/results/{id}", getResultAPIHandler(store))

	// Catalog
	mux.HandleFunc("GET /api/versions", versionsAPIHandler)
	mux.HandleFunc("GET /api/strategies", strategiesAPIHandler(c))

	mux.Handle("GET /metrics", promhttp.Handler())

	return mux
}
