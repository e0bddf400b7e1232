package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"civitas/internal/platform/httpserver"
	platformmetrics "civitas/internal/platform/metrics"
	"civitas/internal/timeline/handler"
	"civitas/internal/timeline/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the latest run over HTTP",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&flags.addr, "addr", "", "Listen address")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var reader store.Reader = store.NewFileStore(cfg.Output.Dir)
	db, pg, err := openPostgres(ctx, cfg.Output)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
		reader = pg
	}

	reg := platformmetrics.NewRegistry()
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	handler.New(reader, log).Register(r)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	srv := httpserver.New(cfg.Server, r)
	errCh := make(chan error, 1)
	go func() {
		log.Info("starting timeline server", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info("server stopped")
	return nil
}
