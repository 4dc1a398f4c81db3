package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	apitrace "github.com/kilianp07/arbitrage/api/trace"
	"github.com/kilianp07/arbitrage/core/tracelog"
	"github.com/kilianp07/arbitrage/infra/logger"
	"github.com/kilianp07/arbitrage/infra/metrics"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve stored traces on /api/trace and metrics on /metrics",
	RunE:  serve,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := tracelog.Open(cfg.Trace)
	if err != nil {
		return err
	}
	defer store.Close()

	log := logger.New("server")
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           newMux(store, cfg.Server.Token),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	log.Infof("listening on %s", cfg.Server.Addr)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func newMux(store tracelog.Store, token string) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle(apitrace.Path, apitrace.NewHandler(store, token))
	mux.Handle("/metrics", metrics.Handler(nil))
	return mux
}
