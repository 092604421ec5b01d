package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/patchjudge/patchjudge/internal/eval"
	"github.com/patchjudge/patchjudge/internal/history"
	"github.com/patchjudge/patchjudge/internal/otel"
	"github.com/patchjudge/patchjudge/internal/prompt"
	"github.com/patchjudge/patchjudge/internal/server"
)

var flagShare bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the patch evaluation web UI and API",
	Long: `Start the HTTP server: a browser form for uploading patch pairs, a JSON
API at /api/evaluate, and the evaluation history at /api/evaluations.

By default the server binds the loopback interface only. Pass --share (or set
SHARE=true) to bind all interfaces.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if flagShare {
			cfg.Share = true
		}

		telem, err := otel.Init(cmd.Context(), otel.OTELConfig{
			Endpoint: cfg.OTELEndpoint,
			Headers:  cfg.OTELHeaders,
		})
		if err != nil {
			return err
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			telem.Shutdown(ctx)
		}()

		prompts, err := prompt.Load(cfg.PromptTemplatePath)
		if err != nil {
			return err
		}

		store, err := history.Open(cfg.HistoryDB)
		if err != nil {
			return fmt.Errorf("opening history database: %w", err)
		}
		defer store.Close()

		svc := eval.New(prompts)
		svc.History = store
		svc.Metrics = telem.Metrics
		svc.MaxTokens = cfg.MaxTokens
		svc.Timeout = cfg.TimeoutDuration

		srv, err := server.New(svc, store, server.Options{
			DefaultModel:       cfg.Model,
			RateLimitPerMinute: cfg.RateLimitPerMinute,
		})
		if err != nil {
			return err
		}

		httpSrv := srv.HTTPServer(cfg.Addr())

		errCh := make(chan error, 1)
		go func() {
			fmt.Fprintf(os.Stderr, "patchjudge %s listening on http://%s (prompt: %s, history: %s)\n",
				Version, cfg.Addr(), prompts.Source(), cfg.HistoryDB)
			if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errCh <- err
			}
		}()

		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-errCh:
			return err
		case <-stop:
		}

		fmt.Fprintln(os.Stderr, "shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(ctx)
	},
}

func init() {
	serveCmd.Flags().BoolVar(&flagShare, "share", false, "bind all interfaces instead of the loopback")
	rootCmd.AddCommand(serveCmd)
}
