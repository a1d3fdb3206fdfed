// Command report-viewer shows feedback events from Kafka live in the browser.
package main

import (
	"context"
	"embed"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"speech-feedback-service/internal/observability/logging"
)

//go:embed static/*
var staticFiles embed.FS

type options struct {
	port          string
	brokers       []string
	topicReport   string
	topicFailure  string
	fromBeginning bool
	logLevel      string
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:          "report-viewer",
		Short:        "Watch feedback reports and failures as they are published",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := logging.DefaultConfig()
			cfg.Level = opts.logLevel
			cfg.Format = "console"
			logging.InitWithWriter(cfg, cmd.ErrOrStderr())

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.port, "port", "8081", "HTTP server port")
	f.StringSliceVar(&opts.brokers, "brokers", []string{"localhost:9092"}, "Kafka brokers")
	f.StringVar(&opts.topicReport, "topic-report", "speech.feedback.report", "feedback report topic")
	f.StringVar(&opts.topicFailure, "topic-failure", "speech.feedback.failed", "failed submission topic")
	f.BoolVar(&opts.fromBeginning, "from-beginning", false, "replay the topics from their first offset")
	f.StringVar(&opts.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	return cmd
}

func run(ctx context.Context, opts *options) error {
	static, err := fs.Sub(staticFiles, "static")
	if err != nil {
		return err
	}

	b := newBroadcaster()
	reader := newReader(opts.brokers, []string{opts.topicReport, opts.topicFailure}, opts.fromBeginning)
	defer reader.Close()
	go consume(ctx, reader, b)

	srv := &http.Server{
		Addr:              ":" + opts.port,
		Handler:           newRouter(b, static),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().
		Str("url", "http://localhost:"+opts.port).
		Strs("brokers", opts.brokers).
		Strs("topics", []string{opts.topicReport, opts.topicFailure}).
		Msg("Report viewer starting")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
