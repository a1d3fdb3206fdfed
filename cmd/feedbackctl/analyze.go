package main

import (
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	grpcapi "speech-feedback-service/internal/api/grpc"
	"speech-feedback-service/internal/app"
	"speech-feedback-service/internal/config"
	"speech-feedback-service/internal/observability/metrics"
	"speech-feedback-service/internal/service/audio"
	"speech-feedback-service/internal/service/pipeline"
)

type analyzeOptions struct {
	provider   string
	sampleRate int
}

func newAnalyzeCmd(root *rootOptions) *cobra.Command {
	opts := &analyzeOptions{}

	cmd := &cobra.Command{
		Use:   "analyze FILE",
		Short: "Score a recording in-process",
		Long: "Score a recording in-process using the STT provider configured by the\n" +
			"STT_* environment variables (or --provider).",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := resolveFormat(root.format, args[0])
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			cfg := config.Load()
			if opts.provider != "" {
				cfg.STT.Provider = opts.provider
			}
			if opts.sampleRate > 0 {
				cfg.Audio.SampleRateHz = opts.sampleRate
			}

			adapter, err := app.NewAdapter(cmd.Context(), cfg.STT)
			if err != nil {
				return err
			}
			defer adapter.Close()

			p := pipeline.New(
				audio.NewDecoder(audio.Config{SampleRate: cfg.Audio.SampleRateHz}),
				adapter,
				pipeline.WithMetrics(metrics.NewMetrics(prometheus.NewRegistry())),
				pipeline.WithLimits(pipeline.Limits{
					MaxDuration: cfg.Audio.MaxDuration,
					STTTimeout:  cfg.STT.Timeout,
				}),
			)

			res := p.SubmitAs(cmd.Context(), data, format)
			if !res.OK() {
				return fmt.Errorf("%s stage failed: %w", res.Stage, res.Err)
			}
			return printJSON(cmd.OutOrStdout(), grpcapi.AnalyzeResponse{ID: res.ID, Report: *res.Report})
		},
	}

	cmd.Flags().StringVar(&opts.provider, "provider", "", "STT provider: mock, google or whisper (overrides STT_PROVIDER)")
	cmd.Flags().IntVar(&opts.sampleRate, "sample-rate", 0, "sample rate of raw PCM input (overrides AUDIO_SAMPLE_RATE_HZ)")
	return cmd
}
