package main

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"speech-feedback-service/internal/observability/logging"
	"speech-feedback-service/internal/service/audio"
)

type rootOptions struct {
	logLevel string
	format   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "feedbackctl",
		Short:         "Speaking feedback for audio recordings",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cfg := logging.DefaultConfig()
			cfg.Level = opts.logLevel
			cfg.Format = "console"
			logging.InitWithWriter(cfg, cmd.ErrOrStderr())
		},
	}

	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&opts.format, "format", "", "audio container: wav, mp3 or pcm (default: from file extension)")

	cmd.AddCommand(newAnalyzeCmd(opts), newSubmitCmd(opts))
	return cmd
}

// resolveFormat picks the container from the flag or the file extension.
func resolveFormat(flag, path string) (audio.Format, error) {
	if flag != "" {
		switch f := audio.Format(strings.ToLower(flag)); f {
		case audio.FormatAuto, audio.FormatWAV, audio.FormatMP3, audio.FormatPCM:
			return f, nil
		default:
			return "", fmt.Errorf("unsupported format %q", flag)
		}
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav", ".wave":
		return audio.FormatWAV, nil
	case ".mp3":
		return audio.FormatMP3, nil
	case ".pcm", ".raw":
		return audio.FormatPCM, nil
	default:
		return audio.FormatAuto, nil
	}
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
