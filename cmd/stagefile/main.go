package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"go.bug.st/cleanup"

	"github.com/stagefile/stagefile/cmd/feedback"
	"github.com/stagefile/stagefile/cmd/i18n"
	"github.com/stagefile/stagefile/cmd/stagefile/completion"
	"github.com/stagefile/stagefile/cmd/stagefile/history"
	"github.com/stagefile/stagefile/cmd/stagefile/version"
	"github.com/stagefile/stagefile/cmd/stagefile/write"
	cfg "github.com/stagefile/stagefile/internal/config"
)

// Version will be set a build time with -ldflags
var Version string = "0.0.0-dev"
var format string
var logLevelStr string

func run(configuration cfg.Configuration) error {
	rootCmd := &cobra.Command{
		Use:   "stagefile",
		Short: "Crash-safe file writes",
		Long: "stagefile creates and replaces files so that concurrent readers always\n" +
			"observe either the previous content or the new one, never a mix.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			format, ok := feedback.ParseOutputFormat(format)
			if !ok {
				feedback.Fatal(i18n.Tr("Invalid output format: %s", format), feedback.ErrBadArgument)
			}
			feedback.SetFormat(format)

			logLevel, err := ParseLogLevel(logLevelStr)
			if err != nil {
				feedback.FatalError(err, feedback.ErrBadArgument)
			}
			slog.SetLogLoggerLevel(logLevel)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&format, "format", "text", "Output format (text, json, jsonmini)")
	rootCmd.PersistentFlags().StringVar(&logLevelStr, "log-level", "error", "Set the log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		write.NewWriteCmd(configuration),
		history.NewHistoryCmd(configuration),
		completion.NewCompletionCommand(),
		version.NewVersionCmd(Version),
	)

	ctx := context.Background()
	ctx, _ = cleanup.InterruptableContext(ctx)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		return err
	}

	return nil
}

func main() {
	configuration, err := cfg.NewFromEnv()
	if err != nil {
		feedback.Fatal(fmt.Sprintf("invalid config: %s", err), feedback.ErrGeneric)
	}

	if err := run(configuration); err != nil {
		feedback.FatalError(err, feedback.ErrGeneric)
	}
}

func ParseLogLevel(level string) (slog.Level, error) {
	var l slog.Level
	err := l.UnmarshalText([]byte(level))
	if err != nil {
		return 0, fmt.Errorf("invalid log level: %w", err)
	}
	return l, nil
}
