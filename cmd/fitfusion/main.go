// FitFusion - conversational fitness booking assistant.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ashureev/fitfusion/internal/config"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	logLevel string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "fitfusion",
	Short: "FitFusion gym assistant: booking, workouts and nutrition over chat",
	Long: `FitFusion is a conversational assistant for gym members.

It books and cancels training sessions, checks availability, records
feedback and gives workout and nutrition advice. Run "fitfusion serve"
for the web app or "fitfusion chat --user <name>" for a terminal session.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := godotenv.Load(); err != nil {
			slog.Debug("No .env file found, using environment variables")
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("load configuration: %w", err)
		}
		if logLevel != "" {
			cfg.LogLevel = logLevel
		}
		setupLogger(cmd)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override LOG_LEVEL (trace, debug, info, warn, error)")
	rootCmd.AddCommand(serveCmd, chatCmd, signupCmd, statsCmd)
}

// setupLogger installs the default slog logger. The server logs JSON to
// stdout; terminal commands keep stdout for the conversation and only
// surface warnings on stderr unless a lower level was asked for.
func setupLogger(cmd *cobra.Command) {
	level := cfg.SlogLevel()
	if cmd.Name() != "serve" {
		if logLevel == "" {
			level = slog.LevelWarn
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		return
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
