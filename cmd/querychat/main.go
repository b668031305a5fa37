package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"QueryChat/internal/chatbot"
	"QueryChat/internal/config"
)

func newRootCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "querychat",
		Short: "Chat with a natural-language query endpoint",
		Long: `querychat sends each line you enter to a query endpoint as
{"nl_query": "..."} and shows the reply as a chat bubble.

Defaults are read from QUERYCHAT_* environment variables and a .env file.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			bot, err := chatbot.NewChatBot(*cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize chatbot: %w", err)
			}
			defer bot.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return bot.Run(ctx)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfg.Endpoint, "endpoint", cfg.Endpoint, "Query endpoint URL")
	flags.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "Per-request timeout (0 disables)")
	flags.BoolVar(&cfg.Plain, "plain", cfg.Plain, "Use the line console instead of the full-screen UI")
	flags.BoolVar(&cfg.Debug, "debug", cfg.Debug, "Enable debug logging")
	flags.StringVar(&cfg.LogDir, "log-dir", cfg.LogDir, "Directory for logs, traces and metrics")
	flags.StringVar(&cfg.EventsDB, "events-db", cfg.EventsDB, "SQLite file for the query event ledger (empty disables)")
	flags.BoolVar(&cfg.NoTrace, "no-trace", cfg.NoTrace, "Do not write trace and metric files")

	return cmd
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := newRootCmd(&cfg).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
