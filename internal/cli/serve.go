package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/soyeahso/ezra/internal/config"
	"github.com/soyeahso/ezra/internal/model"
	"github.com/soyeahso/ezra/internal/server"
	"github.com/soyeahso/ezra/internal/store"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var (
		socketPath string
		dbPath     string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the ezra daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(paths.Config)
			if err != nil {
				return err
			}

			if socketPath != "" {
				cfg.Socket = socketPath
			}
			if dbPath != "" {
				cfg.Database = dbPath
			}
			if cfg.Socket == "" {
				cfg.Socket = paths.Socket
			}
			if cfg.Database == "" {
				cfg.Database = paths.Database
			}

			issues := config.Validate(&cfg)
			if len(issues) > 0 {
				for _, issue := range issues {
					log.Error().Str("path", issue.Path).Msg(issue.Message)
				}
				return fmt.Errorf("config validation failed with %d issue(s)", len(issues))
			}

			if err := paths.EnsureDirs(); err != nil {
				return err
			}

			db, err := store.Open(cfg.Database, log)
			if err != nil {
				return fmt.Errorf("opening database: %w", err)
			}
			defer db.Close()
			conversations := store.NewConversationStore(db)
			log.Info().Str("path", cfg.Database).Msg("using SQLite conversation store")

			gateway := model.NewOllamaClient(cfg.Model.Endpoint, cfg.Model.ID, log)

			opts := []server.Option{
				server.WithHistoryLimit(cfg.History.Limit),
			}
			if cfg.Prompt != "" {
				opts = append(opts, server.WithSystemPrompt(cfg.Prompt))
			}

			srv := server.New(cfg.Socket, conversations, gateway, log, opts...)

			// Block until SIGINT/SIGTERM
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return srv.Serve(ctx)
		},
	}

	cmd.Flags().StringVar(&socketPath, "socket", "", "override unix socket path")
	cmd.Flags().StringVar(&dbPath, "database", "", "override sqlite database path")

	return cmd
}
