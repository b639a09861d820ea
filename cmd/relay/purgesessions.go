package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"whatsapp-relay/internal/adapter/docstore"
	"whatsapp-relay/internal/config"
	"whatsapp-relay/internal/logger"
	"whatsapp-relay/internal/usecase/auth"
)

func newPurgeSessionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "purge-sessions",
		Short: "Delete expired operator sessions once and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadEnv(envFile(cmd))
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			backend, err := openBackend(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("open %s store: %w", cfg.StoreBackend, err)
			}
			store := docstore.NewStore(backend)
			defer store.Close()

			svc := auth.NewService(store, cfg.OperatorUsername, cfg.OperatorPasswordHash, cfg.SessionTTL, log)
			started := time.Now()
			n, err := svc.PurgeExpired(cmd.Context())
			if err != nil {
				return fmt.Errorf("purge sessions: %w", err)
			}
			log.Info().Int("removed", n).Dur("took", time.Since(started)).Msg("expired sessions purged")
			return nil
		},
	}
}
