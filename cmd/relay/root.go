package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"whatsapp-relay/internal/adapter/docstore"
	"whatsapp-relay/internal/adapter/firestore"
	"whatsapp-relay/internal/adapter/memory"
	"whatsapp-relay/internal/adapter/sqlite"
	"whatsapp-relay/internal/config"
)

func newRootCmd(version string) *cobra.Command {
	root := &cobra.Command{
		Use:   "relay",
		Short: "WhatsApp chat relay backed by OpenAI",
		Long: `relay receives WhatsApp (and optionally Telegram) webhooks, keeps a
per-sender transcript, asks OpenAI for a reply and sends it back.

Examples:
  relay serve
  relay serve --env-file /etc/relay/.env
  relay hash-password
  relay purge-sessions`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("env-file", ".env", "path to a .env file; existing variables win")

	root.AddCommand(
		newServeCmd(),
		newHashPasswordCmd(),
		newPurgeSessionsCmd(),
	)
	return root
}

func envFile(cmd *cobra.Command) string {
	path, _ := cmd.Flags().GetString("env-file")
	return path
}

func openBackend(ctx context.Context, cfg config.Config) (docstore.Backend, error) {
	switch cfg.StoreBackend {
	case config.StoreFirestore:
		return firestore.Open(ctx, firestore.Config{
			ProjectID:       cfg.FirestoreProjectID,
			CredentialsFile: cfg.CredentialsFile,
		})
	case config.StoreSQLite:
		return sqlite.Open(sqlite.Config{Path: cfg.SQLitePath})
	case config.StoreMemory:
		return memory.NewStore(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}
