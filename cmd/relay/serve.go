package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"whatsapp-relay/internal/adapter/cron"
	"whatsapp-relay/internal/adapter/docstore"
	"whatsapp-relay/internal/adapter/openai"
	"whatsapp-relay/internal/adapter/telegram"
	"whatsapp-relay/internal/adapter/twilio"
	"whatsapp-relay/internal/adapter/web"
	"whatsapp-relay/internal/config"
	"whatsapp-relay/internal/logger"
	"whatsapp-relay/internal/usecase/auth"
	"whatsapp-relay/internal/usecase/chat"
	"whatsapp-relay/internal/usecase/console"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the webhooks and the operator console",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(envFile(cmd))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	backend, err := openBackend(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.StoreBackend, err)
	}
	store := docstore.NewStore(backend)
	defer store.Close()

	senders := map[string]chat.Sender{
		chat.ChannelWhatsApp: twilio.NewMessenger(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioPhoneNumber, cfg.DispatchTimeout),
	}
	if cfg.TelegramEnabled() {
		bot, err := telegram.NewBot(cfg.TelegramToken)
		if err != nil {
			return fmt.Errorf("init telegram bot: %w", err)
		}
		senders[chat.ChannelTelegram] = bot
	}

	chatSvc := chat.NewService(store, store, openai.NewClient(cfg.OpenAIKey, cfg.OpenAIBaseURL), senders, cfg, log)

	deps := web.Deps{
		Chat:            chatSvc,
		Console:         console.NewService(store, store, log),
		TelegramEnabled: cfg.TelegramEnabled(),
		TelegramSecret:  cfg.TelegramSecret,
		Log:             log,
	}
	if cfg.TwilioWebhookURL != "" {
		deps.Signatures = twilio.NewSignatureValidator(cfg.TwilioAuthToken, cfg.TwilioWebhookURL)
	}

	var sweeper *cron.Sweeper
	if cfg.AuthEnabled() {
		authSvc := auth.NewService(store, cfg.OperatorUsername, cfg.OperatorPasswordHash, cfg.SessionTTL, log)
		deps.Auth = authSvc
		sweeper, err = cron.NewSweeper(cfg.SessionSweepSchedule, authSvc, log)
		if err != nil {
			return err
		}
	} else {
		log.Warn().Msg("operator console is not protected, set OPERATOR_USERNAME and OPERATOR_PASSWORD_HASH")
	}

	logStartup(log, cfg)

	gin.SetMode(gin.ReleaseMode)
	server := web.NewServer(deps)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(gctx, cfg.HTTPAddr, cfg.ShutdownTimeout)
	})
	if sweeper != nil {
		g.Go(func() error {
			return sweeper.Run(gctx)
		})
	}
	return g.Wait()
}

func logStartup(log zerolog.Logger, cfg config.Config) {
	log.Info().
		Str("addr", cfg.HTTPAddr).
		Str("store", cfg.StoreBackend).
		Str("model", cfg.Model).
		Bool("telegram", cfg.TelegramEnabled()).
		Bool("console_auth", cfg.AuthEnabled()).
		Bool("signature_check", cfg.TwilioWebhookURL != "").
		Msg("relay starting")
}
