package cmd

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/frontdesk/internal/analytics"
	"github.com/frontdesk/internal/api"
	"github.com/frontdesk/internal/intent"
	"github.com/frontdesk/internal/jobqueue"
	"github.com/frontdesk/internal/responder"
	"github.com/frontdesk/internal/store"
)

// ServeCommand returns the CLI command that runs the gateway: webhook
// receivers, admin API, and the background job queue.
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the gateway server",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Override the configured HTTP port",
			},
			&cli.BoolFlag{
				Name:  "install-webhooks",
				Usage: "Register callback URLs with the provider on startup",
			},
		},
		Action: runServe,
	}
}

func runServe(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	port := cfg.Server.Port
	if c.IsSet("port") {
		port = c.Int("port")
	}

	provider := newProviderClient(cfg)
	signer := newSigner(cfg)

	schedule, err := newSchedule(cfg)
	if err != nil {
		return fmt.Errorf("invalid business hours: %w", err)
	}

	st, err := store.Open(cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer st.Close()

	ctx := context.Background()
	if err := st.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	staffNumber := cfg.Provider.EmergencyPhone
	if staffNumber == "" {
		staffNumber = cfg.Provider.ForwardNumber
	}

	queue, err := jobqueue.NewJobQueue(ctx, cfg.Database.URL, jobqueue.Deps{
		Sender:      provider,
		Configurer:  provider,
		Signer:      signer,
		StaffNumber: staffNumber,
		FromDID:     provider.DID(),
	}, nil)
	if err != nil {
		return fmt.Errorf("create job queue: %w", err)
	}
	if err := queue.Start(ctx); err != nil {
		return fmt.Errorf("start job queue: %w", err)
	}
	defer func() {
		if err := queue.Stop(context.Background()); err != nil {
			log.Warn().Err(err).Msg("job queue shutdown")
		}
	}()

	if c.Bool("install-webhooks") {
		if cfg.Webhook.BaseURL == "" {
			return fmt.Errorf("webhook.base_url must be set to install webhooks")
		}
		smsURL := cfg.Webhook.BaseURL + "/webhooks/sms"
		callURL := cfg.Webhook.BaseURL + "/webhooks/call"
		if err := queue.QueueWebhookInstall(ctx, jobqueue.WebhookTargetSMS, smsURL); err != nil {
			return err
		}
		if err := queue.QueueWebhookInstall(ctx, jobqueue.WebhookTargetCall, callURL); err != nil {
			return err
		}
		log.Info().Str("base_url", cfg.Webhook.BaseURL).Msg("webhook installation queued")
	}

	resp := responder.New(
		provider,
		st,
		queue,
		intent.NewClassifier(nil),
		schedule,
		newPersonalizer(cfg, schedule),
	)

	server := api.NewServer(port, api.Deps{
		Handler:      resp,
		Provider:     provider,
		Store:        st,
		Signer:       signer,
		CallbackBase: cfg.Webhook.BaseURL,
		Mailbox:      "default",
		Analytics:    &analytics.Aggregator{CostCeiling: cfg.Analytics.CostCeiling},
	})

	log.Info().Int("port", port).Str("did", provider.DID()).Msg("gateway starting")
	return server.Start(ctx)
}
