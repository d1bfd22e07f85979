package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"
)

// WebhooksCommand returns the command that registers callback URLs with the
// provider directly, without going through the durable queue. Useful for
// initial setup before the server is running.
func WebhooksCommand() *cli.Command {
	return &cli.Command{
		Name:  "webhooks",
		Usage: "Manage provider webhook registration",
		Subcommands: []*cli.Command{
			{
				Name:   "install",
				Usage:  "Sign and register the SMS and call callback URLs",
				Action: runWebhooksInstall,
			},
		},
	}
}

func runWebhooksInstall(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if cfg.Webhook.BaseURL == "" {
		return fmt.Errorf("webhook.base_url must be set")
	}

	provider := newProviderClient(cfg)
	signer := newSigner(cfg)
	ctx := context.Background()

	smsURL := signer.Sign(cfg.Webhook.BaseURL + "/webhooks/sms")
	if err := provider.ConfigureSMSWebhook(ctx, smsURL); err != nil {
		return fmt.Errorf("register sms webhook: %w", err)
	}
	fmt.Println("SMS webhook registered")

	callURL := signer.Sign(cfg.Webhook.BaseURL + "/webhooks/call")
	if err := provider.ConfigureCallWebhook(ctx, callURL); err != nil {
		return fmt.Errorf("register call webhook: %w", err)
	}
	fmt.Println("Call webhook registered")

	return nil
}
