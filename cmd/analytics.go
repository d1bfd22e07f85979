package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/frontdesk/internal/analytics"
	"github.com/frontdesk/internal/voipms"
)

// AnalyticsCommand returns the one-shot analytics report command.
func AnalyticsCommand() *cli.Command {
	return &cli.Command{
		Name:  "analytics",
		Usage: "Print a communication analytics report for a date range",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "from",
				Usage: "Start date (YYYY-MM-DD), defaults to 30 days ago",
			},
			&cli.StringFlag{
				Name:  "to",
				Usage: "End date (YYYY-MM-DD), defaults to today",
			},
			&cli.StringFlag{
				Name:  "mailbox",
				Usage: "Voicemail mailbox to include",
				Value: "default",
			},
		},
		Action: runAnalytics,
	}
}

func runAnalytics(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	from := c.String("from")
	to := c.String("to")
	if to == "" {
		to = time.Now().Format("2006-01-02")
	}
	if from == "" {
		from = time.Now().AddDate(0, 0, -30).Format("2006-01-02")
	}
	for _, date := range []string{from, to} {
		if _, err := time.Parse("2006-01-02", date); err != nil {
			return fmt.Errorf("dates must be YYYY-MM-DD, got %q", date)
		}
	}

	provider := newProviderClient(cfg)
	ctx := context.Background()

	calls, err := provider.GetCDR(ctx, voipms.CDRFilters{DateFrom: from, DateTo: to})
	if err != nil {
		return fmt.Errorf("fetch call records: %w", err)
	}

	sms, err := provider.GetSMS(ctx, voipms.SMSFilters{DateFrom: from, DateTo: to})
	if err != nil {
		return fmt.Errorf("fetch message history: %w", err)
	}

	voicemails, err := provider.GetVoicemails(ctx, c.String("mailbox"), "")
	if err != nil {
		// Not every account has a mailbox configured.
		voicemails = nil
	}

	aggregator := &analytics.Aggregator{CostCeiling: cfg.Analytics.CostCeiling}
	report := aggregator.Summarize(calls, sms, voicemails)

	out, err := json.MarshalIndent(map[string]interface{}{
		"from":   from,
		"to":     to,
		"report": report,
	}, "", "  ")
	if err != nil {
		return err
	}

	fmt.Println(string(out))
	return nil
}
