package cmd

import (
	"time"

	"github.com/urfave/cli/v2"

	"github.com/frontdesk/internal/config"
	"github.com/frontdesk/internal/hours"
	"github.com/frontdesk/internal/responder"
	"github.com/frontdesk/internal/voipms"
	"github.com/frontdesk/internal/webhooksig"
)

// loadConfig reads and validates the configuration named by the global
// --config flag.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newProviderClient(cfg *config.Config) *voipms.Client {
	return voipms.NewClient(voipms.Options{
		APIURL:   cfg.Provider.APIURL,
		Username: cfg.Provider.Username,
		Password: cfg.Provider.Password,
		DID:      cfg.Provider.DID,
	})
}

func newSigner(cfg *config.Config) *webhooksig.Signer {
	window := time.Duration(cfg.Webhook.ReplayWindowSec) * time.Second
	return webhooksig.New(cfg.Webhook.Secret, window)
}

func newSchedule(cfg *config.Config) (*hours.Schedule, error) {
	return hours.New(cfg.Hours.Timezone, cfg.Hours.Schedule)
}

func newPersonalizer(cfg *config.Config, schedule *hours.Schedule) *responder.Personalizer {
	return responder.NewPersonalizer(responder.Profile{
		DisplayNumber:  cfg.Provider.DisplayNumber,
		EmergencyPhone: cfg.Provider.EmergencyPhone,
		Address:        cfg.Practice.Address,
		BusinessHours:  schedule.Format(),
		Insurances:     cfg.Practice.Insurances,
		Services:       cfg.Practice.Services,
	})
}
