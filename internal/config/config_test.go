package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "frontdesk.toml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, `
[provider]
username = "acct"
password = "apipass"
did = "5551234567"

[database]
url = "postgres://localhost/frontdesk"
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "https://voip.ms/api/v1/rest.php", cfg.Provider.APIURL)
	assert.Equal(t, 8900, cfg.Server.Port)
	// The provider replays registration-time ts/sig on every callback, so
	// the staleness window must be off unless explicitly configured.
	assert.Equal(t, 0, cfg.Webhook.ReplayWindowSec)
	assert.Equal(t, "America/New_York", cfg.Hours.Timezone)
	assert.Equal(t, "08:00-17:00", cfg.Hours.Schedule["monday"])
	assert.Equal(t, "09:00-13:00", cfg.Hours.Schedule["saturday"])
	assert.InDelta(t, 500.0, cfg.Analytics.CostCeiling, 0.001)
	assert.NotEmpty(t, cfg.Practice.Insurances)
	assert.NotEmpty(t, cfg.Webhook.Secret, "missing secret should be generated")

	require.NoError(t, Validate(cfg))
}

func TestLoadConfigFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[provider]
username = "acct"
password = "apipass"
did = "5551234567"

[webhook]
secret = "pinned-secret"
replay_window_sec = 300

[server]
port = 9100

[database]
url = "postgres://localhost/frontdesk"

[hours.schedule]
sunday = "10:00-14:00"
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "pinned-secret", cfg.Webhook.Secret)
	assert.Equal(t, 300, cfg.Webhook.ReplayWindowSec)
	assert.Equal(t, "10:00-14:00", cfg.Hours.Schedule["sunday"])
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
[provider]
username = "from-file"
password = "apipass"
did = "5551234567"

[database]
url = "postgres://localhost/frontdesk"
`)

	t.Setenv("FRONTDESK_PROVIDER__USERNAME", "from-env")
	t.Setenv("FRONTDESK_SERVER__PORT", "9200")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Provider.Username)
	assert.Equal(t, 9200, cfg.Server.Port)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.toml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg := &Config{}
		cfg.Provider.Username = "acct"
		cfg.Provider.Password = "apipass"
		cfg.Provider.DID = "5551234567"
		cfg.Database.URL = "postgres://localhost/frontdesk"
		return cfg
	}

	t.Run("valid", func(t *testing.T) {
		require.NoError(t, Validate(base()))
	})

	t.Run("missing credentials", func(t *testing.T) {
		cfg := base()
		cfg.Provider.Password = ""
		require.Error(t, Validate(cfg))
	})

	t.Run("missing database", func(t *testing.T) {
		cfg := base()
		cfg.Database.URL = ""
		require.Error(t, Validate(cfg))
	})

	t.Run("bad weekday", func(t *testing.T) {
		cfg := base()
		cfg.Hours.Schedule = map[string]string{"fridayy": "08:00-17:00"}
		require.Error(t, Validate(cfg))
	})

	t.Run("bad span", func(t *testing.T) {
		cfg := base()
		cfg.Hours.Schedule = map[string]string{"friday": "all day"}
		require.Error(t, Validate(cfg))
	})

	t.Run("empty span means closed", func(t *testing.T) {
		cfg := base()
		cfg.Hours.Schedule = map[string]string{"sunday": ""}
		require.NoError(t, Validate(cfg))
	})
}

func TestInitConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frontdesk.toml")

	require.NoError(t, InitConfig(path))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "your-voipms-username", cfg.Provider.Username)

	assert.Error(t, InitConfig(path), "refuses to overwrite an existing file")
}
