package acceptor

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFileConfig(t *testing.T) {
	path := writeConfig(t, `
[api]
base_url = "https://bank.example/parabank/services/bank"
timeout = "15s"

[api.default_headers]
X-Api-Key = "sekrit"

[ui]
base_url = "https://bank.example/parabank"
headless = false
settle_delay = "750ms"
timeout = "90s"

[auth]
username = "john"
password = "demo"

[auth.profile_defaults]
firstName = "Jane"

[retry]
max_retries = 5
api_delay = "2s"
ui_delay = "4s"
`)

	cfg, err := LoadFileConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "https://bank.example/parabank/services/bank", cfg.API.BaseURL)
	assert.Equal(t, 15*time.Second, time.Duration(cfg.API.Timeout))
	assert.Equal(t, "sekrit", cfg.API.DefaultHeaders["X-Api-Key"])

	require.NotNil(t, cfg.UI.Headless)
	assert.False(t, *cfg.UI.Headless)
	assert.Equal(t, 750*time.Millisecond, time.Duration(cfg.UI.SettleDelay))

	assert.Equal(t, "john", cfg.Auth.Username)
	assert.Equal(t, "Jane", cfg.Auth.ProfileDefaults["firstName"])

	require.NotNil(t, cfg.Retry.MaxRetries)
	assert.Equal(t, 5, *cfg.Retry.MaxRetries)
	assert.Equal(t, 2*time.Second, time.Duration(cfg.Retry.APIDelay))
}

func TestLoadFileConfig_Errors(t *testing.T) {
	_, err := LoadFileConfig(filepath.Join(t.TempDir(), "absent.toml"))
	require.Error(t, err)

	_, err = LoadFileConfig(writeConfig(t, "not toml at all ==="))
	require.Error(t, err)

	_, err = LoadFileConfig(writeConfig(t, "[api]\ntimeout = \"not-a-duration\"\n"))
	require.Error(t, err)
}

func TestApplyFile(t *testing.T) {
	cfg := &Config{
		UIHeadless:    true,
		MaxRetries:    2,
		APIRetryDelay: time.Second,
		UIRetryDelay:  3 * time.Second,
	}

	file, err := LoadFileConfig(writeConfig(t, `
[api]
base_url = "https://bank.example/api"

[ui]
base_url = "https://bank.example/ui"
`))
	require.NoError(t, err)
	cfg.applyFile(file)

	assert.Equal(t, "https://bank.example/api", cfg.APIBaseURL)
	assert.Equal(t, "https://bank.example/ui", cfg.UIBaseURL)
	// Settings the file does not mention keep their defaults.
	assert.True(t, cfg.UIHeadless)
	assert.Equal(t, 2, cfg.MaxRetries)
	assert.Equal(t, time.Second, cfg.APIRetryDelay)
	assert.Equal(t, 3*time.Second, cfg.UIRetryDelay)
}

func TestTOMLDuration(t *testing.T) {
	var d TOMLDuration
	require.NoError(t, d.UnmarshalText([]byte("1h30m")))
	assert.Equal(t, 90*time.Minute, time.Duration(d))

	require.Error(t, d.UnmarshalText([]byte("soon")))
}
