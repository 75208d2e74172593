package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadAccountsReadsJSONSequence(t *testing.T) {
	path := writeFile(t, "accounts.json", `[
		{"username": "500100200", "password": "secret"},
		{"username": "500300400", "device": "dev-1", "deviceName": "Pixel", "deviceToken": "dt", "offlineToken": "ot", "customerId": "C42"}
	]`)

	creds, err := LoadAccounts(path)
	require.NoError(t, err)
	require.Len(t, creds, 2)

	assert.Equal(t, "500100200", creds[0].Username)
	assert.Equal(t, FlowPassword, creds[0].Flow())
	assert.Equal(t, FlowDevice, creds[1].Flow())
	assert.Equal(t, "Pixel", creds[1].DeviceName)
	assert.Equal(t, "C42", creds[1].CustomerID)
}

func TestLoadAccountsReadsYAML(t *testing.T) {
	path := writeFile(t, "accounts.yaml", "- username: alice\n  password: pw\n")

	creds, err := LoadAccounts(path)
	require.NoError(t, err)
	require.Len(t, creds, 1)
	assert.Equal(t, "alice", creds[0].Username)
}

func TestLoadAccountsEmptyFile(t *testing.T) {
	path := writeFile(t, "accounts.yaml", "")

	creds, err := LoadAccounts(path)
	require.NoError(t, err)
	assert.Empty(t, creds)
}

func TestLoadAccountsErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{name: "malformed", content: `[{"username": `, want: "decode"},
		{name: "missing username", content: `[{"password": "x"}]`, want: "username is required"},
		{name: "no secret", content: `[{"username": "u"}]`, want: "either password or offlineToken"},
		{name: "incomplete device", content: `[{"username": "u", "offlineToken": "ot"}]`, want: "device flow needs"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "accounts.json", tt.content)
			_, err := LoadAccounts(path)
			require.Error(t, err)

			var cfgErr *ConfigError
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, path, cfgErr.Path)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadAccountsMissingFile(t *testing.T) {
	_, err := LoadAccounts(filepath.Join(t.TempDir(), "nope.json"))
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadSettingsDefaults(t *testing.T) {
	t.Setenv("ORANGEPL_API_KEY", "key-123")

	s, err := Load(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, ":5000", s.ListenAddress)
	assert.Equal(t, "accounts.json", s.AccountsFile)
	assert.Equal(t, "key-123", s.API.Key)
	assert.Equal(t, 15*time.Second, s.API.Timeout)
	assert.Equal(t, 4, s.Scrape.Concurrency)
	assert.Equal(t, "/app/oauth/v2/token", s.Generations.For(FlowPassword).TokenPath)
	assert.Equal(t, "billingAccountCode", s.Generations.For(FlowPassword).AccountCodeField)
	assert.Equal(t, "/app/oauth/v3/authorize", s.Generations.For(FlowDevice).AuthorizePath)

	loc, err := s.Scrape.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Warsaw", loc.String())
}

func TestLoadSettingsFileAndEnv(t *testing.T) {
	path := writeFile(t, "settings.yaml", `
listen_address: ":9200"
api:
  key: from-file
  timeout: 5s
scrape:
  concurrency: 8
  timezone: UTC
generations:
  password:
    status_path: /prepaid/v9/{code}
`)
	t.Setenv("ORANGEPL_ACCOUNTS_FILE", "/etc/orangepl/accounts.json")

	s, err := Load(viper.New(), path)
	require.NoError(t, err)

	assert.Equal(t, ":9200", s.ListenAddress)
	assert.Equal(t, "/etc/orangepl/accounts.json", s.AccountsFile)
	assert.Equal(t, "from-file", s.API.Key)
	assert.Equal(t, 5*time.Second, s.API.Timeout)
	assert.Equal(t, 8, s.Scrape.Concurrency)
	assert.Equal(t, "/prepaid/v9/{code}", s.Generations.Password.StatusPath)
	assert.Equal(t, "/app/oauth/v2/authInfo", s.Generations.Password.CustomerPath)
}

func TestLoadSettingsRequiresAPIKey(t *testing.T) {
	t.Setenv("ORANGEPL_API_KEY", "")

	_, err := Load(viper.New(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ORANGEPL_API_KEY")
}

func TestLoadSettingsRejectsUnknownTimezone(t *testing.T) {
	t.Setenv("ORANGEPL_API_KEY", "k")
	t.Setenv("ORANGEPL_SCRAPE_TIMEZONE", "Mars/Olympus")

	_, err := Load(viper.New(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timezone")
}
