package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "signalist.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	for _, env := range []string{configPathEnv, httpAddrEnv, databaseDriverEnv, digestCronEnv, smtpPortEnv} {
		t.Setenv(env, "")
	}

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "badger", cfg.Database.Driver)
	assert.Equal(t, "0 12 * * *", cfg.Scheduler.CronExpression)
	assert.Equal(t, 5*time.Minute, cfg.Cache.GeneralNewsTTL)
	assert.Equal(t, 465, cfg.Mail.Port)
	assert.Equal(t, 8, cfg.Digest.Concurrency)
	assert.Equal(t, time.UTC.String(), cfg.Scheduler.Location().String())
}

func TestLoadFileThenEnv(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":9090"
logging:
  format: json
cache:
  generalNewsTtl: 90s
ai:
  provider: anthropic
  temperature: 0.2
scheduler:
  cronExpression: "30 7 * * 1-5"
  timezone: America/New_York
digest:
  concurrency: 4
`)
	t.Setenv(finnhubAPIKeyEnv, "fh-key")
	t.Setenv(mailUserEnv, "news@example.com")
	t.Setenv(smtpPortEnv, "587")
	t.Setenv(httpAddrEnv, ":7070")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.Server.Addr)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 90*time.Second, cfg.Cache.GeneralNewsTTL)
	assert.Equal(t, "anthropic", cfg.AI.Provider)
	assert.InDelta(t, 0.2, cfg.AI.Temperature, 1e-9)
	assert.Equal(t, 2048, cfg.AI.MaxTokens)
	assert.Equal(t, "fh-key", cfg.Finnhub.APIKey)
	assert.Equal(t, "news@example.com", cfg.Mail.Username)
	assert.Equal(t, 587, cfg.Mail.Port)
	assert.Equal(t, 4, cfg.Digest.Concurrency)
	assert.Equal(t, "America/New_York", cfg.Scheduler.Location().String())
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Setenv(configPathEnv, "")

	t.Run("driver", func(t *testing.T) {
		t.Setenv(databaseDriverEnv, "mongodb")
		_, err := Load("")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Driver")
	})

	t.Run("postgres without dsn", func(t *testing.T) {
		t.Setenv(databaseDriverEnv, "postgres")
		_, err := Load("")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "DSN")
	})

	t.Run("smtp port", func(t *testing.T) {
		t.Setenv(smtpPortEnv, "abc")
		_, err := Load("")
		require.Error(t, err)
	})

	t.Run("timezone", func(t *testing.T) {
		_, err := Load(writeConfig(t, "scheduler:\n  timezone: Mars/Olympus\n"))
		require.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		require.Error(t, err)
	})
}

func TestMissingSecretsAreNotFatal(t *testing.T) {
	t.Setenv(configPathEnv, "")
	t.Setenv(authSecretEnv, "")
	t.Setenv(openAIAPIKeyEnv, "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Empty(t, cfg.Auth.Secret)
	assert.Empty(t, cfg.AI.OpenAIAPIKey)
}
