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
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "jwt_secret: s3cret\n")

	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, "sqlite", cfg.DatabaseDriver)
	assert.Equal(t, 21, cfg.Alerts.EmailHour)
	assert.Equal(t, 30*time.Minute, cfg.Alerts.CheckInterval)
	assert.Equal(t, 5*time.Minute, cfg.Alerts.MinCheckGap)
	assert.Equal(t, 7*24*time.Hour, cfg.Alerts.HistoryRetention)
	assert.Equal(t, 587, cfg.Email.SMTPPort)
	assert.Equal(t, "farm/machines/+/meter", cfg.MQTT.Topic)
}

func TestLoadFromReadsValues(t *testing.T) {
	path := writeConfig(t, `
jwt_secret: s3cret
server_port: "9090"
alerts:
  timezone: UTC
  email_hour: 7
  check_interval: 10m
  recipients:
    - ops@farm.example
email:
  smtp_host: smtp.farm.example
  from: alerts@farm.example
`)

	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.ServerPort)
	assert.Equal(t, 7, cfg.Alerts.EmailHour)
	assert.Equal(t, 10*time.Minute, cfg.Alerts.CheckInterval)
	assert.Equal(t, []string{"ops@farm.example"}, cfg.Alerts.Recipients)
	assert.Equal(t, "smtp.farm.example", cfg.Email.SMTPHost)

	loc, err := cfg.Alerts.Location()
	require.NoError(t, err)
	assert.Equal(t, "UTC", loc.String())
}

func TestLoadFromRequiresSecret(t *testing.T) {
	path := writeConfig(t, "server_port: \"8080\"\n")
	_, err := LoadFrom(path)
	assert.Error(t, err)
}

func TestValidateRejectsBadHour(t *testing.T) {
	for _, hour := range []string{"24", "0", "-1"} {
		path := writeConfig(t, "jwt_secret: x\nalerts:\n  email_hour: "+hour+"\n")
		_, err := LoadFrom(path)
		assert.Error(t, err, "email_hour %s", hour)
	}
}
