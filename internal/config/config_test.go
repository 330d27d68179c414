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
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadFileDefaults(t *testing.T) {
	path := writeConfig(t, "store:\n  spreadsheet_id: abc123\n")

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "abc123", cfg.Store.SpreadsheetID)
	assert.Equal(t, "sheets", cfg.Store.Backend)
	assert.Equal(t, "Página1", cfg.Store.ValidTab)
	assert.Equal(t, "Cancelados", cfg.Store.CancelledTab)
	assert.Equal(t, "insert_only", cfg.Store.Mode)
	assert.Equal(t, 15, cfg.Geocode.Workers)
	assert.Equal(t, 10*time.Second, cfg.Geocode.Timeout)
	assert.Equal(t, "America/Maceio", cfg.Normalize.Timezone)
	assert.Equal(t, "UTC", cfg.Normalize.SourceTimezone)
	assert.Equal(t, []string{"IFOOD", "SITE DELIVERY (SAIPOS)", "BRENDI"}, cfg.Normalize.DeliveryChannels)
	assert.False(t, cfg.Normalize.DeriveCancelled)
	assert.Equal(t, 5*time.Minute, cfg.Source.SessionTimeout)
}

func TestLoadFileOverrides(t *testing.T) {
	path := writeConfig(t, `
store:
  backend: mysql
  mode: upsert
  dsn: "user:pass@tcp(localhost:3306)/sales"
geocode:
  workers: 4
  timeout: 5s
normalize:
  delivery_channels: ["IFOOD"]
  derive_cancelled: true
`)

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "mysql", cfg.Store.Backend)
	assert.Equal(t, "upsert", cfg.Store.Mode)
	assert.Equal(t, 4, cfg.Geocode.Workers)
	assert.Equal(t, 5*time.Second, cfg.Geocode.Timeout)
	assert.Equal(t, []string{"IFOOD"}, cfg.Normalize.DeliveryChannels)
	assert.True(t, cfg.Normalize.DeriveCancelled)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"timezone": "normalize:\n  timezone: Mars/Olympus\n",
		"mode":     "store:\n  mode: overwrite\n",
		"backend":  "store:\n  backend: postgres\n",
		"source":   "source:\n  kind: ftp\n",
		"workers":  "geocode:\n  workers: 0\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadFile(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestLocations(t *testing.T) {
	cfg := NormalizeConfig{Timezone: "America/Maceio", SourceTimezone: "UTC"}
	assert.Equal(t, "America/Maceio", cfg.Location().String())
	assert.Equal(t, "UTC", cfg.SourceLocation().String())
}
