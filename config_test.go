package routekit

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "routekit.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultConfig(t *testing.T) {
	c := DefaultConfig()
	assert.Equal(t, DefaultMaxRedirects, c.MaxRedirects)
	assert.Equal(t, "info", c.LogLevel)
	assert.Equal(t, "text", c.LogFormat)
	assert.False(t, c.Metrics)
	assert.NoError(t, c.Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"defaults", DefaultConfig(), false},
		{"negative redirects", Config{MaxRedirects: -1, LogLevel: "info", LogFormat: "text"}, true},
		{"unknown level", Config{MaxRedirects: 1, LogLevel: "verbose", LogFormat: "text"}, true},
		{"unknown format", Config{MaxRedirects: 1, LogLevel: "info", LogFormat: "xml"}, true},
		{"json debug", Config{MaxRedirects: 1, LogLevel: "debug", LogFormat: "json"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
max_redirects = 3
log_level = "debug"
log_format = "json"
metrics = true
`)

	c, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, Config{MaxRedirects: 3, LogLevel: "debug", LogFormat: "json", Metrics: true}, c)
}

func TestLoadConfig_Defaults(t *testing.T) {
	c, err := LoadConfig(writeConfig(t, "metrics = true\n"))
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxRedirects, c.MaxRedirects)
	assert.Equal(t, "info", c.LogLevel)
	assert.True(t, c.Metrics)
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)

	_, err = LoadConfig(writeConfig(t, "max_redirects = \"ten\"\n"))
	assert.Error(t, err)

	_, err = LoadConfig(writeConfig(t, "log_level = \"chatty\"\n"))
	assert.ErrorContains(t, err, "invalid config")
}

func TestConfig_NewLogger(t *testing.T) {
	c := Config{LogLevel: "warn", LogFormat: "json"}
	var buf bytes.Buffer
	logger, err := c.NewLogger(&buf)
	require.NoError(t, err)

	logger.Info("dropped")
	logger.Warn("kept", "transition", 3)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "kept", line["msg"])
	assert.Equal(t, float64(3), line["transition"])

	_, err = (&Config{LogLevel: "nope"}).NewLogger(&buf)
	assert.Error(t, err)
}
