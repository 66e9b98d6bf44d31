package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDocumentYAML(t *testing.T) {
	doc, err := ParseDocument([]byte(`
id: venue
extends: base
rateLimit: 750
urls:
  api:
    public: https://venue.example/api
options:
  marketsKey: pairs
`))
	require.NoError(t, err)
	assert.Equal(t, "venue", doc.String("id", ""))
	assert.Equal(t, "base", doc.String("extends", ""))
	assert.Equal(t, "https://venue.example/api",
		doc.Section("urls").Section("api").String("public", ""))
	assert.Equal(t, "pairs", doc.Section("options").String("marketsKey", ""))
}

func TestParseDocumentInvalidYAML(t *testing.T) {
	_, err := ParseDocument([]byte("{broken"))
	assert.Error(t, err)
}

func TestLoadDocumentFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "venue.yaml")
	require.NoError(t, os.WriteFile(path, []byte("id: filevenue\n"), 0o600))

	doc, err := LoadDocument(path)
	require.NoError(t, err)
	assert.Equal(t, "filevenue", doc.String("id", ""))

	_, err = LoadDocument(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestCredentialsFromEnv(t *testing.T) {
	t.Setenv("VENUE_API_KEY", "k")
	t.Setenv("VENUE_SECRET", "s")
	t.Setenv("VENUE_PASSWORD", "p")

	creds, err := CredentialsFromEnv("venue")
	require.NoError(t, err)
	assert.Equal(t, "k", creds.APIKey)
	assert.Equal(t, "s", creds.Secret)
	assert.Equal(t, "p", creds.Password)
}

func TestCredentialsFromDotenvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("DOTVENUE_API_KEY=dk\nDOTVENUE_SECRET=ds\n"), 0o600))

	creds, err := CredentialsFromEnv("dotvenue", path)
	require.NoError(t, err)
	assert.Equal(t, "dk", creds.APIKey)
	assert.Equal(t, "ds", creds.Secret)
	assert.Empty(t, creds.Password)
}

func TestSettingsValidate(t *testing.T) {
	require.NoError(t, DefaultSettings().Validate())

	bad := DefaultSettings()
	bad.Timeout = 0
	assert.Error(t, bad.Validate())

	bad = DefaultSettings()
	bad.LogLevel = "loud"
	assert.Error(t, bad.Validate())
}
