package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfigFile = `[system]
env.name = unittest

[race]
pipeline = from-sources
user.tag = intention:testing
laps = 3

[track]
challenge.name = append-no-conflicts

[mechanic]
car.name = defaults
source.revision = abc123
distribution.version = 5.0.0

[reporting]
datastore.type = elasticsearch
datastore.host = 10.17.1.5
datastore.port = 9243
datastore.secure = true
datastore.user = rally
datastore.password = secret

[launcher]
external.target.hosts = 10.5.5.1:9200 10.5.5.2:9200
`

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	location := filepath.Join(t.TempDir(), "rally.ini")
	require.NoError(t, os.WriteFile(location, []byte(contents), 0o644))
	return location
}

func TestLoadFrom(t *testing.T) {
	location := writeConfigFile(t, testConfigFile)

	cfg, err := LoadFrom(location)
	require.NoError(t, err)

	assert.Equal(t, "unittest", cfg.EnvironmentName)
	assert.Equal(t, "from-sources", cfg.Pipeline)
	assert.Equal(t, "intention:testing", cfg.UserTag)
	assert.Equal(t, 3, cfg.Laps)
	assert.Equal(t, "append-no-conflicts", cfg.ChallengeName)
	assert.Equal(t, "defaults", cfg.CarName)
	assert.Equal(t, "abc123", cfg.SourceRevision)
	assert.Equal(t, "5.0.0", cfg.DistributionVersion)
	assert.Equal(t, location, cfg.Location())

	assert.Equal(t, DataStore{
		Type:     DataStoreElasticsearch,
		Host:     "10.17.1.5",
		Port:     9243,
		Secure:   true,
		User:     "rally",
		Password: "secret",
	}, cfg.DataStore)

	assert.Equal(t, []Host{
		{Host: "10.5.5.1", Port: 9200},
		{Host: "10.5.5.2", Port: 9200},
	}, cfg.TargetHosts)
}

func TestLoadFromAppliesDefaults(t *testing.T) {
	location := writeConfigFile(t, "[race]\npipeline = benchmark-only\n")

	cfg, err := LoadFrom(location)
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.EnvironmentName)
	assert.Equal(t, DataStoreInMemory, cfg.DataStore.Type)
	assert.Equal(t, 9200, cfg.DataStore.Port)
	assert.Empty(t, cfg.TargetHosts)
}

func TestLoadFromMissingFile(t *testing.T) {
	_, err := LoadFrom(filepath.Join(t.TempDir(), "does-not-exist.ini"))
	assert.Error(t, err)
}

func TestLoadFromRejectsMalformedTargetHost(t *testing.T) {
	location := writeConfigFile(t, "[launcher]\nexternal.target.hosts = not-a-host-port\n")

	_, err := LoadFrom(location)
	assert.Error(t, err)
}

func TestParseHost(t *testing.T) {
	host, err := ParseHost("10.5.5.1:9200")
	require.NoError(t, err)
	assert.Equal(t, Host{Host: "10.5.5.1", Port: 9200}, host)
	assert.Equal(t, "10.5.5.1:9200", host.String())

	_, err = ParseHost("no-port")
	assert.Error(t, err)
}
