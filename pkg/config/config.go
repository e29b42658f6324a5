// Package config loads the rally configuration file and exposes the
// read-only inputs the metrics core consumes: environment name, race
// metadata, target hosts and the metrics datastore connection settings.
package config

import (
	"fmt"
	"path/filepath"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// DataStoreInMemory and DataStoreElasticsearch select where metrics and races
// are persisted.
const (
	DataStoreInMemory      = "in-memory"
	DataStoreElasticsearch = "elasticsearch"
)

// Host is one target host of the benchmark candidate.
type Host struct {
	Host string
	Port int
}

// String renders the host as "host:port".
func (h Host) String() string {
	return fmt.Sprintf("%s:%d", h.Host, h.Port)
}

// DataStore holds the connection settings of the metrics store backend.
type DataStore struct {
	Type     string
	Host     string
	Port     int
	Secure   bool
	User     string
	Password string
}

// Config is the configuration surface consumed by the metrics core. All
// fields are read-only inputs to document construction; nothing here is
// computed by the core itself.
type Config struct {
	EnvironmentName     string
	Pipeline            string
	UserTag             string
	TrialStart          time.Time
	Laps                int
	ChallengeName       string
	CarName             string
	TargetHosts         []Host
	SourceRevision      string
	DistributionVersion string

	DataStore DataStore

	location string
}

// Location returns the path of the configuration file this Config was loaded
// from. Transport failures reference it so users know what to fix.
func (c *Config) Location() string { return c.location }

// DefaultLocation returns the default configuration file path,
// ~/.rally/rally.ini.
func DefaultLocation() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", errors.Wrap(err, "resolving home directory")
	}
	return filepath.Join(home, ".rally", "rally.ini"), nil
}

// Load reads the configuration file from the default location.
func Load() (*Config, error) {
	location, err := DefaultLocation()
	if err != nil {
		return nil, err
	}
	return LoadFrom(location)
}

// LoadFrom reads the configuration file at the given path. Missing keys fall
// back to defaults; a missing file is an error.
func LoadFrom(location string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(location)
	v.SetConfigType("ini")

	v.SetDefault("system.env.name", "local")
	v.SetDefault("reporting.datastore.type", DataStoreInMemory)
	v.SetDefault("reporting.datastore.port", 9200)

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "reading configuration from %s", location)
	}

	cfg := &Config{
		EnvironmentName:     v.GetString("system.env.name"),
		Pipeline:            v.GetString("race.pipeline"),
		UserTag:             v.GetString("race.user.tag"),
		Laps:                v.GetInt("race.laps"),
		ChallengeName:       v.GetString("track.challenge.name"),
		CarName:             v.GetString("mechanic.car.name"),
		SourceRevision:      v.GetString("mechanic.source.revision"),
		DistributionVersion: v.GetString("mechanic.distribution.version"),
		DataStore: DataStore{
			Type:     v.GetString("reporting.datastore.type"),
			Host:     v.GetString("reporting.datastore.host"),
			Port:     v.GetInt("reporting.datastore.port"),
			Secure:   v.GetBool("reporting.datastore.secure"),
			User:     v.GetString("reporting.datastore.user"),
			Password: v.GetString("reporting.datastore.password"),
		},
		location: location,
	}

	for _, h := range v.GetStringSlice("launcher.external.target.hosts") {
		host, err := ParseHost(h)
		if err != nil {
			return nil, err
		}
		cfg.TargetHosts = append(cfg.TargetHosts, host)
	}

	return cfg, nil
}

// New returns a Config with the given environment name and file location,
// bypassing file loading. Intended for tests and for embedding callers that
// assemble the configuration themselves.
func New(environmentName, location string) *Config {
	return &Config{
		EnvironmentName: environmentName,
		DataStore:       DataStore{Type: DataStoreInMemory, Port: 9200},
		location:        location,
	}
}

// ParseHost parses a "host:port" string.
func ParseHost(s string) (Host, error) {
	var host string
	var port int
	n, err := fmt.Sscanf(s, "%[^:]:%d", &host, &port)
	if err != nil || n != 2 {
		return Host{}, errors.Errorf("target host %q is not in host:port form", s)
	}
	return Host{Host: host, Port: port}, nil
}
