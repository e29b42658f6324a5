package metrics

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/modeyang/rally/pkg/clock"
	"github.com/modeyang/rally/pkg/config"
	"github.com/modeyang/rally/pkg/errs"
	"github.com/modeyang/rally/pkg/track"
)

// SelectedChallenge names the challenge a race ran and its operation
// schedule, in declared order. Duplicate operation names are preserved.
type SelectedChallenge struct {
	Name       string   `json:"name"`
	Operations []string `json:"operations"`
}

// Race is the one-per-trial summary record, distinct from the per-sample
// metrics documents. It is created once at trial completion and never
// mutated afterwards.
type Race struct {
	Environment         string            `json:"environment"`
	TrialTimestamp      string            `json:"trial-timestamp"`
	Pipeline            string            `json:"pipeline"`
	Revision            string            `json:"revision"`
	DistributionVersion string            `json:"distribution-version"`
	Track               string            `json:"track"`
	Laps                int               `json:"laps"`
	SelectedChallenge   SelectedChallenge `json:"selected-challenge"`
	Car                 string            `json:"car"`
	TargetHosts         []string          `json:"target-hosts"`
	UserTag             string            `json:"user-tag"`
}

// RaceStore persists one race record per trial.
type RaceStore interface {
	StoreRace(t track.Track, targetHosts []config.Host, revision, distributionVersion string) error
}

// NewRace builds the race record for the configured trial from the track
// descriptor and the supplied arguments. The selected challenge is resolved
// by the configured challenge name; target hosts are rendered as host:port
// strings in input order.
func NewRace(cfg *config.Config, t track.Track, targetHosts []config.Host, revision, distributionVersion string) (Race, error) {
	challenge, ok := t.FindChallenge(cfg.ChallengeName)
	if !ok {
		return Race{}, errs.InvalidArgument("track [%s] does not define the challenge [%s]", t.Name, cfg.ChallengeName)
	}
	operations := make([]string, 0, len(challenge.Schedule))
	for _, task := range challenge.Schedule {
		operations = append(operations, task.Operation.Name)
	}
	hosts := make([]string, 0, len(targetHosts))
	for _, h := range targetHosts {
		hosts = append(hosts, h.String())
	}
	return Race{
		Environment:         cfg.EnvironmentName,
		TrialTimestamp:      formatTrialTimestamp(cfg.TrialStart),
		Pipeline:            cfg.Pipeline,
		Revision:            revision,
		DistributionVersion: distributionVersion,
		Track:               t.Name,
		Laps:                cfg.Laps,
		SelectedChallenge: SelectedChallenge{
			Name:       challenge.Name,
			Operations: operations,
		},
		Car:         cfg.CarName,
		TargetHosts: hosts,
		UserTag:     cfg.UserTag,
	}, nil
}

// ESRaceStore writes race records into the same yearly rally index as the
// metrics documents, under the races document type.
type ESRaceStore struct {
	cfg     *config.Config
	clock   clock.Clock
	backend Backend
	guard   *Guard
}

// NewESRaceStore creates a race store backed by the given backend.
func NewESRaceStore(cfg *config.Config, clk clock.Clock, backend Backend) *ESRaceStore {
	return &ESRaceStore{
		cfg:     cfg,
		clock:   clk,
		backend: backend,
		guard:   NewGuard(cfg.DataStore.Host, cfg.DataStore.Port, cfg.Location()),
	}
}

// StoreRace builds the race record and writes it once.
func (s *ESRaceStore) StoreRace(t track.Track, targetHosts []config.Host, revision, distributionVersion string) error {
	race, err := NewRace(s.cfg, t, targetHosts, revision, distributionVersion)
	if err != nil {
		return err
	}
	index := IndexName(s.cfg.TrialStart)
	log.WithFields(log.Fields{"index": index, "track": race.Track}).Info("Storing race")
	return s.guard.Do("store-race", func() error {
		return s.backend.Index(context.Background(), index, docTypeRaces, race)
	})
}
