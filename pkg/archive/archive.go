// Package archive keeps race records on local disk for benchmarks that run
// without a remote metrics store. Records are stored in BadgerDB, keyed by
// trial timestamp, and can be listed for reporting.
package archive

import (
	"encoding/json"
	"strings"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/modeyang/rally/pkg/metrics"
)

const racePrefix = "race/"

// Config holds the archive's storage configuration.
type Config struct {
	// Path to the database directory.
	Path string

	// InMemory mode, for tests.
	InMemory bool
}

// RaceArchive is a local, append-only store of race records.
type RaceArchive struct {
	db *badger.DB
}

// Open opens (or creates) the archive at the configured path.
func Open(cfg Config) (*RaceArchive, error) {
	opts := badger.DefaultOptions(cfg.Path)
	if cfg.InMemory {
		opts = opts.WithInMemory(true)
	}
	opts = opts.
		WithNumVersionsToKeep(1).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrapf(err, "opening race archive at %s", cfg.Path)
	}
	return &RaceArchive{db: db}, nil
}

// Close shuts the archive down cleanly.
func (a *RaceArchive) Close() error {
	return a.db.Close()
}

// Store appends one race record. Several races may share a trial timestamp
// (e.g. reruns), so keys carry a random suffix; records are never updated.
func (a *RaceArchive) Store(race metrics.Race) error {
	value, err := json.Marshal(race)
	if err != nil {
		return errors.Wrap(err, "encoding race record")
	}
	key := racePrefix + race.TrialTimestamp + "/" + uuid.NewString()
	err = a.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
	return errors.Wrap(err, "storing race record")
}

// List returns all archived races in trial-timestamp order.
func (a *RaceArchive) List() ([]metrics.Race, error) {
	return a.scan(racePrefix)
}

// Find returns the races recorded for one trial timestamp.
func (a *RaceArchive) Find(trialTimestamp string) ([]metrics.Race, error) {
	return a.scan(racePrefix + trialTimestamp + "/")
}

func (a *RaceArchive) scan(prefix string) ([]metrics.Race, error) {
	var races []metrics.Race
	err := a.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		p := []byte(prefix)
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			item := it.Item()
			if !strings.HasPrefix(string(item.Key()), prefix) {
				continue
			}
			err := item.Value(func(value []byte) error {
				var race metrics.Race
				if err := json.Unmarshal(value, &race); err != nil {
					return errors.Wrapf(err, "decoding race record %s", item.Key())
				}
				races = append(races, race)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return races, nil
}
