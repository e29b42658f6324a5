package metrics

import (
	"encoding/json"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/pkg/errors"

	"github.com/modeyang/rally/pkg/clock"
	"github.com/modeyang/rally/pkg/config"
	"github.com/modeyang/rally/pkg/errs"
)

// Snapshot is a portable, order-preserving copy of a store's buffered
// documents. It can cross a process boundary (file, pipe, HTTP) and be
// absorbed elsewhere with BulkAdd. The checksum is computed over the encoded
// document list and is verified before merging.
type Snapshot struct {
	Documents []byte `json:"documents"`
	DocCount  int    `json:"doc_count"`
	Checksum  uint64 `json:"checksum"`
}

// InMemoryStore buffers sample documents for one worker process during a
// trial. It holds no synchronization primitives: each worker owns exactly one
// store, and cross-worker merging happens through Externalize/BulkAdd after
// the owning worker has closed its buffer.
//
// The buffer is scoped to a single trial, so aggregation reads filter by
// metric name, sample type and the optional lap/operation dimensions only;
// the trial dimensions (track, challenge, car, environment, trial timestamp)
// are uniform across the buffer by construction. Documents survive Close and
// remain readable until the store is discarded.
type InMemoryStore struct {
	storeContext
	docs []Sample
}

// NewInMemoryStore creates an empty in-memory metrics store.
func NewInMemoryStore(cfg *config.Config, clk clock.Clock) *InMemoryStore {
	return &InMemoryStore{
		storeContext: newStoreContext(cfg, clk),
		docs:         make([]Sample, 0, 1024),
	}
}

// Open starts a trial context. The create flag has no effect for the
// in-memory variant; it exists for contract parity with the persisted store.
func (s *InMemoryStore) Open(trialTimestamp time.Time, trackName, challengeName, carName string, create bool) error {
	return s.open(trialTimestamp, trackName, challengeName, carName)
}

// SetLap sets the current lap for subsequent writes.
func (s *InMemoryStore) SetLap(lap int) error { return s.setLap(lap) }

// Lap returns the current lap.
func (s *InMemoryStore) Lap() int { return s.lap }

// AddMetaInfo registers meta info with the trial's registry.
func (s *InMemoryStore) AddMetaInfo(scope MetaInfoScope, nodeID, key string, value interface{}) error {
	return s.addMetaInfo(scope, nodeID, key, value)
}

// Close finalizes the buffer. Nothing is transmitted; the documents stay
// available for reads and for externalization.
func (s *InMemoryStore) Close() error { return s.close() }

// PutCountClusterLevel appends a cluster-scoped count sample.
func (s *InMemoryStore) PutCountClusterLevel(name string, count int64, unit string, opts ...Option) error {
	return s.put("", name, float64(count), unit, opts)
}

// PutValueClusterLevel appends a cluster-scoped value sample.
func (s *InMemoryStore) PutValueClusterLevel(name string, value float64, unit string, opts ...Option) error {
	return s.put("", name, value, unit, opts)
}

// PutCountNodeLevel appends a count sample attributed to the given node.
func (s *InMemoryStore) PutCountNodeLevel(nodeID, name string, count int64, unit string, opts ...Option) error {
	if nodeID == "" {
		return errs.InvalidArgument("node-level sample [%s] requires a node id", name)
	}
	return s.put(nodeID, name, float64(count), unit, opts)
}

// PutValueNodeLevel appends a value sample attributed to the given node.
func (s *InMemoryStore) PutValueNodeLevel(nodeID, name string, value float64, unit string, opts ...Option) error {
	if nodeID == "" {
		return errs.InvalidArgument("node-level sample [%s] requires a node id", name)
	}
	return s.put(nodeID, name, value, unit, opts)
}

func (s *InMemoryStore) put(nodeID, name string, value float64, unit string, opts []Option) error {
	doc, err := s.newSample(nodeID, name, value, unit, applyOptions(opts))
	if err != nil {
		return err
	}
	s.docs = append(s.docs, doc)
	return nil
}

// DocCount returns the number of buffered documents.
func (s *InMemoryStore) DocCount() int { return len(s.docs) }

// Documents returns the buffered documents in write order. The returned
// slice is shared; callers must not modify it.
func (s *InMemoryStore) Documents() []Sample { return s.docs }

// Externalize produces a serializable snapshot of the entire buffer, order
// preserved, independent of this process's memory layout.
func (s *InMemoryStore) Externalize() (*Snapshot, error) {
	encoded, err := json.Marshal(s.docs)
	if err != nil {
		return nil, errors.Wrap(err, "encoding metrics snapshot")
	}
	return &Snapshot{
		Documents: encoded,
		DocCount:  len(s.docs),
		Checksum:  xxhash.Sum64(encoded),
	}, nil
}

// BulkAdd appends every document of a previously externalized snapshot to the
// buffer, fields unchanged. Merging is pure append: no deduplication, no
// reordering. It may be called repeatedly with snapshots from different
// workers; a corrupt snapshot is rejected before anything is merged.
func (s *InMemoryStore) BulkAdd(snapshot *Snapshot) error {
	if snapshot == nil {
		return errs.InvalidArgument("snapshot must not be nil")
	}
	if xxhash.Sum64(snapshot.Documents) != snapshot.Checksum {
		return errs.InvalidArgument("snapshot checksum mismatch, refusing to merge corrupt documents")
	}
	var docs []Sample
	if err := json.Unmarshal(snapshot.Documents, &docs); err != nil {
		return errors.Wrap(err, "decoding metrics snapshot")
	}
	s.docs = append(s.docs, docs...)
	return nil
}

// GetOne returns the value of the matching document. With several matches the
// most recently written document wins; with none, 0 is returned.
func (s *InMemoryStore) GetOne(name string, opts ...Option) (float64, error) {
	o := applyOptions(opts)
	value := 0.0
	for _, doc := range s.docs {
		if s.matches(doc, name, o) {
			value = doc.Value
		}
	}
	return value, nil
}

// GetPercentiles computes nearest-rank percentiles over the matching values.
func (s *InMemoryStore) GetPercentiles(name string, percentiles []float64, opts ...Option) (map[float64]float64, error) {
	o := applyOptions(opts)
	var values []float64
	for _, doc := range s.docs {
		if s.matches(doc, name, o) {
			values = append(values, doc.Value)
		}
	}
	return percentileValues(values, percentiles), nil
}

// GetMedian returns the 50th percentile of the matching values.
func (s *InMemoryStore) GetMedian(name string, opts ...Option) (float64, error) {
	result, err := s.GetPercentiles(name, []float64{50}, opts...)
	if err != nil {
		return 0, err
	}
	return result[50], nil
}

// GetErrorRate computes the failure share of service_time samples for the
// given operation from the boolean success meta flag. Samples without a
// boolean success flag do not count towards the denominator.
func (s *InMemoryStore) GetErrorRate(operation string, opts ...Option) (float64, error) {
	o := applyOptions(opts)
	o.operation = operation
	var falseCount, trueCount int64
	for _, doc := range s.docs {
		if !s.matches(doc, serviceTimeMetric, o) {
			continue
		}
		success, ok := doc.Meta["success"].(bool)
		if !ok {
			continue
		}
		if success {
			trueCount++
		} else {
			falseCount++
		}
	}
	return errorRate(falseCount, trueCount), nil
}

func (s *InMemoryStore) matches(doc Sample, name string, o options) bool {
	if doc.Name != name || doc.SampleType != o.sampleType {
		return false
	}
	if o.lap > 0 && doc.Lap != o.lap {
		return false
	}
	if o.operation != "" && doc.Operation != o.operation {
		return false
	}
	return true
}
