package metrics

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/modeyang/rally/pkg/clock"
	"github.com/modeyang/rally/pkg/config"
)

// document type tags within the yearly rally index.
const (
	docTypeMetrics = "metrics"
	docTypeRaces   = "races"
)

// templateName is the name the index template is installed under.
const templateName = "rally"

// ESMetricsStore writes sample documents to an Elasticsearch index and
// answers aggregation queries by delegating to the backend's query and
// aggregation facilities. Writes are buffered locally and flushed as one
// bulk request on Close. It expects a single logical writer per trial.
//
// Timeouts and cancellation belong to the transport layer behind Backend;
// this store only classifies failures after they occur, via Guard.
type ESMetricsStore struct {
	storeContext
	backend  Backend
	guard    *Guard
	template string
	index    string
	buffer   []Sample
}

// NewESMetricsStore creates a metrics store backed by the given backend. The
// datastore connection settings and the configuration file location for
// diagnostics are taken from cfg.
func NewESMetricsStore(cfg *config.Config, clk clock.Clock, backend Backend) *ESMetricsStore {
	return &ESMetricsStore{
		storeContext: newStoreContext(cfg, clk),
		backend:      backend,
		guard:        NewGuard(cfg.DataStore.Host, cfg.DataStore.Port, cfg.Location()),
		template:     IndexTemplate,
	}
}

// SetTemplate overrides the index template body installed on provisioning.
func (s *ESMetricsStore) SetTemplate(body string) { s.template = body }

// Open starts a trial context against the rally-<year> index of the trial
// timestamp. With create=true the index is provisioned if missing, and the
// field mapping template is installed.
func (s *ESMetricsStore) Open(trialTimestamp time.Time, trackName, challengeName, carName string, create bool) error {
	if err := s.open(trialTimestamp, trackName, challengeName, carName); err != nil {
		return err
	}
	s.index = IndexName(trialTimestamp)
	if create {
		if err := s.provision(); err != nil {
			s.opened = false
			return err
		}
	}
	return nil
}

func (s *ESMetricsStore) provision() error {
	ctx := context.Background()
	var exists bool
	err := s.guard.Do("index-exists", func() error {
		var err error
		exists, err = s.backend.IndexExists(ctx, s.index)
		return err
	})
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	log.WithField("index", s.index).Info("Creating metrics index")
	if err := s.guard.Do("put-template", func() error {
		return s.backend.PutTemplate(ctx, templateName, s.template)
	}); err != nil {
		return err
	}
	return s.guard.Do("create-index", func() error {
		return s.backend.CreateIndex(ctx, s.index)
	})
}

// SetLap sets the current lap for subsequent writes.
func (s *ESMetricsStore) SetLap(lap int) error { return s.setLap(lap) }

// Lap returns the current lap.
func (s *ESMetricsStore) Lap() int { return s.lap }

// AddMetaInfo registers meta info with the trial's registry.
func (s *ESMetricsStore) AddMetaInfo(scope MetaInfoScope, nodeID, key string, value interface{}) error {
	return s.addMetaInfo(scope, nodeID, key, value)
}

// PutCountClusterLevel buffers a cluster-scoped count sample.
func (s *ESMetricsStore) PutCountClusterLevel(name string, count int64, unit string, opts ...Option) error {
	return s.put("", name, float64(count), unit, opts)
}

// PutValueClusterLevel buffers a cluster-scoped value sample.
func (s *ESMetricsStore) PutValueClusterLevel(name string, value float64, unit string, opts ...Option) error {
	return s.put("", name, value, unit, opts)
}

// PutCountNodeLevel buffers a count sample attributed to the given node.
func (s *ESMetricsStore) PutCountNodeLevel(nodeID, name string, count int64, unit string, opts ...Option) error {
	return s.put(nodeID, name, float64(count), unit, opts)
}

// PutValueNodeLevel buffers a value sample attributed to the given node.
func (s *ESMetricsStore) PutValueNodeLevel(nodeID, name string, value float64, unit string, opts ...Option) error {
	return s.put(nodeID, name, value, unit, opts)
}

func (s *ESMetricsStore) put(nodeID, name string, value float64, unit string, opts []Option) error {
	doc, err := s.newSample(nodeID, name, value, unit, applyOptions(opts))
	if err != nil {
		return err
	}
	s.buffer = append(s.buffer, doc)
	return nil
}

// Close flushes all buffered documents as one bulk request and invalidates
// the trial context.
func (s *ESMetricsStore) Close() error {
	if err := s.close(); err != nil {
		return err
	}
	if len(s.buffer) == 0 {
		return nil
	}
	docs := s.buffer
	s.buffer = nil
	log.WithFields(log.Fields{"index": s.index, "docs": len(docs)}).Debug("Flushing metrics")
	return s.guard.Do("bulk-index", func() error {
		return s.backend.BulkIndex(context.Background(), s.index, docTypeMetrics, docs)
	})
}

// GetOne returns the value of the matching document, resolved by the
// backend. Ties are broken deterministically: most recent @timestamp wins.
// Returns 0 when nothing matches.
func (s *ESMetricsStore) GetOne(name string, opts ...Option) (float64, error) {
	o := applyOptions(opts)
	body := map[string]interface{}{
		"query": s.query(name, o),
		"size":  1,
		"sort": []interface{}{
			map[string]interface{}{"@timestamp": map[string]interface{}{"order": "desc"}},
		},
	}
	result, err := s.search(body)
	if err != nil {
		return 0, err
	}
	if len(result.Hits) == 0 {
		return 0, nil
	}
	var source struct {
		Value float64 `json:"value"`
	}
	if err := json.Unmarshal(result.Hits[0], &source); err != nil {
		return 0, errors.Wrapf(err, "decoding metrics document for [%s]", name)
	}
	return source.Value, nil
}

// GetPercentiles requests a backend-native percentile aggregation over the
// matching documents' value field, with exactly the requested percents.
func (s *ESMetricsStore) GetPercentiles(name string, percentiles []float64, opts ...Option) (map[float64]float64, error) {
	o := applyOptions(opts)
	body := map[string]interface{}{
		"query": s.query(name, o),
		"size":  0,
		"aggs": map[string]interface{}{
			percentilesAggName: map[string]interface{}{
				"percentiles": map[string]interface{}{
					"field":    "value",
					"percents": percentiles,
				},
			},
		},
	}
	result, err := s.search(body)
	if err != nil {
		return nil, err
	}
	values := make(map[float64]float64, len(percentiles))
	for _, p := range percentiles {
		if v, ok := lookupPercentile(result.Percentiles, p); ok {
			values[p] = v
		}
	}
	return values, nil
}

// GetMedian is GetPercentiles([50])[50].
func (s *ESMetricsStore) GetMedian(name string, opts ...Option) (float64, error) {
	result, err := s.GetPercentiles(name, []float64{50}, opts...)
	if err != nil {
		return 0, err
	}
	return result[50], nil
}

// GetErrorRate requests a terms aggregation over the boolean success meta
// flag of the operation's service_time documents. Buckets that are neither
// "true" nor "false" are ignored.
func (s *ESMetricsStore) GetErrorRate(operation string, opts ...Option) (float64, error) {
	o := applyOptions(opts)
	o.operation = operation
	body := map[string]interface{}{
		"query": s.query(serviceTimeMetric, o),
		"size":  0,
		"aggs": map[string]interface{}{
			errorRateAggName: map[string]interface{}{
				"terms": map[string]interface{}{
					"field": "meta.success",
				},
			},
		},
	}
	result, err := s.search(body)
	if err != nil {
		return 0, err
	}
	var falseCount, trueCount int64
	for _, bucket := range result.Buckets {
		switch bucket.Key {
		case "false":
			falseCount = bucket.DocCount
		case "true":
			trueCount = bucket.DocCount
		}
	}
	return errorRate(falseCount, trueCount), nil
}

func (s *ESMetricsStore) search(body map[string]interface{}) (*SearchResult, error) {
	var result *SearchResult
	err := s.guard.Do("search", func() error {
		var err error
		result, err = s.backend.Search(context.Background(), s.index, docTypeMetrics, body)
		return err
	})
	return result, err
}

// query builds the boolean filter conjunction for the active dimensions, in
// fixed order: trial-timestamp, environment, track, challenge, car,
// [operation], name, [lap]. Omitted optional dimensions are omitted from the
// filter list entirely.
func (s *ESMetricsStore) query(name string, o options) map[string]interface{} {
	filters := []interface{}{
		term("trial-timestamp", s.trialTimestampValue),
		term("environment", s.cfg.EnvironmentName),
		term("track", s.track),
		term("challenge", s.challenge),
		term("car", s.car),
	}
	if o.operation != "" {
		filters = append(filters, term("operation", o.operation))
	}
	filters = append(filters, term("name", name))
	if o.lap > 0 {
		filters = append(filters, term("lap", o.lap))
	}
	return map[string]interface{}{
		"bool": map[string]interface{}{
			"filter": filters,
		},
	}
}

func term(field string, value interface{}) map[string]interface{} {
	return map[string]interface{}{
		"term": map[string]interface{}{field: value},
	}
}

// lookupPercentile resolves a requested percent in the backend's response
// map, which keys percents by their string form with at least one decimal
// place (e.g. "99.0", "99.9").
func lookupPercentile(values map[string]float64, p float64) (float64, bool) {
	if v, ok := values[strconv.FormatFloat(p, 'f', -1, 64)]; ok {
		return v, true
	}
	v, ok := values[strconv.FormatFloat(p, 'f', 1, 64)]
	return v, ok
}
