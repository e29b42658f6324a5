package metrics

import (
	"context"
	"encoding/json"
	"fmt"

	elastic "github.com/olivere/elastic/v7"
	"github.com/pkg/errors"

	"github.com/modeyang/rally/pkg/config"
)

// Backend is the minimal surface of the metrics store backend the persisted
// stores need. It mirrors the raw index/search operations so that query
// bodies are built here, byte for byte, and tests can substitute a recording
// fake.
type Backend interface {
	IndexExists(ctx context.Context, index string) (bool, error)
	CreateIndex(ctx context.Context, index string) error
	PutTemplate(ctx context.Context, name, body string) error
	BulkIndex(ctx context.Context, index, docType string, docs []Sample) error
	Index(ctx context.Context, index, docType string, doc interface{}) error
	Search(ctx context.Context, index, docType string, body map[string]interface{}) (*SearchResult, error)
}

// SearchResult is the backend-agnostic slice of a search response the
// aggregation operations consume.
type SearchResult struct {
	// Hits holds the _source payloads of the matching documents in result
	// order.
	Hits []json.RawMessage

	// Percentiles holds the values of the percentile aggregation, keyed by
	// the backend's string form of each percent (e.g. "50.0").
	Percentiles map[string]float64

	// Buckets holds the buckets of the terms aggregation.
	Buckets []TermsBucket
}

// TermsBucket is one bucket of a terms aggregation.
type TermsBucket struct {
	Key      string
	DocCount int64
}

// aggregation names used in search requests and looked up in responses.
const (
	percentilesAggName = "percentile_stats"
	errorRateAggName   = "error_rate"
)

type elasticBackend struct {
	client *elastic.Client
}

// NewElasticBackend connects to the Elasticsearch metrics store described by
// the datastore configuration.
func NewElasticBackend(ds config.DataStore) (Backend, error) {
	scheme := "http"
	if ds.Secure {
		scheme = "https"
	}
	opts := []elastic.ClientOptionFunc{
		elastic.SetURL(fmt.Sprintf("%s://%s:%d", scheme, ds.Host, ds.Port)),
		elastic.SetSniff(false),
	}
	if ds.User != "" {
		opts = append(opts, elastic.SetBasicAuth(ds.User, ds.Password))
	}
	client, err := elastic.NewClient(opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "connecting to metrics store at %s:%d", ds.Host, ds.Port)
	}
	return &elasticBackend{client: client}, nil
}

func (b *elasticBackend) IndexExists(ctx context.Context, index string) (bool, error) {
	return b.client.IndexExists(index).Do(ctx)
}

func (b *elasticBackend) CreateIndex(ctx context.Context, index string) error {
	_, err := b.client.CreateIndex(index).Do(ctx)
	return err
}

func (b *elasticBackend) PutTemplate(ctx context.Context, name, body string) error {
	_, err := b.client.IndexPutTemplate(name).BodyString(body).Do(ctx)
	return err
}

func (b *elasticBackend) BulkIndex(ctx context.Context, index, docType string, docs []Sample) error {
	bulk := b.client.Bulk()
	for _, doc := range docs {
		bulk.Add(elastic.NewBulkIndexRequest().Index(index).Type(docType).Doc(doc))
	}
	resp, err := bulk.Do(ctx)
	if err != nil {
		return err
	}
	if resp.Errors {
		return errors.Errorf("bulk indexing %d documents into [%s] reported item failures", len(docs), index)
	}
	return nil
}

func (b *elasticBackend) Index(ctx context.Context, index, docType string, doc interface{}) error {
	_, err := b.client.Index().Index(index).Type(docType).BodyJson(doc).Do(ctx)
	return err
}

func (b *elasticBackend) Search(ctx context.Context, index, docType string, body map[string]interface{}) (*SearchResult, error) {
	resp, err := b.client.Search(index).Type(docType).Source(body).Do(ctx)
	if err != nil {
		return nil, err
	}
	result := &SearchResult{}
	if resp.Hits != nil {
		for _, hit := range resp.Hits.Hits {
			result.Hits = append(result.Hits, hit.Source)
		}
	}
	if agg, ok := resp.Aggregations.Percentiles(percentilesAggName); ok {
		result.Percentiles = agg.Values
	}
	if terms, ok := resp.Aggregations.Terms(errorRateAggName); ok {
		for _, bucket := range terms.Buckets {
			key := ""
			if bucket.KeyAsString != nil {
				key = *bucket.KeyAsString
			} else {
				key = fmt.Sprint(bucket.Key)
			}
			result.Buckets = append(result.Buckets, TermsBucket{Key: key, DocCount: bucket.DocCount})
		}
	}
	return result, nil
}
