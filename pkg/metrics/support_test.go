package metrics

import (
	"context"
	"time"

	"github.com/modeyang/rally/pkg/clock"
	"github.com/modeyang/rally/pkg/config"
)

// staticNow mirrors a fixed wall-clock reading so document timestamps are
// predictable: 2016-01-21T07:51:47Z.
const staticNow = int64(1453362707)

type staticClock struct{}

func (staticClock) Now() time.Time { return time.Unix(staticNow, 0) }

func (staticClock) StopWatch() clock.StopWatch { return staticStopWatch{} }

type staticStopWatch struct{}

func (staticStopWatch) Start()               {}
func (staticStopWatch) Stop()                {}
func (staticStopWatch) Split() time.Duration { return 0 }
func (staticStopWatch) Total() time.Duration { return 0 }

var trialTimestamp = time.Date(2016, 1, 31, 0, 0, 0, 0, time.UTC)

func testConfig(environment string) *config.Config {
	cfg := config.New(environment, "/home/user/.rally/rally.ini")
	cfg.DataStore.Host = "127.0.0.1"
	cfg.DataStore.Port = 9200
	return cfg
}

// fakeBackend records every backend interaction and answers searches with a
// canned result.
type fakeBackend struct {
	exists       bool
	existsChecks []string
	created      []string
	templates    map[string]string

	bulks   []bulkCall
	indexed []indexCall

	searchBodies []map[string]interface{}
	searchResult *SearchResult

	err error
}

type bulkCall struct {
	index   string
	docType string
	docs    []Sample
}

type indexCall struct {
	index   string
	docType string
	doc     interface{}
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{templates: make(map[string]string), searchResult: &SearchResult{}}
}

func (f *fakeBackend) IndexExists(_ context.Context, index string) (bool, error) {
	f.existsChecks = append(f.existsChecks, index)
	return f.exists, f.err
}

func (f *fakeBackend) CreateIndex(_ context.Context, index string) error {
	f.created = append(f.created, index)
	return f.err
}

func (f *fakeBackend) PutTemplate(_ context.Context, name, body string) error {
	f.templates[name] = body
	return f.err
}

func (f *fakeBackend) BulkIndex(_ context.Context, index, docType string, docs []Sample) error {
	f.bulks = append(f.bulks, bulkCall{index: index, docType: docType, docs: docs})
	return f.err
}

func (f *fakeBackend) Index(_ context.Context, index, docType string, doc interface{}) error {
	f.indexed = append(f.indexed, indexCall{index: index, docType: docType, doc: doc})
	return f.err
}

func (f *fakeBackend) Search(_ context.Context, index, docType string, body map[string]interface{}) (*SearchResult, error) {
	f.searchBodies = append(f.searchBodies, body)
	if f.err != nil {
		return nil, f.err
	}
	return f.searchResult, nil
}
