package metrics

import (
	"fmt"
	"strings"
	"time"

	"github.com/modeyang/rally/pkg/clock"
	"github.com/modeyang/rally/pkg/config"
	"github.com/modeyang/rally/pkg/errs"
)

// serviceTimeMetric is the metric name error rates are computed from.
const serviceTimeMetric = "service_time"

// trialTimestampLayout renders trial timestamps as compact UTC strings,
// e.g. 20160131T000000Z.
const trialTimestampLayout = "20060102T150405Z"

// Store is the contract shared by the in-memory and the Elasticsearch-backed
// metrics store. Writes are only legal between Open and Close; aggregation
// reads are pure and may run concurrently once the store is closed.
type Store interface {
	// Open starts a trial context. With create=true the backing index for
	// the trial's year is provisioned if it does not exist yet.
	Open(trialTimestamp time.Time, trackName, challengeName, carName string, create bool) error

	// SetLap sets the current lap. Laps are positive.
	SetLap(lap int) error

	// Lap returns the current lap.
	Lap() int

	// AddMetaInfo registers a descriptive tag that is merged into every
	// subsequently written document of the given scope.
	AddMetaInfo(scope MetaInfoScope, nodeID, key string, value interface{}) error

	// PutCountClusterLevel appends a cluster-scoped count sample.
	PutCountClusterLevel(name string, count int64, unit string, opts ...Option) error

	// PutValueClusterLevel appends a cluster-scoped value sample.
	PutValueClusterLevel(name string, value float64, unit string, opts ...Option) error

	// PutCountNodeLevel appends a count sample attributed to one node.
	PutCountNodeLevel(nodeID, name string, count int64, unit string, opts ...Option) error

	// PutValueNodeLevel appends a value sample attributed to one node.
	PutValueNodeLevel(nodeID, name string, value float64, unit string, opts ...Option) error

	// Close flushes buffered documents and invalidates the trial context.
	Close() error

	// GetOne returns the value of the matching document. When several
	// documents match, the most recently written one wins; when none match,
	// it returns 0.
	GetOne(name string, opts ...Option) (float64, error)

	// GetPercentiles returns the requested percentiles of the matching
	// values, keyed by the caller's exact percentile values. The result is
	// empty when no documents match.
	GetPercentiles(name string, percentiles []float64, opts ...Option) (map[float64]float64, error)

	// GetMedian is GetPercentiles([50])[50].
	GetMedian(name string, opts ...Option) (float64, error)

	// GetErrorRate returns the share of failed service_time samples for the
	// given operation, 0 when no samples exist.
	GetErrorRate(operation string, opts ...Option) (float64, error)
}

// options collects the optional parameters of puts and aggregation reads.
// Irrelevant options are ignored by the respective operation: WithLap only
// affects reads (writes stamp the trial context's current lap), WithMeta and
// WithTimestamps only affect writes.
type options struct {
	sampleType    SampleType
	operation     string
	lap           int
	meta          map[string]interface{}
	absolute      time.Time
	relative      time.Duration
	explicitTimes bool
}

// Option adjusts one put or aggregation call.
type Option func(*options)

// WithSampleType selects the sample type. The default is Normal.
func WithSampleType(t SampleType) Option {
	return func(o *options) { o.sampleType = t }
}

// WithOperation attributes a sample to an operation, or restricts a read to
// one operation.
func WithOperation(name string) Option {
	return func(o *options) { o.operation = name }
}

// WithLap restricts an aggregation read to one lap.
func WithLap(lap int) Option {
	return func(o *options) { o.lap = lap }
}

// WithMeta attaches call-level meta data to a sample. Call-level keys
// override cluster- and node-level meta info on conflict.
func WithMeta(meta map[string]interface{}) Option {
	return func(o *options) { o.meta = meta }
}

// WithTimestamps stamps a sample with an explicit absolute/relative timestamp
// pair instead of reading the clock.
func WithTimestamps(absolute time.Time, relative time.Duration) Option {
	return func(o *options) {
		o.absolute = absolute
		o.relative = relative
		o.explicitTimes = true
	}
}

func applyOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// IndexName returns the name of the backing index for a trial, rally-<year>.
func IndexName(trialTimestamp time.Time) string {
	return fmt.Sprintf("rally-%04d", trialTimestamp.UTC().Year())
}

// formatTrialTimestamp renders the trial timestamp in its compact UTC form.
func formatTrialTimestamp(trialTimestamp time.Time) string {
	return trialTimestamp.UTC().Format(trialTimestampLayout)
}

// storeContext carries the state both store variants share: the trial
// context, the meta info registry and the clock. It is exclusively owned by
// one store instance; there are no process-wide registries.
type storeContext struct {
	cfg   *config.Config
	clock clock.Clock
	watch clock.StopWatch

	opened              bool
	trialTimestamp      time.Time
	trialTimestampValue string
	track               string
	challenge           string
	car                 string
	lap                 int
	meta                *metaInfo
}

func newStoreContext(cfg *config.Config, clk clock.Clock) storeContext {
	return storeContext{cfg: cfg, clock: clk, meta: newMetaInfo()}
}

func (c *storeContext) open(trialTimestamp time.Time, trackName, challengeName, carName string) error {
	if c.opened {
		return errs.IllegalState("metrics store is already open")
	}
	c.trialTimestamp = trialTimestamp
	c.trialTimestampValue = formatTrialTimestamp(trialTimestamp)
	c.track = trackName
	c.challenge = challengeName
	c.car = carName
	c.meta = newMetaInfo()
	if err := c.addUserTag(); err != nil {
		return err
	}
	c.watch = c.clock.StopWatch()
	c.watch.Start()
	c.opened = true
	return nil
}

// addUserTag merges the configured user tag "key:value" into cluster meta as
// tag_<key>.
func (c *storeContext) addUserTag() error {
	tag := c.cfg.UserTag
	if tag == "" {
		return nil
	}
	key, value, ok := strings.Cut(tag, ":")
	if !ok || key == "" {
		return errs.InvalidArgument("user tag [%s] is not in the required key:value format", tag)
	}
	return c.meta.add(ScopeCluster, "", "tag_"+key, value)
}

func (c *storeContext) close() error {
	if !c.opened {
		return errs.IllegalState("metrics store is not open")
	}
	c.watch.Stop()
	c.opened = false
	return nil
}

func (c *storeContext) setLap(lap int) error {
	if lap < 1 {
		return errs.InvalidArgument("lap [%d] must be positive", lap)
	}
	c.lap = lap
	return nil
}

func (c *storeContext) addMetaInfo(scope MetaInfoScope, nodeID, key string, value interface{}) error {
	if !c.opened {
		return errs.IllegalState("metrics store is not open")
	}
	return c.meta.add(scope, nodeID, key, value)
}

// newSample builds one sample document from the current trial context.
// Explicit timestamps are used verbatim; otherwise the absolute timestamp
// comes from the clock and the relative timestamp is the elapsed time since
// the trial opened.
func (c *storeContext) newSample(nodeID, name string, value float64, unit string, o options) (Sample, error) {
	if !c.opened {
		return Sample{}, errs.IllegalState("cannot write to a metrics store that is not open")
	}
	var absolute, relative int64
	if o.explicitTimes {
		absolute = o.absolute.UnixMilli()
		relative = o.relative.Microseconds()
	} else {
		absolute = c.clock.Now().UnixMilli()
		relative = c.watch.Split().Microseconds()
	}
	return Sample{
		Timestamp:      absolute,
		TrialTimestamp: c.trialTimestampValue,
		RelativeTime:   relative,
		Environment:    c.cfg.EnvironmentName,
		SampleType:     o.sampleType,
		Track:          c.track,
		Lap:            c.lap,
		Challenge:      c.challenge,
		Car:            c.car,
		Name:           name,
		Value:          value,
		Unit:           unit,
		Operation:      o.operation,
		Meta:           c.meta.merged(nodeID, o.meta),
	}, nil
}
