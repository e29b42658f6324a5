package metrics

import (
	"encoding/json"

	"github.com/modeyang/rally/pkg/errs"
)

// SampleType classifies a measurement. Warmup samples are excluded from
// primary results; every aggregation defaults to Normal unless the caller
// asks otherwise.
type SampleType int

const (
	// Normal is the default sample type and the default aggregation filter.
	Normal SampleType = iota
	// Warmup marks samples taken before the system under test is warm.
	Warmup
)

// String returns the wire representation of the sample type.
func (t SampleType) String() string {
	if t == Warmup {
		return "warmup"
	}
	return "normal"
}

// MarshalJSON encodes the sample type as its wire string.
func (t SampleType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON decodes "normal" or "warmup".
func (t *SampleType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case "normal":
		*t = Normal
	case "warmup":
		*t = Warmup
	default:
		return errs.InvalidArgument("unknown sample type [%s]", s)
	}
	return nil
}

// MetaInfoScope determines how far a piece of meta info is visible.
type MetaInfoScope int

const (
	// ScopeCluster meta info applies to every sample document of the trial.
	ScopeCluster MetaInfoScope = iota
	// ScopeNode meta info applies only to documents attributed to one node.
	ScopeNode
)

// Sample is one measurement. Once appended to a store's buffer it is
// immutable. Field names follow the metrics document schema of the backing
// index.
type Sample struct {
	Timestamp      int64                  `json:"@timestamp"`    // epoch milliseconds
	TrialTimestamp string                 `json:"trial-timestamp"`
	RelativeTime   int64                  `json:"relative-time"` // microseconds since trial start
	Environment    string                 `json:"environment"`
	SampleType     SampleType             `json:"sample-type"`
	Track          string                 `json:"track"`
	Lap            int                    `json:"lap"`
	Challenge      string                 `json:"challenge"`
	Car            string                 `json:"car"`
	Name           string                 `json:"name"`
	Value          float64                `json:"value"`
	Unit           string                 `json:"unit"`
	Operation      string                 `json:"operation,omitempty"`
	Meta           map[string]interface{} `json:"meta"`
}

// metaInfo is the per-trial registry of descriptive tags. Cluster-scoped
// entries end up in every document, node-scoped entries only in documents
// attributed to that node. It is owned by exactly one store instance.
type metaInfo struct {
	cluster map[string]interface{}
	nodes   map[string]map[string]interface{}
}

func newMetaInfo() *metaInfo {
	return &metaInfo{
		cluster: make(map[string]interface{}),
		nodes:   make(map[string]map[string]interface{}),
	}
}

func (m *metaInfo) add(scope MetaInfoScope, nodeID, key string, value interface{}) error {
	switch scope {
	case ScopeCluster:
		m.cluster[key] = value
	case ScopeNode:
		if nodeID == "" {
			return errs.InvalidArgument("node-scoped meta info for key [%s] requires a node id", key)
		}
		node, ok := m.nodes[nodeID]
		if !ok {
			node = make(map[string]interface{})
			m.nodes[nodeID] = node
		}
		node[key] = value
	default:
		return errs.InvalidArgument("unknown meta info scope [%d]", scope)
	}
	return nil
}

// merged builds the meta map for one document: cluster meta first, then the
// node's meta when the document is attributed to a node, then call-supplied
// meta. Later sources win on key conflicts.
func (m *metaInfo) merged(nodeID string, extra map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m.cluster)+len(extra))
	for k, v := range m.cluster {
		out[k] = v
	}
	if nodeID != "" {
		for k, v := range m.nodes[nodeID] {
			out[k] = v
		}
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}
