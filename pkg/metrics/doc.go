/*
Package metrics collects and aggregates the performance samples of a
benchmark trial and persists per-trial race summaries.

# Stores

Two store variants share one contract (Store):

  - InMemoryStore buffers sample documents for a single worker process.
    Workers externalize their buffer at trial end (Externalize) and a
    coordinator merges all buffers with BulkAdd before computing final
    statistics. Merging is pure append, order preserved, no deduplication.
  - ESMetricsStore buffers documents locally and flushes them as one bulk
    request into a yearly rally-<year> Elasticsearch index on Close.
    Aggregations are delegated to the backend's percentile and terms
    aggregations instead of scanning documents in-process.

The lifecycle is closed -> Open -> puts/AddMetaInfo -> Close -> closed.
Writes outside the open state fail with an IllegalState condition.

# Meta info

Each trial carries a hierarchical registry of descriptive tags. Every
document's meta map is merged from cluster-level meta info, the attributed
node's meta info and the call-supplied meta data, in that order of increasing
precedence.

# Aggregations

GetOne, GetPercentiles, GetMedian and GetErrorRate filter by sample type
(Normal by default) plus the optional lap and operation dimensions.
Percentiles use the nearest-rank method; GetMedian is the 50th percentile.
None of them fail on missing data: they return neutral values instead.

# Failure classification

Guard translates backend failures into the closed taxonomy of pkg/errs based
on their semantic category: connection and credential problems become setup
errors carrying a configuration hint, everything else a generic rally error.
*/
package metrics
