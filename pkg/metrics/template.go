package metrics

// IndexTemplate describes the field mappings of the yearly rally indices.
// It is installed once when a metrics index is provisioned so that the
// dimension fields are indexed as exact-match keywords and timestamps keep
// their numeric forms.
const IndexTemplate = `{
  "index_patterns": ["rally-*"],
  "settings": {
    "number_of_shards": 1,
    "number_of_replicas": 0
  },
  "mappings": {
    "date_detection": false,
    "dynamic_templates": [
      {
        "meta_strings": {
          "path_match": "meta.*",
          "match_mapping_type": "string",
          "mapping": {
            "type": "keyword"
          }
        }
      }
    ],
    "properties": {
      "@timestamp": {
        "type": "date",
        "format": "epoch_millis"
      },
      "trial-timestamp": {
        "type": "keyword"
      },
      "relative-time": {
        "type": "long"
      },
      "environment": {
        "type": "keyword"
      },
      "sample-type": {
        "type": "keyword"
      },
      "track": {
        "type": "keyword"
      },
      "lap": {
        "type": "integer"
      },
      "challenge": {
        "type": "keyword"
      },
      "car": {
        "type": "keyword"
      },
      "name": {
        "type": "keyword"
      },
      "value": {
        "type": "double"
      },
      "unit": {
        "type": "keyword"
      },
      "operation": {
        "type": "keyword"
      },
      "pipeline": {
        "type": "keyword"
      },
      "revision": {
        "type": "keyword"
      },
      "distribution-version": {
        "type": "keyword"
      },
      "laps": {
        "type": "integer"
      },
      "target-hosts": {
        "type": "keyword"
      },
      "user-tag": {
        "type": "keyword"
      }
    }
  }
}`
