package ingest

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modeyang/rally/pkg/clock"
	"github.com/modeyang/rally/pkg/config"
	"github.com/modeyang/rally/pkg/metrics"
)

var trialTimestamp = time.Date(2016, 1, 31, 0, 0, 0, 0, time.UTC)

func workerSnapshot(t *testing.T, docs int) *metrics.Snapshot {
	t.Helper()
	cfg := config.New("unittest", "/home/user/.rally/rally.ini")
	store := metrics.NewInMemoryStore(cfg, clock.System{})
	require.NoError(t, store.Open(trialTimestamp, "test", "append-no-conflicts", "defaults", false))
	require.NoError(t, store.SetLap(1))
	for i := 0; i < docs; i++ {
		require.NoError(t, store.PutValueClusterLevel("latency", float64(i), "ms"))
	}
	require.NoError(t, store.Close())

	snapshot, err := store.Externalize()
	require.NoError(t, err)
	return snapshot
}

func postSnapshot(t *testing.T, server *httptest.Server, body []byte) (*http.Response, snapshotResponse) {
	t.Helper()
	resp, err := http.Post(server.URL+"/v1/snapshots", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded snapshotResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func TestHandlerMergesWorkerSnapshots(t *testing.T) {
	coordinator := metrics.NewInMemoryStore(config.New("unittest", "/home/user/.rally/rally.ini"), clock.System{})
	server := httptest.NewServer(NewRouter(NewHandler(coordinator)))
	defer server.Close()

	for _, docs := range []int{3, 2} {
		payload, err := json.Marshal(workerSnapshot(t, docs))
		require.NoError(t, err)

		resp, decoded := postSnapshot(t, server, payload)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "success", decoded.Status)
		assert.Equal(t, docs, decoded.DocCount)
		assert.NotEmpty(t, decoded.SnapshotID)
	}

	assert.Equal(t, 5, coordinator.DocCount())
}

func TestHandlerRejectsCorruptSnapshot(t *testing.T) {
	coordinator := metrics.NewInMemoryStore(config.New("unittest", "/home/user/.rally/rally.ini"), clock.System{})
	server := httptest.NewServer(NewRouter(NewHandler(coordinator)))
	defer server.Close()

	snapshot := workerSnapshot(t, 3)
	snapshot.Checksum++
	payload, err := json.Marshal(snapshot)
	require.NoError(t, err)

	resp, decoded := postSnapshot(t, server, payload)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "error", decoded.Status)
	assert.Equal(t, 0, coordinator.DocCount())
}

func TestHandlerRejectsMalformedPayload(t *testing.T) {
	coordinator := metrics.NewInMemoryStore(config.New("unittest", "/home/user/.rally/rally.ini"), clock.System{})
	server := httptest.NewServer(NewRouter(NewHandler(coordinator)))
	defer server.Close()

	resp, decoded := postSnapshot(t, server, []byte("{not json"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "error", decoded.Status)
}

func TestHandlerHealth(t *testing.T) {
	server := httptest.NewServer(NewRouter(NewHandler(nil)))
	defer server.Close()

	resp, err := http.Get(server.URL + "/v1/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
