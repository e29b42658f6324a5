package archive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modeyang/rally/pkg/metrics"
)

func openTestArchive(t *testing.T) *RaceArchive {
	t.Helper()
	a, err := Open(Config{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, a.Close()) })
	return a
}

func testRace(trialTimestamp, trackName string) metrics.Race {
	return metrics.Race{
		Environment:    "unittest",
		TrialTimestamp: trialTimestamp,
		Track:          trackName,
		Laps:           1,
		Car:            "defaults",
	}
}

func TestArchiveStoreAndList(t *testing.T) {
	a := openTestArchive(t)

	require.NoError(t, a.Store(testRace("20160131T000000Z", "test")))
	require.NoError(t, a.Store(testRace("20160201T000000Z", "geonames")))

	races, err := a.List()
	require.NoError(t, err)
	require.Len(t, races, 2)
	assert.Equal(t, "test", races[0].Track)
	assert.Equal(t, "geonames", races[1].Track)
}

func TestArchiveFindByTrialTimestamp(t *testing.T) {
	a := openTestArchive(t)

	require.NoError(t, a.Store(testRace("20160131T000000Z", "test")))
	require.NoError(t, a.Store(testRace("20160201T000000Z", "geonames")))

	races, err := a.Find("20160201T000000Z")
	require.NoError(t, err)
	require.Len(t, races, 1)
	assert.Equal(t, "geonames", races[0].Track)

	none, err := a.Find("20170101T000000Z")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestArchiveKeepsRerunsOfSameTrial(t *testing.T) {
	a := openTestArchive(t)

	require.NoError(t, a.Store(testRace("20160131T000000Z", "test")))
	require.NoError(t, a.Store(testRace("20160131T000000Z", "test")))

	races, err := a.Find("20160131T000000Z")
	require.NoError(t, err)
	assert.Len(t, races, 2)
}
