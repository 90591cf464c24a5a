package recency

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bountyradar/bountyradar/internal/bounty"
)

func TestFilterPassesExtractionTimeRecords(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	records := []bounty.Record{
		{ID: "a", PostedTime: now},
		{ID: "b", PostedTime: now.Add(-time.Minute)},
	}

	got := Filter(records, now, DefaultWindow)
	require.Len(t, got, 2)
}

func TestFilterDropsStaleRecordsByData(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	records := []bounty.Record{
		{ID: "fresh", PostedTime: now.Add(-time.Hour)},
		{ID: "stale", PostedTime: now.Add(-25 * time.Hour)},
	}

	got := Filter(records, now, DefaultWindow)
	require.Len(t, got, 1)
	require.Equal(t, "fresh", got[0].ID)
}

func TestFilterZeroWindowIsPassThrough(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	records := []bounty.Record{
		{ID: "ancient", PostedTime: now.Add(-1000 * time.Hour)},
	}

	got := Filter(records, now, 0)
	require.Len(t, got, 1)
}

func TestFilterEmptyInput(t *testing.T) {
	t.Parallel()

	got := Filter(nil, time.Now(), DefaultWindow)
	require.Empty(t, got)
}
