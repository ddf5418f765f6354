package simulation

import (
	"path/filepath"
	"testing"

	"diffusion-sim/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeIteration(index int, ts *int64) *model.Iteration[int64, int64] {
	return &model.Iteration[int64, int64]{
		Index:     index,
		Timestamp: ts,
		Receiving: []model.UserReceipts[int64, int64]{
			{User: 2, Pieces: []model.Receipt[int64, int64]{{Piece: 10, Carriers: []int64{1, 3}}}},
		},
		ReReceiving: []model.UserReceipts[int64, int64]{
			{User: 4, Pieces: []model.Receipt[int64, int64]{{Piece: 10, Carriers: []int64{2}}}},
		},
		Propagating: []model.UserPieces[int64, int64]{
			{User: 1, Pieces: []int64{10}},
			{User: 3, Pieces: []int64{10, 11}},
		},
		Discarding: []model.UserPieces[int64, int64]{
			{User: 5, Pieces: []int64{12}},
		},
		NumPropagated:       3,
		NumPropagatingUsers: 2,
		NewlyPropagated:     4,
		NewlySeen:           1,
		NumReReceived:       1,
		NumDiscarded:        1,
		TotalPropagated:     int64(4 * (index + 1)),
	}
}

func openTestDB(t *testing.T, cacheSize int) *EventDB {
	t.Helper()
	db, err := OpenEventDB(filepath.Join(t.TempDir(), "events.db"), cacheSize)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestEventDBRoundTrip(t *testing.T) {
	db := openTestDB(t, 1)
	runID, err := db.EnsureRun("run", 1)
	require.NoError(t, err)

	ts := int64(30)
	require.NoError(t, db.StoreIteration(runID, fakeIteration(0, &ts)))
	require.NoError(t, db.StoreIteration(runID, fakeIteration(1, nil)))

	records, err := db.GetIterations(runID)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, IterationRecord{
		Step:                0,
		Timestamp:           &ts,
		NumPropagated:       3,
		NumPropagatingUsers: 2,
		NewlyPropagated:     4,
		NewlySeen:           1,
		NumReReceived:       1,
		NumDiscarded:        1,
		TotalPropagated:     4,
	}, records[0])
	assert.Nil(t, records[1].Timestamp)
	assert.Equal(t, int64(8), records[1].TotalPropagated)

	events, err := db.GetEvents(runID, 0)
	require.NoError(t, err)
	assert.Equal(t, []EventRecord{
		{Step: 0, Type: EventReceive, User: 2, Piece: 10, Carriers: []int64{1, 3}},
		{Step: 0, Type: EventReReceive, User: 4, Piece: 10, Carriers: []int64{2}},
		{Step: 0, Type: EventPropagate, User: 1, Piece: 10},
		{Step: 0, Type: EventPropagate, User: 3, Piece: 10},
		{Step: 0, Type: EventPropagate, User: 3, Piece: 11},
		{Step: 0, Type: EventDiscard, User: 5, Piece: 12},
	}, events)
}

func TestEventDBBuffersUntilFlush(t *testing.T) {
	db := openTestDB(t, 10)
	runID, err := db.EnsureRun("run", 1)
	require.NoError(t, err)

	for i := range 3 {
		require.NoError(t, db.StoreIteration(runID, fakeIteration(i, nil)))
	}
	records, err := db.GetIterations(runID)
	require.NoError(t, err)
	assert.Empty(t, records)

	require.NoError(t, db.Flush())
	records, err = db.GetIterations(runID)
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestEventDBDeleteIterationsFrom(t *testing.T) {
	db := openTestDB(t, 1)
	runID, err := db.EnsureRun("run", 1)
	require.NoError(t, err)

	for i := range 5 {
		require.NoError(t, db.StoreIteration(runID, fakeIteration(i, nil)))
	}
	require.NoError(t, db.DeleteIterationsFrom(runID, 2))

	records, err := db.GetIterations(runID)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 1, records[1].Step)

	// events of deleted iterations go with them
	events, err := db.GetEvents(runID, 3)
	require.NoError(t, err)
	assert.Empty(t, events)

	// the same steps can be written again
	require.NoError(t, db.StoreIteration(runID, fakeIteration(2, nil)))
}

func TestEnsureRunIsStable(t *testing.T) {
	db := openTestDB(t, 1)

	first, err := db.EnsureRun("a", 1)
	require.NoError(t, err)
	again, err := db.EnsureRun("a", 2)
	require.NoError(t, err)
	other, err := db.EnsureRun("b", 1)
	require.NoError(t, err)

	assert.Equal(t, first, again)
	assert.NotEqual(t, first, other)

	found, err := db.RunID("a")
	require.NoError(t, err)
	assert.Equal(t, first, found)

	_, err = db.RunID("missing")
	assert.Error(t, err)
}
