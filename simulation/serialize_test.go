package simulation

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"diffusion-sim/model"
	"diffusion-sim/utils"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotsAreRotated(t *testing.T) {
	s := NewSimulationSerializer(t.TempDir(), "rotate", 2)

	latest, err := s.GetLatestSnapshot()
	require.NoError(t, err)
	assert.Nil(t, latest)

	ts := int64(5)
	for i := 1; i <= 4; i++ {
		require.NoError(t, s.SaveSnapshot(&Snapshot{
			Iteration: i,
			Timestamp: &ts,
			Seed:      9,
			Users: []model.UserSnapshot[int64, int64]{
				{User: 1, Own: []model.InfoRecord[int64]{{Piece: 3, Timestamp: 0, Carriers: []uint{0}}}},
			},
			Recent: map[int64][]model.Visit[int64]{1: {{User: 2, Ok: true}, {}}},
		}))
	}

	files, err := s._list("snapshot", ".msgpack")
	require.NoError(t, err)
	assert.Len(t, files, 2)

	latest, err = s.GetLatestSnapshot()
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, 4, latest.Iteration)
	assert.Equal(t, &ts, latest.Timestamp)
	assert.Equal(t, []uint{0}, latest.Users[0].Own[0].Carriers)
	assert.Equal(t, []model.Visit[int64]{{User: 2, Ok: true}, {}}, latest.Recent[1])
}

func TestFinishedMark(t *testing.T) {
	s := NewSimulationSerializer(t.TempDir(), "finish", 3)

	finished, err := s.IsFinished()
	require.NoError(t, err)
	assert.False(t, finished)

	require.NoError(t, s.MarkFinished(12))
	finished, err = s.IsFinished()
	require.NoError(t, err)
	assert.True(t, finished)

	require.NoError(t, s.ClearFinished())
	finished, err = s.IsFinished()
	require.NoError(t, err)
	assert.False(t, finished)
}

func TestAccumulativeStateRoundTrip(t *testing.T) {
	state := &AccumulativeState{
		NewlyPropagated:     []int64{5, 3, 0},
		TotalPropagated:     []int64{5, 8, 8},
		NewlySeen:           []int32{4, 2, 0},
		NumReReceived:       []int32{1, 1, 0},
		NumDiscarded:        []int32{0, 2, 1},
		NumPropagatingUsers: []int32{2, 3, 0},
		ActiveUsers:         []int32{6, 7, 5},
	}

	s := NewSimulationSerializer(t.TempDir(), "acc", 1)
	require.NoError(t, s.SaveAccumulativeState(state))
	require.NoError(t, s.SaveAccumulativeState(state))

	files, err := s._list("acc-state", ".lz4")
	require.NoError(t, err)
	assert.Len(t, files, 1)

	loaded, err := s.GetLatestAccumulativeState()
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(state, loaded))
	assert.True(t, loaded.validate(3))
	assert.False(t, loaded.validate(4))
}

func TestEmptyAccumulativeState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "acc.lz4")
	require.NoError(t, SaveAccumulativeState(path, NewAccumulativeState()))

	loaded, err := LoadAccumulativeState(path)
	require.NoError(t, err)
	assert.Equal(t, 0, loaded.Len())
	assert.True(t, loaded.validate(0))
}

func TestDatasetRoundTrip(t *testing.T) {
	ds, err := GenerateDataset(NetworkConfig{Type: "SmallWorld", NodeCount: 30, NodeFollowCount: 4, RewireProbability: 0.2}, 2, 5)
	require.NoError(t, err)
	assert.Len(t, ds.Pieces, 60)
	assert.Len(t, ds.UserFeatures["group"], 30)
	assert.Len(t, ds.RealPropagated, 30)

	path := filepath.Join(t.TempDir(), "dataset.msgpack")
	require.NoError(t, SaveDataset(path, ds))
	loaded, err := LoadDataset(path)
	require.NoError(t, err)
	assert.Equal(t, ds.Pieces, loaded.Pieces)
	assert.Equal(t, ds.RealPropagated, loaded.RealPropagated)

	data, graph, err := loaded.ToData()
	require.NoError(t, err)
	assert.Equal(t, 30, data.NumUsers())
	assert.Len(t, data.Pieces(), 60)
	assert.True(t, utils.CompareGraphs(utils.DeserializeGraph(ds.Graph), graph))

	// the same seed gives the same dataset
	again, err := GenerateDataset(NetworkConfig{Type: "SmallWorld", NodeCount: 30, NodeFollowCount: 4, RewireProbability: 0.2}, 2, 5)
	require.NoError(t, err)
	assert.Equal(t, ds.Pieces, again.Pieces)
	assert.True(t, utils.CompareGraphs(utils.DeserializeGraph(ds.Graph), utils.DeserializeGraph(again.Graph)))
}

func TestLoadDatasetErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadDataset(filepath.Join(dir, "missing.msgpack"))
	assert.Error(t, err)

	garbage := filepath.Join(dir, "garbage.msgpack")
	require.NoError(t, os.WriteFile(garbage, []byte{0xc1}, 0644))
	_, err = LoadDataset(garbage)
	assert.Error(t, err)

	_, err = GenerateDataset(NetworkConfig{Type: "Lattice", NodeCount: 3}, 1, 1)
	assert.Error(t, err)
}

func TestMetadataAndGraphFiles(t *testing.T) {
	s := NewSimulationSerializer(t.TempDir(), "files", 1)

	missing, err := s.LoadGraph()
	require.NoError(t, err)
	assert.Nil(t, missing)

	g := utils.CreateRandomNetwork(rand.New(rand.NewSource(3)), 20, 0.2)
	require.NoError(t, s.SaveGraph(g))
	loaded, err := s.LoadGraph()
	require.NoError(t, err)
	assert.True(t, utils.CompareGraphs(g, loaded))

	m := DefaultScenarioMetadata()
	m.UniqueName = "files"
	require.NoError(t, s.SaveMetadata(m))
	back, err := s.LoadMetadata()
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(m, back))
}
