package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"diffusion-sim/simulation"
	"diffusion-sim/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

const cliMetadata = `unique_name: cli
seed: 9
workers: 2
max_simulation_step: 50
save_interval: 0
max_snapshot_count: 2
network:
  type: File
  dataset_path: %s
protocol:
  selection:
    type: Count
    params: {own: -1, received: -1, repropagated: 1}
  propagation:
    type: Neighborhood
    orientation: OUT
  update:
    type: Newest
  expiration:
    type: Infinite
  stop:
    type: NumIter
    params: {limit: 8}
`

func TestGenerateRunInspect(t *testing.T) {
	dir := t.TempDir()
	datasetPath := filepath.Join(dir, "data.msgpack")

	out, err := execute(t, "generate", datasetPath, "--nodes", "30", "--follow", "3", "--seed", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "wrote 30 users and 30 pieces")

	ds, err := simulation.LoadDataset(datasetPath)
	require.NoError(t, err)
	assert.Len(t, ds.Pieces, 30)

	metadataPath := filepath.Join(dir, "cli.yaml")
	require.NoError(t, os.WriteFile(metadataPath, []byte(fmt.Sprintf(cliMetadata, datasetPath)), 0644))

	baseDir := filepath.Join(dir, "runs")
	_, err = execute(t, "run", baseDir, metadataPath, "--no-progress", "--log-level", "error")
	require.NoError(t, err)

	// the scenario keeps its own copy of the dataset graph
	serializer := simulation.NewSimulationSerializer(baseDir, "cli", 2)
	finished, err := serializer.IsFinished()
	require.NoError(t, err)
	assert.True(t, finished)
	graph, err := serializer.LoadGraph()
	require.NoError(t, err)
	require.NotNil(t, graph)
	_, expected, err := ds.ToData()
	require.NoError(t, err)
	assert.True(t, utils.CompareGraphs(expected, graph))

	// a finished scenario is skipped
	_, err = execute(t, "run", baseDir, metadataPath, "--no-progress", "--log-level", "error")
	require.NoError(t, err)

	out, err = execute(t, "inspect", baseDir, "cli")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 10)
	assert.True(t, strings.HasPrefix(lines[0], "STEP"))
	assert.True(t, strings.HasPrefix(lines[1], "0 "))
	assert.True(t, strings.HasPrefix(lines[9], "8 "))

	out, err = execute(t, "inspect", baseDir, "cli", "--step", "1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "TYPE"))
}

func TestInspectMissingScenario(t *testing.T) {
	_, err := execute(t, "inspect", t.TempDir(), "nothing")
	assert.ErrorContains(t, err, `no event database for scenario "nothing"`)
}

func TestRunRejectsInvalidMetadata(t *testing.T) {
	dir := t.TempDir()
	metadataPath := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(metadataPath, []byte("unique_name: bad\nmax_simulation_step: 0\n"), 0644))

	_, err := execute(t, "run", dir, metadataPath, "--no-progress")
	assert.ErrorContains(t, err, "invalid metadata")
}
