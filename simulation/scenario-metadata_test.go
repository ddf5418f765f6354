package simulation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadScenarioMetadataYAML(t *testing.T) {
	path := writeFile(t, "scenario.yaml", `
unique_name: gossip
seed: 7
max_simulation_step: 50
network:
  type: SmallWorld
  node_count: 100
  node_follow_count: 6
  rewire_probability: 0.1
protocol:
  selection:
    type: ActiveOnly
    children:
      - type: Probability
        params:
          prob_received: 0.4
  propagation:
    type: PullPush
    orientation: UND
    params:
      wait_time: 2
`)

	m, err := LoadScenarioMetadata(path)
	require.NoError(t, err)
	require.NoError(t, m.Validate())

	assert.Equal(t, "gossip", m.UniqueName)
	assert.Equal(t, int64(7), m.Seed)
	assert.Equal(t, 50, m.MaxSimulationStep)
	assert.Equal(t, "SmallWorld", m.Network.Type)
	assert.Equal(t, 0.1, m.Network.RewireProbability)
	assert.Equal(t, "ActiveOnly", m.Protocol.Selection.Type)
	assert.Equal(t, 0.4, m.Protocol.Selection.Children[0].Float("prob_received", 0))
	assert.Equal(t, 2, m.Protocol.Propagation.Int("wait_time", 0))

	// untouched slots and fields keep their defaults
	def := DefaultScenarioMetadata()
	assert.Equal(t, def.Protocol.Update, m.Protocol.Update)
	assert.Equal(t, def.Protocol.Stop, m.Protocol.Stop)
	assert.Equal(t, def.SaveInterval, m.SaveInterval)
}

func TestLoadScenarioMetadataJSON(t *testing.T) {
	path := writeFile(t, "scenario.json", `{
		"UniqueName": "json",
		"PiecesPerUser": 3,
		"Protocol": {
			"Stop": {"Type": "NumIter", "Params": {"limit": 5}}
		}
	}`)

	m, err := LoadScenarioMetadata(path)
	require.NoError(t, err)
	require.NoError(t, m.Validate())

	assert.Equal(t, "json", m.UniqueName)
	assert.Equal(t, 3, m.PiecesPerUser)
	assert.Equal(t, "NumIter", m.Protocol.Stop.Type)
	assert.Empty(t, m.Protocol.Stop.Children)
	assert.Equal(t, 5, m.Protocol.Stop.Int("limit", 0))
	assert.Equal(t, "Count", m.Protocol.Selection.Type)
}

func TestLoadScenarioMetadataRejectsUnknownFormat(t *testing.T) {
	path := writeFile(t, "scenario.toml", "unique_name = 'x'")
	_, err := LoadScenarioMetadata(path)
	assert.Error(t, err)

	_, err = LoadScenarioMetadata(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvSeed, "99")
	t.Setenv(EnvWorkers, "3")
	t.Setenv(EnvLogLevel, "debug")

	m := DefaultScenarioMetadata()
	require.NoError(t, m.ApplyEnv())
	assert.Equal(t, int64(99), m.Seed)
	assert.Equal(t, 3, m.Workers)
	assert.Equal(t, "debug", m.LogLevel)

	t.Setenv(EnvSeed, "many")
	assert.Error(t, m.ApplyEnv())
}

func TestValidateReportsEveryProblem(t *testing.T) {
	m := DefaultScenarioMetadata()
	m.UniqueName = ""
	m.MaxSimulationStep = 0
	m.LogLevel = "chatty"
	m.Network.Type = "File"
	m.Protocol.Update.Type = "Latest"
	m.Protocol.Stop.Children = append(m.Protocol.Stop.Children, MechanismConfig{Type: "Never"})

	err := m.Validate()
	require.Error(t, err)

	var merr *multierror.Error
	require.ErrorAs(t, err, &merr)
	// name, steps, log level, dataset path, update and stop names
	assert.Len(t, merr.Errors, 6)
	assert.Contains(t, err.Error(), `unknown update mechanism "Latest"`)
	assert.Contains(t, err.Error(), `unknown stop mechanism "Never"`)
}

func TestDefaultMetadataIsValid(t *testing.T) {
	assert.NoError(t, DefaultScenarioMetadata().Validate())
}
