package simulation

import (
	"testing"

	"diffusion-sim/expiration"
	"diffusion-sim/model"
	"diffusion-sim/propagation"
	"diffusion-sim/selection"
	"diffusion-sim/stop"
	"diffusion-sim/update"
	"diffusion-sim/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDefaultProtocol(t *testing.T) {
	g := utils.NewSocialGraph[int64](true)
	g.AddEdge(0, 1, 1)

	protocol, stopCond, err := BuildProtocol(DefaultProtocolConfig(), g)
	require.NoError(t, err)

	assert.IsType(t, &selection.Count[int64, int64]{}, protocol.Selection)
	assert.IsType(t, &propagation.Neighborhood[int64, int64]{}, protocol.Propagation)
	assert.IsType(t, update.Newest[int64]{}, protocol.Update)
	assert.IsType(t, expiration.Infinite[int64, int64]{}, protocol.Expiration)

	anyStop, ok := stopCond.(stop.Any[int64, int64])
	require.True(t, ok)
	assert.Len(t, anyStop, 2)
}

func TestBuildProtocolComposites(t *testing.T) {
	g := utils.NewSocialGraph[int64](true)
	g.AddEdge(0, 1, 0.5)

	cfg := ProtocolConfig{
		Selection: MechanismConfig{Type: "ActiveOnly", Children: []MechanismConfig{
			{Type: "WeightedIndependentCascade", Orientation: "IN"},
		}},
		Propagation: MechanismConfig{Type: "Push", Orientation: "UND", Params: map[string]float64{"wait_time": 3}},
		Update:      MechanismConfig{Type: "IndependentCascade"},
		Expiration:  MechanismConfig{Type: "Timed", Params: map[string]float64{"max_time": 4}},
		Stop: MechanismConfig{Type: "All", Children: []MechanismConfig{
			{Type: "NoMorePropagated"},
			{Type: "TotalPropagated", Params: map[string]float64{"threshold": 10}},
		}},
	}

	protocol, stopCond, err := BuildProtocol(cfg, g)
	require.NoError(t, err)

	active, ok := protocol.Selection.(*selection.ActiveOnly[int64, int64])
	require.True(t, ok)
	cascade, ok := active.Inner.(*selection.IndependentCascade[int64, int64])
	require.True(t, ok)
	assert.Equal(t, model.In, cascade.Orientation)

	gossip, ok := protocol.Propagation.(*propagation.Gossip[int64, int64])
	require.True(t, ok)
	assert.Equal(t, propagation.PushOnly, gossip.Mode)
	assert.Equal(t, 3, gossip.WaitTime)

	timed, ok := protocol.Expiration.(*expiration.Timed[int64, int64])
	require.True(t, ok)
	assert.Equal(t, int64(4), timed.MaxTime)

	all, ok := stopCond.(stop.All[int64, int64])
	require.True(t, ok)
	assert.Len(t, all, 2)
}

func TestBuildProtocolErrors(t *testing.T) {
	g := utils.NewSocialGraph[int64](true)

	cfg := DefaultProtocolConfig()
	cfg.Propagation = MechanismConfig{Type: "Broadcast"}
	_, _, err := BuildProtocol(cfg, g)
	assert.ErrorContains(t, err, `unknown propagation mechanism "Broadcast"`)

	cfg = DefaultProtocolConfig()
	cfg.Propagation.Orientation = "SIDEWAYS"
	_, _, err = BuildProtocol(cfg, g)
	assert.ErrorContains(t, err, "unknown orientation")

	cfg = DefaultProtocolConfig()
	cfg.Selection = MechanismConfig{Type: "ActiveOnly"}
	_, _, err = BuildProtocol(cfg, g)
	assert.ErrorContains(t, err, "exactly one child")
}
