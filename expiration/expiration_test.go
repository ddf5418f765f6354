package expiration

import (
	"math/rand"
	"testing"

	"diffusion-sim/model"
	"diffusion-sim/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixture(t *testing.T, extras *model.DataExtras[string, string]) (*model.Data[string, string], *model.UserState[string, string]) {
	t.Helper()
	g := utils.NewSocialGraph[string](true)
	g.AddEdge("u", "v", 1)
	data, err := model.NewData[string, string](g, []model.Information[string, string]{
		{ID: "a", Creators: []string{"v"}},
		{ID: "b", Creators: []string{"v"}},
		{ID: "c", Creators: []string{"v"}},
	}, extras)
	require.NoError(t, err)

	us, err := model.NewUserState[string, string]("u", 0, model.UserSets[string]{
		Received: []model.PropagatedInformation[string]{
			model.NewPropagatedInformation("a", 1, 1),
			model.NewPropagatedInformation("b", 4, 1),
			model.NewPropagatedInformation("c", 6, 1),
		},
	})
	require.NoError(t, err)
	return data, us
}

func TestInfinite(t *testing.T) {
	data, us := fixture(t, nil)
	assert.Empty(t, Infinite[string, string]{}.Expire(nil, us, data, 100, nil))
}

func TestTimed(t *testing.T) {
	data, us := fixture(t, nil)
	exp := NewTimed[string, string](2)

	assert.Equal(t, []string{"a"}, exp.Expire(nil, us, data, 6, nil))
	assert.Equal(t, []string{"a", "b"}, exp.Expire(nil, us, data, 7, nil))
	assert.Empty(t, exp.Expire(nil, us, data, 3, nil))
}

func TestExponentialDecay(t *testing.T) {
	data, us := fixture(t, nil)

	// age zero always survives
	fresh := NewExponentialDecay[string, string](2).Expire(rand.New(rand.NewSource(1)), us, data, 1, nil)
	assert.Empty(t, fresh)

	// very old pieces are practically certain to go
	old := NewExponentialDecay[string, string](0.01).Expire(rand.New(rand.NewSource(1)), us, data, 500, nil)
	assert.Equal(t, []string{"a", "b", "c"}, old)

	gone := 0
	rng := rand.New(rand.NewSource(2))
	exp := NewExponentialDecay[string, string](1)
	for range 2000 {
		for _, id := range exp.Expire(rng, us, data, 2, nil) {
			if id == "a" {
				gone++
			}
		}
	}
	// age 1 with half-life 1 expires half of the time
	assert.InDelta(t, 1000, gone, 120)
}

func TestNotReallyRepropagated(t *testing.T) {
	data, us := fixture(t, &model.DataExtras[string, string]{
		RealPropagated: map[string][]string{"u": {"b"}},
	})
	assert.Equal(t, []string{"a", "c"}, NotReallyRepropagated[string, string]{}.Expire(nil, us, data, 0, nil))
}

func TestAllNotPropagated(t *testing.T) {
	data, us := fixture(t, nil)
	assert.Equal(t, []string{"a", "b"}, AllNotPropagated[string, string]{}.Expire(nil, us, data, 6, nil))
	assert.Empty(t, AllNotPropagated[string, string]{}.Expire(nil, us, data, 1, nil))
}
