package propagation

import (
	"math/rand"
	"testing"

	"diffusion-sim/model"
	"diffusion-sim/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func starData(t *testing.T) *model.Data[int, int] {
	t.Helper()
	g := utils.NewSocialGraph[int](false)
	for leaf := 1; leaf <= 3; leaf++ {
		g.AddEdge(0, leaf, 1)
	}
	data, err := model.NewData[int, int](g, nil, nil)
	require.NoError(t, err)
	return data
}

func userState(t *testing.T, data *model.Data[int, int], u int) *model.UserState[int, int] {
	t.Helper()
	idx, ok := data.UserIndex(u)
	require.True(t, ok)
	us, err := model.NewUserState[int, int](u, idx, model.UserSets[int]{})
	require.NoError(t, err)
	return us
}

func TestNeighborhood(t *testing.T) {
	data := starData(t)
	n := NewNeighborhood[int, int](model.Out)
	rc := model.NewRunContext[int](1)
	n.ResetSelections(rc, data)

	assert.False(t, n.DependsOnInformationPiece())
	assert.Equal(t, []int{1, 2, 3}, n.UsersToPropagate(rc, model.PropagatedInformation[int]{}, userState(t, data, 0), data))
	assert.Equal(t, []int{0}, n.UsersToPropagate(rc, model.PropagatedInformation[int]{}, userState(t, data, 2), data))
}

func TestPullPushIsSymmetric(t *testing.T) {
	g := utils.CreateRandomNetwork(rand.New(rand.NewSource(4)), 40, 0.1)
	data, err := model.NewData[int64, int64](g, nil, nil)
	require.NoError(t, err)

	p := NewPullPush[int64, int64](2, model.Und)
	rc := model.NewRunContext[int64](8)
	for round := 0; round < 5; round++ {
		p.ResetSelections(rc, data)
		for u, targets := range rc.Targets {
			for _, v := range targets {
				assert.Contains(t, rc.TargetsOf(v), u, "round %d: %d -> %d has no way back", round, u, v)
				assert.True(t, g.ContainsEdge(u, v) || g.ContainsEdge(v, u))
			}
		}
	}
}

func TestPullPushWindow(t *testing.T) {
	data := starData(t)
	p := NewPullPush[int, int](2, model.Und)
	rc := model.NewRunContext[int](3)

	choices := make([]int, 0)
	for round := 0; round < 12; round++ {
		p.ResetSelections(rc, data)
		window := rc.Recent[0]
		require.NotEmpty(t, window)
		last := window[len(window)-1]
		require.True(t, last.Ok, "round %d", round)
		choices = append(choices, last.User)
	}

	for i := 2; i < len(choices); i++ {
		assert.NotEqual(t, choices[i], choices[i-1], "round %d", i)
		assert.NotEqual(t, choices[i], choices[i-2], "round %d", i)
	}
	assert.LessOrEqual(t, len(rc.Recent[1]), 2)
}

func TestPullPushWaitsOutSingleNeighbor(t *testing.T) {
	g := utils.NewSocialGraph[int](false)
	g.AddEdge(0, 1, 1)
	data, err := model.NewData[int, int](g, nil, nil)
	require.NoError(t, err)

	p := NewPullPush[int, int](2, model.Und)
	rc := model.NewRunContext[int](5)

	expected := [][]int{{1}, nil, nil, {1}, nil, nil, {1}}
	for round, want := range expected {
		p.ResetSelections(rc, data)
		if want == nil {
			assert.Empty(t, rc.TargetsOf(0), "round %d", round)
			assert.Empty(t, rc.TargetsOf(1), "round %d", round)
		} else {
			assert.Equal(t, want, rc.TargetsOf(0), "round %d", round)
			assert.Equal(t, []int{0}, rc.TargetsOf(1), "round %d", round)
		}
		assert.LessOrEqual(t, len(rc.Recent[0]), 2)
	}

	p.ResetSelections(rc, data)
	assert.Equal(t, []model.Visit[int]{{User: 1, Ok: true}, {}}, rc.Recent[0])
}

func TestPushAndPullDirections(t *testing.T) {
	data := starData(t)

	push := NewPush[int, int](0, model.Und)
	rc := model.NewRunContext[int](5)
	push.ResetSelections(rc, data)
	for leaf := 1; leaf <= 3; leaf++ {
		assert.Equal(t, []int{0}, rc.TargetsOf(leaf))
	}
	assert.Len(t, rc.TargetsOf(0), 1)

	pull := NewPull[int, int](0, model.Und)
	rc = model.NewRunContext[int](5)
	pull.ResetSelections(rc, data)
	assert.ElementsMatch(t, []int{1, 2, 3}, rc.TargetsOf(0))
	sent := 0
	for leaf := 1; leaf <= 3; leaf++ {
		sent += len(rc.TargetsOf(leaf))
	}
	assert.Equal(t, 1, sent)
}

func TestGossipSameSeedSamePairs(t *testing.T) {
	g := utils.CreateRandomNetwork(rand.New(rand.NewSource(4)), 30, 0.2)
	data, err := model.NewData[int64, int64](g, nil, nil)
	require.NoError(t, err)

	p := NewPullPush[int64, int64](1, model.Out)
	rc1 := model.NewRunContext[int64](77)
	rc2 := model.NewRunContext[int64](77)
	p.ResetSelections(rc1, data)
	p.ResetSelections(rc2, data)
	assert.Equal(t, rc1.Targets, rc2.Targets)
}
