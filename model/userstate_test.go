package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type unionUpdate struct{ resurrect bool }

func (unionUpdate) UpdateSeen(old, new PropagatedInformation[string]) PropagatedInformation[string] {
	return old.Update(new)
}

func (u unionUpdate) UpdateDiscarded(old, new PropagatedInformation[string]) (PropagatedInformation[string], bool) {
	return old.Update(new), u.resurrect
}

func TestPieceMapKeepsInsertionOrder(t *testing.T) {
	m := newPieceMap[string]()
	for _, id := range []string{"c", "a", "d", "b"} {
		m.put(NewPropagatedInformation(id, 0))
	}
	_, ok := m.remove("a")
	require.True(t, ok)
	m.put(NewPropagatedInformation("c", 5))

	assert.Equal(t, []string{"c", "d", "b"}, m.ids())
	info, ok := m.get("c")
	require.True(t, ok)
	assert.Equal(t, int64(5), info.Timestamp)

	_, ok = m.remove("zzz")
	assert.False(t, ok)
}

func TestPropagatedInformationUpdate(t *testing.T) {
	a := NewPropagatedInformation("x", 3, 1, 4)
	b := NewPropagatedInformation("x", 7, 2)

	merged := a.Update(b)
	assert.Equal(t, int64(7), merged.Timestamp)
	assert.Equal(t, []uint{1, 2, 4}, merged.Carriers())

	// operands are untouched
	assert.Equal(t, []uint{1, 4}, a.Carriers())
	assert.Equal(t, []uint{2}, b.Carriers())
	assert.True(t, a.Equal(NewPropagatedInformation("x", 3, 4, 1)))
}

func TestCommitSeenOutcomes(t *testing.T) {
	us, err := NewUserState[string, string]("u", 0, UserSets[string]{
		Own:        []PropagatedInformation[string]{NewPropagatedInformation("own", 0, 0)},
		Received:   []PropagatedInformation[string]{NewPropagatedInformation("rec", 1, 3)},
		Propagated: []PropagatedInformation[string]{NewPropagatedInformation("prop", 1, 3)},
		Discarded:  []PropagatedInformation[string]{NewPropagatedInformation("gone", 1, 3)},
	})
	require.NoError(t, err)

	upd := unionUpdate{resurrect: true}
	for _, id := range []string{"own", "rec", "prop", "gone", "fresh"} {
		us.addSeen(NewPropagatedInformation(id, 2, 5), upd)
	}
	us.addSeen(NewPropagatedInformation("fresh", 2, 6), upd)

	results := us.commitSeen(upd)
	outcomes := make(map[string]commitOutcome)
	for _, r := range results {
		outcomes[r.info.PieceID] = r.outcome
	}
	assert.Equal(t, map[string]commitOutcome{
		"own":   outcomeIgnored,
		"rec":   outcomeReReceived,
		"prop":  outcomeIgnored,
		"gone":  outcomeResurrected,
		"fresh": outcomeNew,
	}, outcomes)

	assert.Equal(t, []string{"rec", "gone", "fresh"}, us.ReceivedIDs())
	assert.Empty(t, us.DiscardedIDs())
	fresh, _ := us.ReceivedInformation("fresh")
	assert.Equal(t, []uint{5, 6}, fresh.Carriers())
	rec, _ := us.ReceivedInformation("rec")
	assert.Equal(t, []uint{3, 5}, rec.Carriers())

	_, _, ok := us.checkDisjoint()
	assert.True(t, ok)
	assert.Equal(t, 0, us.seen.len())
}

func TestCommitSeenKeepsDiscarded(t *testing.T) {
	us, err := NewUserState[string, string]("u", 0, UserSets[string]{
		Discarded: []PropagatedInformation[string]{NewPropagatedInformation("gone", 1, 3)},
	})
	require.NoError(t, err)

	upd := unionUpdate{resurrect: false}
	us.addSeen(NewPropagatedInformation("gone", 4, 2), upd)
	results := us.commitSeen(upd)

	require.Len(t, results, 1)
	assert.Equal(t, outcomeStillDiscarded, results[0].outcome)
	assert.False(t, us.ContainsReceived("gone"))
	gone, ok := us.DiscardedInformation("gone")
	require.True(t, ok)
	assert.Equal(t, []uint{2, 3}, gone.Carriers())
}

func TestNewUserStateRejectsOverlap(t *testing.T) {
	_, err := NewUserState[string, string]("u", 0, UserSets[string]{
		Own:       []PropagatedInformation[string]{NewPropagatedInformation("x", 0, 0)},
		Discarded: []PropagatedInformation[string]{NewPropagatedInformation("x", 0, 0)},
	})

	var violation *InvariantViolation
	require.ErrorAs(t, err, &violation)
	assert.Equal(t, "x", violation.Piece)
	assert.Equal(t, []string{"own", "discarded"}, violation.Sets)
}

func TestMarkPropagatedAndDiscard(t *testing.T) {
	us, err := NewUserState[string, string]("u", 1, UserSets[string]{
		Own:      []PropagatedInformation[string]{NewPropagatedInformation("a", 0, 1)},
		Received: []PropagatedInformation[string]{NewPropagatedInformation("b", 0, 0), NewPropagatedInformation("c", 0, 0)},
	})
	require.NoError(t, err)

	us.markPropagated("a")
	us.markPropagated("b")
	assert.Equal(t, []string{"a", "b"}, us.PropagatedIDs())
	assert.Empty(t, us.OwnIDs())

	assert.Equal(t, []string{"c"}, us.discard([]string{"a", "c", "missing"}))
	assert.Equal(t, []string{"c"}, us.DiscardedIDs())
	assert.False(t, us.IsIdle())
}

func TestRunContextSeeds(t *testing.T) {
	rc := NewRunContext[string](42)
	a := rc.UserRand(3, 7).Int63()
	b := rc.UserRand(3, 7).Int63()
	c := rc.UserRand(3, 8).Int63()
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)

	rc.Remember("u", "a", 2)
	rc.Remember("u", "b", 2)
	rc.Remember("u", "c", 2)
	assert.Equal(t, []Visit[string]{{User: "b", Ok: true}, {User: "c", Ok: true}}, rc.Recent["u"])
	assert.False(t, rc.RecentlyVisited("u", "a"))

	rc.Skip("u", 2)
	assert.Equal(t, []Visit[string]{{User: "c", Ok: true}, {}}, rc.Recent["u"])
	assert.True(t, rc.RecentlyVisited("u", "c"))
	assert.False(t, rc.RecentlyVisited("u", ""))

	rc.AddTarget("u", "v")
	rc.AddTarget("u", "v")
	assert.Equal(t, []string{"v"}, rc.TargetsOf("u"))
	rc.ResetTargets()
	assert.Empty(t, rc.TargetsOf("u"))
}
