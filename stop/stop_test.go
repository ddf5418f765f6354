package stop

import (
	"testing"

	"diffusion-sim/model"

	"github.com/stretchr/testify/assert"
)

type round struct {
	numIter, numPropagated, numPropagatingUsers int
	newly, total                                int64
	timestamp                                   *int64
}

func ts(v int64) *int64 { return &v }

func TestStopConditions(t *testing.T) {
	cases := []struct {
		name string
		cond model.StopCondition[string, string]
		r    round
		want bool
	}{
		{"num iter below", NewNumIter[string, string](5), round{numIter: 5}, false},
		{"num iter above", NewNumIter[string, string](5), round{numIter: 6}, true},
		{"no more new", NoMoreNew[string, string]{}, round{newly: 0, numPropagated: 3}, true},
		{"still new", NoMoreNew[string, string]{}, round{newly: 2}, false},
		{"no more propagated", NoMorePropagated[string, string]{}, round{numPropagated: 0, newly: 4}, true},
		{"still propagated", NoMorePropagated[string, string]{}, round{numPropagated: 1}, false},
		{"timestamps exhausted", NewMaxTimestamp[string, string](10), round{timestamp: nil}, true},
		{"timestamp past max", NewMaxTimestamp[string, string](10), round{timestamp: ts(11)}, true},
		{"timestamp at max", NewMaxTimestamp[string, string](10), round{timestamp: ts(10)}, false},
		{"total reached", NewTotalPropagated[string, string](100), round{total: 100}, true},
		{"total below", NewTotalPropagated[string, string](100), round{total: 99}, false},
		{
			"any",
			Any[string, string]{NoMoreNew[string, string]{}, NewNumIter[string, string](100)},
			round{numIter: 101, newly: 3},
			true,
		},
		{
			"all needs every condition",
			All[string, string]{NoMoreNew[string, string]{}, NewNumIter[string, string](100)},
			round{numIter: 101, newly: 3},
			false,
		},
		{"empty all", All[string, string]{}, round{}, false},
		{"empty any", Any[string, string]{}, round{}, false},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := c.cond.Stop(c.r.numIter, c.r.numPropagated, c.r.numPropagatingUsers, c.r.newly, c.r.total, nil, c.r.timestamp)
			assert.Equal(t, c.want, got)
		})
	}
}
