package stop

import "diffusion-sim/model"

// NumIter stops once more than Limit iterations have run
type NumIter[U, I comparable] struct {
	Limit int
}

func NewNumIter[U, I comparable](limit int) *NumIter[U, I] {
	return &NumIter[U, I]{Limit: limit}
}

func (n *NumIter[U, I]) Stop(
	numIter, numPropagated, numPropagatingUsers int,
	newlyPropagated, totalPropagated int64,
	data *model.Data[U, I],
	timestamp *int64,
) bool {
	return numIter > n.Limit
}

// NoMoreNew stops after a round without deliveries
type NoMoreNew[U, I comparable] struct{}

func (NoMoreNew[U, I]) Stop(
	numIter, numPropagated, numPropagatingUsers int,
	newlyPropagated, totalPropagated int64,
	data *model.Data[U, I],
	timestamp *int64,
) bool {
	return newlyPropagated == 0
}

// NoMorePropagated stops after a round in which nobody sent anything
type NoMorePropagated[U, I comparable] struct{}

func (NoMorePropagated[U, I]) Stop(
	numIter, numPropagated, numPropagatingUsers int,
	newlyPropagated, totalPropagated int64,
	data *model.Data[U, I],
	timestamp *int64,
) bool {
	return numPropagated == 0
}

// MaxTimestamp stops when the timestamps run out or pass Max
type MaxTimestamp[U, I comparable] struct {
	Max int64
}

func NewMaxTimestamp[U, I comparable](maxTimestamp int64) *MaxTimestamp[U, I] {
	return &MaxTimestamp[U, I]{Max: maxTimestamp}
}

func (m *MaxTimestamp[U, I]) Stop(
	numIter, numPropagated, numPropagatingUsers int,
	newlyPropagated, totalPropagated int64,
	data *model.Data[U, I],
	timestamp *int64,
) bool {
	return timestamp == nil || *timestamp > m.Max
}

// TotalPropagated stops once Threshold pieces have been sent in total
type TotalPropagated[U, I comparable] struct {
	Threshold int64
}

func NewTotalPropagated[U, I comparable](threshold int64) *TotalPropagated[U, I] {
	return &TotalPropagated[U, I]{Threshold: threshold}
}

func (t *TotalPropagated[U, I]) Stop(
	numIter, numPropagated, numPropagatingUsers int,
	newlyPropagated, totalPropagated int64,
	data *model.Data[U, I],
	timestamp *int64,
) bool {
	return totalPropagated >= t.Threshold
}

// Any stops when one of its conditions holds
type Any[U, I comparable] []model.StopCondition[U, I]

func (a Any[U, I]) Stop(
	numIter, numPropagated, numPropagatingUsers int,
	newlyPropagated, totalPropagated int64,
	data *model.Data[U, I],
	timestamp *int64,
) bool {
	for _, c := range a {
		if c.Stop(numIter, numPropagated, numPropagatingUsers, newlyPropagated, totalPropagated, data, timestamp) {
			return true
		}
	}
	return false
}

// All stops when every condition holds. An empty All never stops.
type All[U, I comparable] []model.StopCondition[U, I]

func (a All[U, I]) Stop(
	numIter, numPropagated, numPropagatingUsers int,
	newlyPropagated, totalPropagated int64,
	data *model.Data[U, I],
	timestamp *int64,
) bool {
	if len(a) == 0 {
		return false
	}
	for _, c := range a {
		if !c.Stop(numIter, numPropagated, numPropagatingUsers, newlyPropagated, totalPropagated, data, timestamp) {
			return false
		}
	}
	return true
}
