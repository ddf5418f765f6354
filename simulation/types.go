package simulation

import (
	"diffusion-sim/model"
)

// AccumulativeState holds one entry per finished iteration
type AccumulativeState struct {
	NewlyPropagated     []int64
	TotalPropagated     []int64
	NewlySeen           []int32
	NumReReceived       []int32
	NumDiscarded        []int32
	NumPropagatingUsers []int32
	// users with something left to send
	ActiveUsers []int32
}

func NewAccumulativeState() *AccumulativeState {
	return &AccumulativeState{
		NewlyPropagated:     make([]int64, 0),
		TotalPropagated:     make([]int64, 0),
		NewlySeen:           make([]int32, 0),
		NumReReceived:       make([]int32, 0),
		NumDiscarded:        make([]int32, 0),
		NumPropagatingUsers: make([]int32, 0),
		ActiveUsers:         make([]int32, 0),
	}
}

func (s *AccumulativeState) Len() int {
	return len(s.NewlyPropagated)
}

func (s *AccumulativeState) accumulate(it *model.Iteration[int64, int64], state *model.SimulationState[int64, int64]) {
	active := 0
	for _, us := range state.Users() {
		if !us.IsIdle() {
			active++
		}
	}

	s.NewlyPropagated = append(s.NewlyPropagated, it.NewlyPropagated)
	s.TotalPropagated = append(s.TotalPropagated, it.TotalPropagated)
	s.NewlySeen = append(s.NewlySeen, int32(it.NewlySeen))
	s.NumReReceived = append(s.NumReReceived, int32(it.NumReReceived))
	s.NumDiscarded = append(s.NumDiscarded, int32(it.NumDiscarded))
	s.NumPropagatingUsers = append(s.NumPropagatingUsers, int32(it.NumPropagatingUsers))
	s.ActiveUsers = append(s.ActiveUsers, int32(active))
}

func (s *AccumulativeState) validate(curIter int) bool {
	n := s.Len()
	return n == curIter &&
		len(s.TotalPropagated) == n &&
		len(s.NewlySeen) == n &&
		len(s.NumReReceived) == n &&
		len(s.NumDiscarded) == n &&
		len(s.NumPropagatingUsers) == n &&
		len(s.ActiveUsers) == n
}
