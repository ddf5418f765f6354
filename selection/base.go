package selection

import (
	"math/rand"
	"sort"

	"diffusion-sim/model"
)

const (
	// All selects every available piece
	All = -1
	// None selects nothing
	None = 0
)

// Base supplies the default selectable users: everybody
type Base[U, I comparable] struct{}

func (Base[U, I]) SelectableUsers(
	data *model.Data[U, I],
	state *model.SimulationState[U, I],
	iter int,
	timestamp *int64,
) []U {
	return data.Users()
}

// Stamp converts stored pieces into the copies a user sends in iteration
// iter: the user is the only carrier.
func Stamp[U, I comparable](user *model.UserState[U, I], list []model.PropagatedInformation[I], iter int) []model.PropagatedInformation[I] {
	ret := make([]model.PropagatedInformation[I], len(list))
	for i, info := range list {
		ret[i] = model.NewPropagatedInformation(info.PieceID, int64(iter), user.Index)
	}
	return ret
}

// PickN draws n elements uniformly without replacement keeping their
// relative order. All (or any n >= len) returns the whole list.
func PickN[T any](rng *rand.Rand, list []T, n int) []T {
	if n == All || n >= len(list) {
		ret := make([]T, len(list))
		copy(ret, list)
		return ret
	}
	if n <= 0 {
		return []T{}
	}
	positions := rng.Perm(len(list))[:n]
	sort.Ints(positions)
	ret := make([]T, n)
	for i, p := range positions {
		ret[i] = list[p]
	}
	return ret
}

// PickProb keeps every element independently with probability p
func PickProb[T any](rng *rand.Rand, list []T, p float64) []T {
	ret := make([]T, 0)
	if p <= 0 {
		return ret
	}
	for _, v := range list {
		if p >= 1 || rng.Float64() < p {
			ret = append(ret, v)
		}
	}
	return ret
}
