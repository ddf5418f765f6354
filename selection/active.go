package selection

import (
	"math/rand"

	"diffusion-sim/model"
)

// ActiveOnly wraps a mechanism and skips users with nothing to send
type ActiveOnly[U, I comparable] struct {
	Inner model.SelectionMechanism[U, I]
}

func NewActiveOnly[U, I comparable](inner model.SelectionMechanism[U, I]) *ActiveOnly[U, I] {
	return &ActiveOnly[U, I]{Inner: inner}
}

func (a *ActiveOnly[U, I]) Select(
	rng *rand.Rand,
	user *model.UserState[U, I],
	data *model.Data[U, I],
	state *model.SimulationState[U, I],
	iter int,
	timestamp *int64,
) model.Selection[I] {
	return a.Inner.Select(rng, user, data, state, iter, timestamp)
}

func (a *ActiveOnly[U, I]) SelectableUsers(
	data *model.Data[U, I],
	state *model.SimulationState[U, I],
	iter int,
	timestamp *int64,
) []U {
	users := a.Inner.SelectableUsers(data, state, iter, timestamp)
	ret := make([]U, 0, len(users))
	for _, u := range users {
		if us, ok := state.User(u); ok && !us.IsIdle() {
			ret = append(ret, u)
		}
	}
	return ret
}
