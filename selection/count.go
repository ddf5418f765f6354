package selection

import (
	"math/rand"

	"diffusion-sim/model"
)

// Count sends a fixed number of own, received and already propagated
// pieces, drawn at random
type Count[U, I comparable] struct {
	Base[U, I]
	NumOwn          int
	NumReceived     int
	NumRepropagated int
}

func NewCount[U, I comparable](numOwn, numReceived, numRepropagated int) *Count[U, I] {
	return &Count[U, I]{
		NumOwn:          numOwn,
		NumReceived:     numReceived,
		NumRepropagated: numRepropagated,
	}
}

func (c *Count[U, I]) Select(
	rng *rand.Rand,
	user *model.UserState[U, I],
	data *model.Data[U, I],
	state *model.SimulationState[U, I],
	iter int,
	timestamp *int64,
) model.Selection[I] {
	return model.Selection[I]{
		Own:          Stamp(user, PickN(rng, user.Own(), c.NumOwn), iter),
		Received:     Stamp(user, PickN(rng, user.Received(), c.NumReceived), iter),
		Repropagated: Stamp(user, PickN(rng, user.Propagated(), c.NumRepropagated), iter),
	}
}
