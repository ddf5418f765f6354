package selection

import (
	"math/rand"

	"diffusion-sim/model"
)

// Probability sends NumOwn own pieces, and each received or propagated
// piece independently with a fixed probability
type Probability[U, I comparable] struct {
	Base[U, I]
	NumOwn           int
	ProbReceived     float64
	ProbRepropagated float64
}

func NewProbability[U, I comparable](numOwn int, probReceived, probRepropagated float64) *Probability[U, I] {
	return &Probability[U, I]{
		NumOwn:           numOwn,
		ProbReceived:     probReceived,
		ProbRepropagated: probRepropagated,
	}
}

func (p *Probability[U, I]) Select(
	rng *rand.Rand,
	user *model.UserState[U, I],
	data *model.Data[U, I],
	state *model.SimulationState[U, I],
	iter int,
	timestamp *int64,
) model.Selection[I] {
	return model.Selection[I]{
		Own:          Stamp(user, PickN(rng, user.Own(), p.NumOwn), iter),
		Received:     Stamp(user, PickProb(rng, user.Received(), p.ProbReceived), iter),
		Repropagated: Stamp(user, PickProb(rng, user.Propagated(), p.ProbRepropagated), iter),
	}
}
