package selection

import (
	"math/rand"

	"diffusion-sim/model"
)

// IndependentCascade gives every carrier of a received piece one chance to
// activate the user. The chance is either a fixed probability or the
// weight of the edge between carrier and user.
type IndependentCascade[U, I comparable] struct {
	Base[U, I]
	NumOwn          int
	NumRepropagated int
	// Prob is used when Graph is nil
	Prob float64
	// Graph holds activation probabilities as edge weights
	Graph model.Graph[U]
	// Orientation is the side the pieces come from: In reads carrier -> user
	// edges, Out reads user -> carrier edges and Und tries both
	Orientation model.Orientation
}

func NewIndependentCascade[U, I comparable](prob float64, numOwn, numRepropagated int) *IndependentCascade[U, I] {
	return &IndependentCascade[U, I]{
		NumOwn:          numOwn,
		NumRepropagated: numRepropagated,
		Prob:            prob,
		Orientation:     model.Und,
	}
}

func NewWeightedIndependentCascade[U, I comparable](
	graph model.Graph[U],
	orientation model.Orientation,
	numOwn, numRepropagated int,
) *IndependentCascade[U, I] {
	return &IndependentCascade[U, I]{
		NumOwn:          numOwn,
		NumRepropagated: numRepropagated,
		Prob:            -1,
		Graph:           graph,
		Orientation:     orientation,
	}
}

func (c *IndependentCascade[U, I]) Select(
	rng *rand.Rand,
	user *model.UserState[U, I],
	data *model.Data[U, I],
	state *model.SimulationState[U, I],
	iter int,
	timestamp *int64,
) model.Selection[I] {
	received := make([]model.PropagatedInformation[I], 0)
	for _, info := range user.Received() {
		for _, idx := range info.Carriers() {
			carrier, ok := data.UserAt(idx)
			if !ok {
				continue
			}
			if c.activated(rng, user.UserID, carrier) {
				received = append(received, info)
				break
			}
		}
	}

	return model.Selection[I]{
		Own:          Stamp(user, PickN(rng, user.Own(), c.NumOwn), iter),
		Received:     Stamp(user, received, iter),
		Repropagated: Stamp(user, PickN(rng, user.Propagated(), c.NumRepropagated), iter),
	}
}

func (c *IndependentCascade[U, I]) activated(rng *rand.Rand, u, carrier U) bool {
	if c.Graph == nil {
		return c.Prob > 0 && rng.Float64() < c.Prob
	}

	switch c.Orientation {
	case model.In:
		w, ok := c.Graph.EdgeWeight(carrier, u)
		return ok && rng.Float64() < w
	case model.Out:
		w, ok := c.Graph.EdgeWeight(u, carrier)
		return ok && rng.Float64() < w
	default:
		if w, ok := c.Graph.EdgeWeight(u, carrier); ok && rng.Float64() < w {
			return true
		}
		if w, ok := c.Graph.EdgeWeight(carrier, u); ok && rng.Float64() < w {
			return true
		}
		return false
	}
}
