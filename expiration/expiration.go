package expiration

import (
	"math"
	"math/rand"

	"diffusion-sim/model"
)

// Infinite never forgets anything
type Infinite[U, I comparable] struct{}

func (Infinite[U, I]) Expire(
	rng *rand.Rand,
	user *model.UserState[U, I],
	data *model.Data[U, I],
	iter int,
	timestamp *int64,
) []I {
	return nil
}

// Timed forgets received pieces older than MaxTime iterations
type Timed[U, I comparable] struct {
	MaxTime int64
}

func NewTimed[U, I comparable](maxTime int64) *Timed[U, I] {
	return &Timed[U, I]{MaxTime: maxTime}
}

func (t *Timed[U, I]) Expire(
	rng *rand.Rand,
	user *model.UserState[U, I],
	data *model.Data[U, I],
	iter int,
	timestamp *int64,
) []I {
	ret := make([]I, 0)
	for _, info := range user.Received() {
		if int64(iter)-info.Timestamp > t.MaxTime {
			ret = append(ret, info.PieceID)
		}
	}
	return ret
}

// ExponentialDecay keeps a received piece of age a with probability
// exp(-ln2 / HalfLife * a)
type ExponentialDecay[U, I comparable] struct {
	HalfLife float64
}

func NewExponentialDecay[U, I comparable](halfLife float64) *ExponentialDecay[U, I] {
	return &ExponentialDecay[U, I]{HalfLife: halfLife}
}

func (e *ExponentialDecay[U, I]) Expire(
	rng *rand.Rand,
	user *model.UserState[U, I],
	data *model.Data[U, I],
	iter int,
	timestamp *int64,
) []I {
	ret := make([]I, 0)
	if e.HalfLife <= 0 {
		return append(ret, user.ReceivedIDs()...)
	}
	lambda := math.Ln2 / e.HalfLife
	for _, info := range user.Received() {
		age := float64(int64(iter) - info.Timestamp)
		if age <= 0 {
			continue
		}
		if rng.Float64() >= math.Exp(-lambda*age) {
			ret = append(ret, info.PieceID)
		}
	}
	return ret
}

// NotReallyRepropagated forgets the received pieces the user did not
// repropagate in the real data
type NotReallyRepropagated[U, I comparable] struct{}

func (NotReallyRepropagated[U, I]) Expire(
	rng *rand.Rand,
	user *model.UserState[U, I],
	data *model.Data[U, I],
	iter int,
	timestamp *int64,
) []I {
	ret := make([]I, 0)
	for _, id := range user.ReceivedIDs() {
		if !data.RealPropagated(user.UserID, id) {
			ret = append(ret, id)
		}
	}
	return ret
}

// AllNotPropagated forgets the received pieces that had their chance to be
// sent in this round and were not. Pieces delivered in this round are kept
// until the next one.
type AllNotPropagated[U, I comparable] struct{}

func (AllNotPropagated[U, I]) Expire(
	rng *rand.Rand,
	user *model.UserState[U, I],
	data *model.Data[U, I],
	iter int,
	timestamp *int64,
) []I {
	ret := make([]I, 0)
	for _, info := range user.Received() {
		if info.Timestamp < int64(iter) {
			ret = append(ret, info.PieceID)
		}
	}
	return ret
}
