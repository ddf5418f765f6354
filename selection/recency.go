package selection

import (
	"math/rand"

	"diffusion-sim/model"
	"diffusion-sim/utils"
)

// Recency sends the NumReceived newest received pieces that are at most
// MaxAge iterations old. A negative MaxAge disables the age limit.
type Recency[U, I comparable] struct {
	Base[U, I]
	NumOwn      int
	NumReceived int
	MaxAge      int
}

func NewRecency[U, I comparable](numOwn, numReceived, maxAge int) *Recency[U, I] {
	return &Recency[U, I]{
		NumOwn:      numOwn,
		NumReceived: numReceived,
		MaxAge:      maxAge,
	}
}

func (r *Recency[U, I]) Select(
	rng *rand.Rand,
	user *model.UserState[U, I],
	data *model.Data[U, I],
	state *model.SimulationState[U, I],
	iter int,
	timestamp *int64,
) model.Selection[I] {
	fresh := make([]model.PropagatedInformation[I], 0)
	for _, info := range user.Received() {
		if r.MaxAge < 0 || int64(iter)-info.Timestamp <= int64(r.MaxAge) {
			fresh = append(fresh, info)
		}
	}

	k := r.NumReceived
	if k == All {
		k = len(fresh)
	}
	stamps := make([]int64, len(fresh))
	for i, info := range fresh {
		stamps[i] = info.Timestamp
	}
	newest := make([]model.PropagatedInformation[I], 0, k)
	for _, i := range utils.NewTopKFinder[int64](k).FindTopK(stamps, k) {
		newest = append(newest, fresh[i])
	}

	return model.Selection[I]{
		Own:      Stamp(user, PickN(rng, user.Own(), r.NumOwn), iter),
		Received: Stamp(user, newest, iter),
	}
}
