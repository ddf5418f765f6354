package update

import "diffusion-sim/model"

// Newest keeps the newest timestamp and joins the carriers. A discarded
// piece comes back with the new copy.
type Newest[I comparable] struct{}

func (Newest[I]) UpdateSeen(old, new model.PropagatedInformation[I]) model.PropagatedInformation[I] {
	return old.Update(new)
}

func (Newest[I]) UpdateDiscarded(old, new model.PropagatedInformation[I]) (model.PropagatedInformation[I], bool) {
	return new, true
}

// Oldest keeps the oldest timestamp and joins the carriers. A discarded
// piece comes back with the new copy.
type Oldest[I comparable] struct{}

func (Oldest[I]) UpdateSeen(old, new model.PropagatedInformation[I]) model.PropagatedInformation[I] {
	merged := old.UnionCarriers(new)
	if new.Timestamp < merged.Timestamp {
		merged = merged.WithTimestamp(new.Timestamp)
	}
	return merged
}

func (Oldest[I]) UpdateDiscarded(old, new model.PropagatedInformation[I]) (model.PropagatedInformation[I], bool) {
	return new, true
}

// Merge is Newest, but a discarded piece comes back merged with its
// discarded record
type Merge[I comparable] struct{}

func (Merge[I]) UpdateSeen(old, new model.PropagatedInformation[I]) model.PropagatedInformation[I] {
	return old.Update(new)
}

func (Merge[I]) UpdateDiscarded(old, new model.PropagatedInformation[I]) (model.PropagatedInformation[I], bool) {
	return old.Update(new), true
}

// IndependentCascade gives every piece a single chance: the timestamp of
// the first delivery is kept, carriers arriving with it are joined so each
// gets its activation attempt, and discarded pieces never come back
type IndependentCascade[I comparable] struct{}

func (IndependentCascade[I]) UpdateSeen(old, new model.PropagatedInformation[I]) model.PropagatedInformation[I] {
	return old.UnionCarriers(new)
}

func (IndependentCascade[I]) UpdateDiscarded(old, new model.PropagatedInformation[I]) (model.PropagatedInformation[I], bool) {
	return old, false
}
