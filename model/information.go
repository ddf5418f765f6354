package model

import "github.com/willf/bitset"

// Information is a piece of information as found in the dataset.
type Information[U, I comparable] struct {
	ID        I
	Timestamp int64
	Creators  []U
}

// PropagatedInformation is a piece as it travels between users: the
// timestamp it is carried with and the indices of the users it arrived
// through. Values are never modified after construction.
type PropagatedInformation[I comparable] struct {
	PieceID   I
	Timestamp int64
	carriers  *bitset.BitSet
}

// NewPropagatedInformation creates a propagated piece carried by the given
// user indices.
func NewPropagatedInformation[I comparable](piece I, timestamp int64, carriers ...uint) PropagatedInformation[I] {
	b := bitset.New(0)
	for _, c := range carriers {
		b.Set(c)
	}
	return PropagatedInformation[I]{
		PieceID:   piece,
		Timestamp: timestamp,
		carriers:  b,
	}
}

// Carriers returns the carrier user indices in ascending order.
func (p PropagatedInformation[I]) Carriers() []uint {
	if p.carriers == nil {
		return []uint{}
	}
	ret := make([]uint, 0, p.carriers.Count())
	for i, ok := p.carriers.NextSet(0); ok; i, ok = p.carriers.NextSet(i + 1) {
		ret = append(ret, i)
	}
	return ret
}

// HasCarrier reports whether the piece arrived through the given user.
func (p PropagatedInformation[I]) HasCarrier(idx uint) bool {
	return p.carriers != nil && p.carriers.Test(idx)
}

// NumCarriers returns the number of carrier users.
func (p PropagatedInformation[I]) NumCarriers() int {
	if p.carriers == nil {
		return 0
	}
	return int(p.carriers.Count())
}

// WithTimestamp returns a copy carried with another timestamp.
func (p PropagatedInformation[I]) WithTimestamp(timestamp int64) PropagatedInformation[I] {
	p.Timestamp = timestamp
	return p
}

// UnionCarriers returns a copy of p whose carriers are the union of the
// carriers of p and other. The timestamp of p is kept.
func (p PropagatedInformation[I]) UnionCarriers(other PropagatedInformation[I]) PropagatedInformation[I] {
	switch {
	case p.carriers == nil && other.carriers == nil:
		p.carriers = bitset.New(0)
	case p.carriers == nil:
		p.carriers = other.carriers.Clone()
	case other.carriers != nil:
		p.carriers = p.carriers.Union(other.carriers)
	}
	return p
}

// Update merges other into p: carriers are joined and the newest timestamp
// is kept.
func (p PropagatedInformation[I]) Update(other PropagatedInformation[I]) PropagatedInformation[I] {
	ret := p.UnionCarriers(other)
	if other.Timestamp > ret.Timestamp {
		ret.Timestamp = other.Timestamp
	}
	return ret
}

// Equal reports whether both values describe the same piece with the same
// timestamp and carriers.
func (p PropagatedInformation[I]) Equal(other PropagatedInformation[I]) bool {
	if p.PieceID != other.PieceID || p.Timestamp != other.Timestamp {
		return false
	}
	a, b := p.Carriers(), other.Carriers()
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
