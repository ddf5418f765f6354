package model

// UserState holds what a single user knows during a run
type UserState[U, I comparable] struct {
	UserID U
	Index  uint

	own        *pieceMap[I]
	received   *pieceMap[I]
	propagated *pieceMap[I]
	discarded  *pieceMap[I]
	seen       *pieceMap[I]
}

func newUserState[U, I comparable](id U, idx uint) *UserState[U, I] {
	return &UserState[U, I]{
		UserID:     id,
		Index:      idx,
		own:        newPieceMap[I](),
		received:   newPieceMap[I](),
		propagated: newPieceMap[I](),
		discarded:  newPieceMap[I](),
		seen:       newPieceMap[I](),
	}
}

// UserSets lists the pieces of a user by set
type UserSets[I comparable] struct {
	Own        []PropagatedInformation[I]
	Received   []PropagatedInformation[I]
	Propagated []PropagatedInformation[I]
	Discarded  []PropagatedInformation[I]
}

// NewUserState builds a user state from its sets, which must be disjoint
func NewUserState[U, I comparable](id U, idx uint, sets UserSets[I]) (*UserState[U, I], error) {
	us := newUserState[U, I](id, idx)
	for _, info := range sets.Own {
		us.own.put(info)
	}
	for _, info := range sets.Received {
		us.received.put(info)
	}
	for _, info := range sets.Propagated {
		us.propagated.put(info)
	}
	for _, info := range sets.Discarded {
		us.discarded.put(info)
	}
	if piece, names, ok := us.checkDisjoint(); !ok {
		return nil, &InvariantViolation{Iteration: -1, User: id, Piece: piece, Sets: names}
	}
	return us, nil
}

// #region read-only accessors

// Own returns the pieces authored by the user and not yet sent
func (s *UserState[U, I]) Own() []PropagatedInformation[I] { return s.own.values() }

// Received returns the pieces received from others and not yet sent
func (s *UserState[U, I]) Received() []PropagatedInformation[I] { return s.received.values() }

// Propagated returns the pieces the user has already sent
func (s *UserState[U, I]) Propagated() []PropagatedInformation[I] { return s.propagated.values() }

// Discarded returns the pieces the user has forgotten
func (s *UserState[U, I]) Discarded() []PropagatedInformation[I] { return s.discarded.values() }

func (s *UserState[U, I]) OwnIDs() []I        { return s.own.ids() }
func (s *UserState[U, I]) ReceivedIDs() []I   { return s.received.ids() }
func (s *UserState[U, I]) PropagatedIDs() []I { return s.propagated.ids() }
func (s *UserState[U, I]) DiscardedIDs() []I  { return s.discarded.ids() }

func (s *UserState[U, I]) NumOwn() int        { return s.own.len() }
func (s *UserState[U, I]) NumReceived() int   { return s.received.len() }
func (s *UserState[U, I]) NumPropagated() int { return s.propagated.len() }
func (s *UserState[U, I]) NumDiscarded() int  { return s.discarded.len() }

func (s *UserState[U, I]) ContainsOwn(id I) bool        { return s.own.contains(id) }
func (s *UserState[U, I]) ContainsReceived(id I) bool   { return s.received.contains(id) }
func (s *UserState[U, I]) ContainsPropagated(id I) bool { return s.propagated.contains(id) }
func (s *UserState[U, I]) ContainsDiscarded(id I) bool  { return s.discarded.contains(id) }

func (s *UserState[U, I]) OwnInformation(id I) (PropagatedInformation[I], bool) {
	return s.own.get(id)
}

func (s *UserState[U, I]) ReceivedInformation(id I) (PropagatedInformation[I], bool) {
	return s.received.get(id)
}

func (s *UserState[U, I]) PropagatedInformation(id I) (PropagatedInformation[I], bool) {
	return s.propagated.get(id)
}

func (s *UserState[U, I]) DiscardedInformation(id I) (PropagatedInformation[I], bool) {
	return s.discarded.get(id)
}

// Knows reports whether the piece is in any of the four sets
func (s *UserState[U, I]) Knows(id I) bool {
	return s.own.contains(id) ||
		s.received.contains(id) ||
		s.propagated.contains(id) ||
		s.discarded.contains(id)
}

// IsIdle reports whether the user has nothing to send
func (s *UserState[U, I]) IsIdle() bool {
	return s.own.len() == 0 && s.received.len() == 0 && s.propagated.len() == 0
}

// #endregion

// #region mutators, only called by the simulator

func (s *UserState[U, I]) addOwn(info PropagatedInformation[I]) bool {
	if s.Knows(info.PieceID) {
		return false
	}
	s.own.put(info)
	return true
}

// markPropagated moves a sent own or received piece to the propagated pool
func (s *UserState[U, I]) markPropagated(id I) {
	if info, ok := s.own.remove(id); ok {
		s.propagated.put(info)
		return
	}
	if info, ok := s.received.remove(id); ok {
		s.propagated.put(info)
	}
}

// senderRecord returns the stored record of a piece the user is about to
// send, used to avoid echoing it back to its carriers
func (s *UserState[U, I]) senderRecord(id I) (PropagatedInformation[I], bool) {
	if info, ok := s.received.get(id); ok {
		return info, true
	}
	return s.propagated.get(id)
}

func (s *UserState[U, I]) addSeen(info PropagatedInformation[I], upd UpdateMechanism[I]) {
	if old, ok := s.seen.get(info.PieceID); ok {
		s.seen.put(upd.UpdateSeen(old, info))
		return
	}
	s.seen.put(info)
}

type commitOutcome int

const (
	outcomeIgnored commitOutcome = iota
	outcomeNew
	outcomeReReceived
	outcomeResurrected
	outcomeStillDiscarded
)

type commitResult[I comparable] struct {
	info    PropagatedInformation[I]
	outcome commitOutcome
}

// commitSeen moves the inbox of the round into the user's sets
func (s *UserState[U, I]) commitSeen(upd UpdateMechanism[I]) []commitResult[I] {
	results := make([]commitResult[I], 0, s.seen.len())
	for _, info := range s.seen.items {
		id := info.PieceID
		switch {
		case s.own.contains(id) || s.propagated.contains(id):
			results = append(results, commitResult[I]{info, outcomeIgnored})
		case s.discarded.contains(id):
			old, _ := s.discarded.get(id)
			merged, resurrect := upd.UpdateDiscarded(old, info)
			if resurrect {
				s.discarded.remove(id)
				s.received.put(merged)
				results = append(results, commitResult[I]{merged, outcomeResurrected})
			} else {
				s.discarded.put(merged)
				results = append(results, commitResult[I]{info, outcomeStillDiscarded})
			}
		case s.received.contains(id):
			old, _ := s.received.get(id)
			s.received.put(upd.UpdateSeen(old, info))
			results = append(results, commitResult[I]{info, outcomeReReceived})
		default:
			s.received.put(info)
			results = append(results, commitResult[I]{info, outcomeNew})
		}
	}
	s.seen.clear()
	return results
}

// discard moves received pieces to the discarded set and returns the ones
// that were actually moved
func (s *UserState[U, I]) discard(ids []I) []I {
	moved := make([]I, 0, len(ids))
	for _, id := range ids {
		info, ok := s.received.remove(id)
		if !ok {
			continue
		}
		s.discarded.put(info)
		moved = append(moved, id)
	}
	return moved
}

// #endregion

func (s *UserState[U, I]) clone() *UserState[U, I] {
	return &UserState[U, I]{
		UserID:     s.UserID,
		Index:      s.Index,
		own:        s.own.clone(),
		received:   s.received.clone(),
		propagated: s.propagated.clone(),
		discarded:  s.discarded.clone(),
		seen:       s.seen.clone(),
	}
}

// overlap returns the names of the sets holding the piece
func (s *UserState[U, I]) overlap(id I) []string {
	sets := make([]string, 0, 4)
	if s.own.contains(id) {
		sets = append(sets, "own")
	}
	if s.received.contains(id) {
		sets = append(sets, "received")
	}
	if s.propagated.contains(id) {
		sets = append(sets, "propagated")
	}
	if s.discarded.contains(id) {
		sets = append(sets, "discarded")
	}
	return sets
}

// checkDisjoint returns the first piece held in more than one set
func (s *UserState[U, I]) checkDisjoint() (I, []string, bool) {
	for _, m := range []*pieceMap[I]{s.own, s.received, s.propagated, s.discarded} {
		for _, id := range m.ids() {
			if sets := s.overlap(id); len(sets) > 1 {
				return id, sets, false
			}
		}
	}
	var zero I
	return zero, nil, true
}
