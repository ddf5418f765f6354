package model

import "fmt"

// InfoRecord is the serializable form of a PropagatedInformation
type InfoRecord[I comparable] struct {
	Piece     I      `msgpack:"piece"`
	Timestamp int64  `msgpack:"timestamp"`
	Carriers  []uint `msgpack:"carriers"`
}

func toRecords[I comparable](list []PropagatedInformation[I]) []InfoRecord[I] {
	ret := make([]InfoRecord[I], len(list))
	for i, info := range list {
		ret[i] = InfoRecord[I]{Piece: info.PieceID, Timestamp: info.Timestamp, Carriers: info.Carriers()}
	}
	return ret
}

func fromRecords[I comparable](list []InfoRecord[I]) []PropagatedInformation[I] {
	ret := make([]PropagatedInformation[I], len(list))
	for i, r := range list {
		ret[i] = NewPropagatedInformation(r.Piece, r.Timestamp, r.Carriers...)
	}
	return ret
}

// UserSnapshot is the serializable state of one user
type UserSnapshot[U, I comparable] struct {
	User       U               `msgpack:"user"`
	Own        []InfoRecord[I] `msgpack:"own"`
	Received   []InfoRecord[I] `msgpack:"received"`
	Propagated []InfoRecord[I] `msgpack:"propagated"`
	Discarded  []InfoRecord[I] `msgpack:"discarded"`
}

// StateSnapshot is everything needed to continue a run
type StateSnapshot[U, I comparable] struct {
	Iteration       int                  `msgpack:"iteration"`
	Timestamp       *int64               `msgpack:"timestamp"`
	TotalPropagated int64                `msgpack:"total_propagated"`
	Seed            int64                `msgpack:"seed"`
	Users           []UserSnapshot[U, I] `msgpack:"users"`
	Recent          map[U][]Visit[U]     `msgpack:"recent"`
}

// Snapshot captures the current user table and counters
func (s *Simulator[U, I]) Snapshot() *StateSnapshot[U, I] {
	if s.state == nil {
		return nil
	}
	snap := &StateSnapshot[U, I]{
		Iteration:       s.curIter,
		Timestamp:       copyTimestamp(s.timestamp),
		TotalPropagated: s.total,
		Seed:            s.opts.seed,
		Users:           make([]UserSnapshot[U, I], 0, len(s.state.users)),
		Recent:          make(map[U][]Visit[U], len(s.rc.Recent)),
	}
	for _, us := range s.state.users {
		snap.Users = append(snap.Users, UserSnapshot[U, I]{
			User:       us.UserID,
			Own:        toRecords(us.Own()),
			Received:   toRecords(us.Received()),
			Propagated: toRecords(us.Propagated()),
			Discarded:  toRecords(us.Discarded()),
		})
	}
	for u, w := range s.rc.Recent {
		snap.Recent[u] = append([]Visit[U](nil), w...)
	}
	return snap
}

// Restore rebuilds a run from a snapshot. The iteration log starts empty
// and the next round has the snapshot's iteration index.
func (s *Simulator[U, I]) Restore(data *Data[U, I], snap *StateSnapshot[U, I]) error {
	if err := s.validate(data); err != nil {
		return err
	}
	if snap == nil {
		return fmt.Errorf("failed to restore: snapshot is nil")
	}

	state := newSimulationState(data)
	for _, u := range snap.Users {
		idx, ok := data.UserIndex(u.User)
		if !ok {
			return fmt.Errorf("failed to restore: unknown user %v", u.User)
		}
		us, err := NewUserState[U, I](u.User, idx, UserSets[I]{
			Own:        fromRecords(u.Own),
			Received:   fromRecords(u.Received),
			Propagated: fromRecords(u.Propagated),
			Discarded:  fromRecords(u.Discarded),
		})
		if err != nil {
			return fmt.Errorf("failed to restore user %v: %w", u.User, err)
		}
		state.users[idx] = us
		state.byID[u.User] = us
	}

	s.opts.seed = snap.Seed
	s.data = data
	s.state = state
	s.rc = NewRunContext[U](snap.Seed)
	for u, w := range snap.Recent {
		s.rc.Recent[u] = append([]Visit[U](nil), w...)
	}
	s.curIter = snap.Iteration
	s.timestamp = copyTimestamp(snap.Timestamp)
	s.total = snap.TotalPropagated
	return nil
}
