package model

// Receipt is a piece seen by a user together with the users it came from
type Receipt[U, I comparable] struct {
	Piece    I
	Carriers []U
}

// UserReceipts groups the receipts of a single user in one iteration
type UserReceipts[U, I comparable] struct {
	User   U
	Pieces []Receipt[U, I]
}

// UserPieces groups the pieces a single user sent or discarded
type UserPieces[U, I comparable] struct {
	User   U
	Pieces []I
}

// Iteration is the record of one round. User lists follow the user order
// of the data.
type Iteration[U, I comparable] struct {
	Index     int
	Timestamp *int64

	Receiving   []UserReceipts[U, I]
	ReReceiving []UserReceipts[U, I]
	Propagating []UserPieces[U, I]
	Discarding  []UserPieces[U, I]

	// distinct (user, piece) pairs sent
	NumPropagated       int
	NumPropagatingUsers int
	// deliveries made in the round
	NewlyPropagated int64
	NewlySeen       int
	NumReReceived   int
	NumDiscarded    int
	// running sum of NumPropagated
	TotalPropagated int64
}

func (it *Iteration[U, I]) ReceivingUsers() []U {
	return receiptUsers(it.Receiving)
}

func (it *Iteration[U, I]) ReReceivingUsers() []U {
	return receiptUsers(it.ReReceiving)
}

func (it *Iteration[U, I]) PropagatingUsers() []U {
	return pieceUsers(it.Propagating)
}

func (it *Iteration[U, I]) DiscardingUsers() []U {
	return pieceUsers(it.Discarding)
}

// SeenBy returns the pieces newly seen by u in this iteration
func (it *Iteration[U, I]) SeenBy(u U) []Receipt[U, I] {
	for _, r := range it.Receiving {
		if r.User == u {
			return r.Pieces
		}
	}
	return nil
}

// PropagatedBy returns the pieces sent by u in this iteration
func (it *Iteration[U, I]) PropagatedBy(u U) []I {
	for _, p := range it.Propagating {
		if p.User == u {
			return p.Pieces
		}
	}
	return nil
}

// DiscardedBy returns the pieces discarded by u in this iteration
func (it *Iteration[U, I]) DiscardedBy(u U) []I {
	for _, p := range it.Discarding {
		if p.User == u {
			return p.Pieces
		}
	}
	return nil
}

func receiptUsers[U, I comparable](list []UserReceipts[U, I]) []U {
	ret := make([]U, len(list))
	for i, r := range list {
		ret[i] = r.User
	}
	return ret
}

func pieceUsers[U, I comparable](list []UserPieces[U, I]) []U {
	ret := make([]U, len(list))
	for i, p := range list {
		ret[i] = p.User
	}
	return ret
}

// SimulationState is the iteration log plus the table of user states
type SimulationState[U, I comparable] struct {
	users      []*UserState[U, I]
	byID       map[U]*UserState[U, I]
	iterations []*Iteration[U, I]
}

func newSimulationState[U, I comparable](data *Data[U, I]) *SimulationState[U, I] {
	st := &SimulationState[U, I]{
		users:      make([]*UserState[U, I], 0, data.NumUsers()),
		byID:       make(map[U]*UserState[U, I], data.NumUsers()),
		iterations: make([]*Iteration[U, I], 0),
	}
	for i, u := range data.Users() {
		us := newUserState[U, I](u, uint(i))
		st.users = append(st.users, us)
		st.byID[u] = us
	}
	return st
}

// User returns the live state of u. Callers must not hold it across rounds.
func (s *SimulationState[U, I]) User(u U) (*UserState[U, I], bool) {
	us, ok := s.byID[u]
	return us, ok
}

// Users returns the live user states in index order
func (s *SimulationState[U, I]) Users() []*UserState[U, I] {
	ret := make([]*UserState[U, I], len(s.users))
	copy(ret, s.users)
	return ret
}

// FinalState returns a deep copy of the state of u
func (s *SimulationState[U, I]) FinalState(u U) (*UserState[U, I], bool) {
	us, ok := s.byID[u]
	if !ok {
		return nil, false
	}
	return us.clone(), true
}

func (s *SimulationState[U, I]) Iterations() []*Iteration[U, I] {
	ret := make([]*Iteration[U, I], len(s.iterations))
	copy(ret, s.iterations)
	return ret
}

func (s *SimulationState[U, I]) NumIterations() int { return len(s.iterations) }

// Iteration returns the i-th recorded iteration of this run
func (s *SimulationState[U, I]) Iteration(i int) (*Iteration[U, I], bool) {
	if i < 0 || i >= len(s.iterations) {
		return nil, false
	}
	return s.iterations[i], true
}

func (s *SimulationState[U, I]) Last() (*Iteration[U, I], bool) {
	return s.Iteration(len(s.iterations) - 1)
}

func (s *SimulationState[U, I]) addIteration(it *Iteration[U, I]) {
	s.iterations = append(s.iterations, it)
}
