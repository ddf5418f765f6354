package model

import "math/rand"

// Selection lists the pieces a user sends in one round
type Selection[I comparable] struct {
	Own          []PropagatedInformation[I]
	Received     []PropagatedInformation[I]
	Repropagated []PropagatedInformation[I]
}

func (s Selection[I]) NumPropagated() int {
	return len(s.Own) + len(s.Received) + len(s.Repropagated)
}

func (s Selection[I]) IsEmpty() bool {
	return s.NumPropagated() == 0
}

// All returns own, received and repropagated pieces in that order
func (s Selection[I]) All() []PropagatedInformation[I] {
	ret := make([]PropagatedInformation[I], 0, s.NumPropagated())
	ret = append(ret, s.Own...)
	ret = append(ret, s.Received...)
	ret = append(ret, s.Repropagated...)
	return ret
}

// SelectionMechanism decides which pieces each user sends. Select must only
// read state; it is called concurrently for different users.
type SelectionMechanism[U, I comparable] interface {
	Select(
		rng *rand.Rand,
		user *UserState[U, I],
		data *Data[U, I],
		state *SimulationState[U, I],
		iter int,
		timestamp *int64,
	) Selection[I]
	SelectableUsers(
		data *Data[U, I],
		state *SimulationState[U, I],
		iter int,
		timestamp *int64,
	) []U
}

// PropagationMechanism decides who receives what a user sends. Per-run
// state belongs in the RunContext.
type PropagationMechanism[U, I comparable] interface {
	ResetSelections(rc *RunContext[U], data *Data[U, I])
	UsersToPropagate(
		rc *RunContext[U],
		info PropagatedInformation[I],
		user *UserState[U, I],
		data *Data[U, I],
	) []U
	DependsOnInformationPiece() bool
}

// UpdateMechanism merges copies of the same piece. Implementations must be
// stateless.
type UpdateMechanism[I comparable] interface {
	UpdateSeen(old, new PropagatedInformation[I]) PropagatedInformation[I]
	// UpdateDiscarded returns the record to keep and whether the piece
	// leaves the discarded set
	UpdateDiscarded(old, new PropagatedInformation[I]) (PropagatedInformation[I], bool)
}

// ExpirationMechanism picks received pieces that the user forgets
type ExpirationMechanism[U, I comparable] interface {
	Expire(
		rng *rand.Rand,
		user *UserState[U, I],
		data *Data[U, I],
		iter int,
		timestamp *int64,
	) []I
}

// StopCondition decides whether the run ends after an iteration
type StopCondition[U, I comparable] interface {
	Stop(
		numIter int,
		numPropagated int,
		numPropagatingUsers int,
		newlyPropagated int64,
		totalPropagated int64,
		data *Data[U, I],
		timestamp *int64,
	) bool
}

// Protocol bundles the four per-round mechanisms
type Protocol[U, I comparable] struct {
	Selection   SelectionMechanism[U, I]
	Propagation PropagationMechanism[U, I]
	Update      UpdateMechanism[I]
	Expiration  ExpirationMechanism[U, I]
}

// Visit is one slot of a contact window. Ok is false for a round without
// a contact.
type Visit[U comparable] struct {
	User U    `msgpack:"user"`
	Ok   bool `msgpack:"ok"`
}

// RunContext is the mutable scratch space of one run. It is only touched
// from the control goroutine.
type RunContext[U comparable] struct {
	// Rand is reseeded at the start of every round
	Rand *rand.Rand
	// Targets holds the pairings made for the current round
	Targets map[U][]U
	// Recent holds the sliding window of the last contacts of every user
	Recent map[U][]Visit[U]

	seed int64
	iter int
}

func NewRunContext[U comparable](seed int64) *RunContext[U] {
	rc := &RunContext[U]{
		Targets: make(map[U][]U),
		Recent:  make(map[U][]Visit[U]),
		seed:    seed,
	}
	rc.beginRound(0)
	return rc
}

func (rc *RunContext[U]) Seed() int64    { return rc.seed }
func (rc *RunContext[U]) Iteration() int { return rc.iter }

func (rc *RunContext[U]) beginRound(iter int) {
	rc.iter = iter
	rc.Rand = rand.New(rand.NewSource(deriveSeed(rc.seed, uint64(iter), 0xffffffff)))
}

// ResetTargets clears the pairings of the previous round
func (rc *RunContext[U]) ResetTargets() {
	rc.Targets = make(map[U][]U)
}

// AddTarget records that from sends to to in this round
func (rc *RunContext[U]) AddTarget(from, to U) {
	for _, v := range rc.Targets[from] {
		if v == to {
			return
		}
	}
	rc.Targets[from] = append(rc.Targets[from], to)
}

func (rc *RunContext[U]) TargetsOf(u U) []U {
	return rc.Targets[u]
}

// Remember pushes v into the window of u, dropping the oldest entries
// beyond size
func (rc *RunContext[U]) Remember(u, v U, size int) {
	rc.push(u, Visit[U]{User: v, Ok: true}, size)
}

// Skip records a round in which u contacted nobody. The window still ages.
func (rc *RunContext[U]) Skip(u U, size int) {
	rc.push(u, Visit[U]{}, size)
}

func (rc *RunContext[U]) push(u U, visit Visit[U], size int) {
	if size <= 0 {
		return
	}
	w := append(rc.Recent[u], visit)
	if len(w) > size {
		w = w[len(w)-size:]
	}
	rc.Recent[u] = w
}

// RecentlyVisited reports whether v is in the window of u
func (rc *RunContext[U]) RecentlyVisited(u, v U) bool {
	for _, w := range rc.Recent[u] {
		if w.Ok && w.User == v {
			return true
		}
	}
	return false
}

// UserRand returns the generator of a user for a round. It depends only on
// the seed, the iteration and the user index.
func (rc *RunContext[U]) UserRand(iter int, userIdx uint) *rand.Rand {
	return rand.New(rand.NewSource(deriveSeed(rc.seed, uint64(iter), uint64(userIdx))))
}

// splitmix64 finalizer
func mix64(z uint64) uint64 {
	z += 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

func deriveSeed(seed int64, iter, user uint64) int64 {
	h := mix64(uint64(seed))
	h = mix64(h ^ iter)
	h = mix64(h ^ user)
	return int64(h)
}
