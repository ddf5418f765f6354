package model

import (
	"context"
	"fmt"
	"math/rand"
	"runtime"
	"sort"
	"time"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type options struct {
	seed            int64
	workers         int
	checkInvariants bool
	logger          *zap.Logger
}

// Option configures a Simulator
type Option func(*options)

func WithSeed(seed int64) Option {
	return func(o *options) { o.seed = seed }
}

// WithWorkers bounds the goroutines used for selection, delivery and
// expiration. Values below 1 fall back to GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithInvariantChecks verifies set disjointness after every round
func WithInvariantChecks(on bool) Option {
	return func(o *options) { o.checkInvariants = on }
}

func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// IterationHook is called with every finished iteration. A non-nil error
// aborts the run.
type IterationHook[U, I comparable] func(it *Iteration[U, I]) error

// Simulator runs the diffusion rounds
type Simulator[U, I comparable] struct {
	protocol Protocol[U, I]
	stop     StopCondition[U, I]
	opts     options
	logger   *zap.Logger
	hooks    []IterationHook[U, I]

	data      *Data[U, I]
	state     *SimulationState[U, I]
	rc        *RunContext[U]
	curIter   int
	timestamp *int64
	total     int64
}

// NewSimulator creates a simulator. Missing mechanisms are reported by
// Initialize.
func NewSimulator[U, I comparable](protocol Protocol[U, I], stop StopCondition[U, I], opts ...Option) *Simulator[U, I] {
	o := options{
		workers: runtime.GOMAXPROCS(0),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.workers < 1 {
		o.workers = runtime.GOMAXPROCS(0)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	return &Simulator[U, I]{
		protocol: protocol,
		stop:     stop,
		opts:     o,
		logger:   o.logger,
	}
}

// AddHook registers a callback run after every iteration
func (s *Simulator[U, I]) AddHook(h IterationHook[U, I]) {
	s.hooks = append(s.hooks, h)
}

func (s *Simulator[U, I]) validate(data *Data[U, I]) error {
	var problems *multierror.Error
	if data == nil {
		problems = multierror.Append(problems, fmt.Errorf("data is missing"))
	} else if data.Graph() == nil {
		problems = multierror.Append(problems, fmt.Errorf("graph is missing"))
	}
	if s.protocol.Selection == nil {
		problems = multierror.Append(problems, fmt.Errorf("selection mechanism is missing"))
	}
	if s.protocol.Propagation == nil {
		problems = multierror.Append(problems, fmt.Errorf("propagation mechanism is missing"))
	}
	if s.protocol.Update == nil {
		problems = multierror.Append(problems, fmt.Errorf("update mechanism is missing"))
	}
	if s.protocol.Expiration == nil {
		problems = multierror.Append(problems, fmt.Errorf("expiration mechanism is missing"))
	}
	if s.stop == nil {
		problems = multierror.Append(problems, fmt.Errorf("stop condition is missing"))
	}
	if problems != nil {
		return &ConfigurationError{problems: problems}
	}
	return nil
}

// Initialize prepares a fresh run. With a nil own map every creator owns
// every piece they created, including pieces stamped after the first
// timestamp; a selection that must not send them early gates on the
// round timestamp.
func (s *Simulator[U, I]) Initialize(data *Data[U, I], own map[U][]I) error {
	if err := s.validate(data); err != nil {
		return err
	}

	state := newSimulationState(data)
	if own == nil {
		for _, p := range data.Pieces() {
			for _, c := range p.Creators {
				idx, _ := data.UserIndex(c)
				us, _ := state.User(c)
				us.addOwn(NewPropagatedInformation(p.ID, p.Timestamp, idx))
			}
		}
	} else {
		for u := range own {
			if _, ok := data.UserIndex(u); !ok {
				return fmt.Errorf("failed to assign own pieces: unknown user %v", u)
			}
		}
		for _, us := range state.users {
			for _, id := range own[us.UserID] {
				ts, ok := data.PieceTimestamp(id)
				if !ok {
					return fmt.Errorf("failed to assign own pieces: unknown piece %v", id)
				}
				us.addOwn(NewPropagatedInformation(id, ts, us.Index))
			}
		}
	}

	s.data = data
	s.state = state
	s.rc = NewRunContext[U](s.opts.seed)
	s.curIter = 0
	s.total = 0
	s.timestamp = nil
	if ts := data.Timestamps(); len(ts) > 0 {
		first := ts[0]
		s.timestamp = &first
	}
	return nil
}

func (s *Simulator[U, I]) State() *SimulationState[U, I] { return s.state }
func (s *Simulator[U, I]) Data() *Data[U, I]             { return s.data }

// CurrentIteration returns the index of the next round to run
func (s *Simulator[U, I]) CurrentIteration() int { return s.curIter }

func (s *Simulator[U, I]) Timestamp() *int64 { return copyTimestamp(s.timestamp) }

func (s *Simulator[U, I]) TotalPropagated() int64 { return s.total }

func copyTimestamp(ts *int64) *int64 {
	if ts == nil {
		return nil
	}
	v := *ts
	return &v
}

func (s *Simulator[U, I]) newGroup() *errgroup.Group {
	g := &errgroup.Group{}
	g.SetLimit(s.opts.workers)
	return g
}

// Step runs one round and appends its iteration to the state
func (s *Simulator[U, I]) Step() (*Iteration[U, I], error) {
	if s.state == nil {
		return nil, ErrNotInitialized
	}

	iter := s.curIter
	data := s.data
	p := s.protocol
	s.rc.beginRound(iter)

	it := &Iteration[U, I]{
		Index:     iter,
		Timestamp: copyTimestamp(s.timestamp),
	}

	// 1. selection over the state frozen at the end of the last round

	p.Propagation.ResetSelections(s.rc, data)

	selectable := p.Selection.SelectableUsers(data, s.state, iter, s.timestamp)
	senders := make([]*UserState[U, I], 0, len(selectable))
	for _, u := range selectable {
		if us, ok := s.state.User(u); ok {
			senders = append(senders, us)
		}
	}
	sort.SliceStable(senders, func(i, j int) bool { return senders[i].Index < senders[j].Index })

	selections := make([]Selection[I], len(senders))
	g := s.newGroup()
	for i, us := range senders {
		g.Go(func() error {
			rng := s.rc.UserRand(iter, us.Index)
			selections[i] = p.Selection.Select(rng, us, data, s.state, iter, s.timestamp)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to select pieces: %w", err)
	}

	// 2. targets

	inbox := make(map[uint][]PropagatedInformation[I])
	depends := p.Propagation.DependsOnInformationPiece()
	for i, us := range senders {
		sel := selections[i]
		if sel.IsEmpty() {
			continue
		}
		var shared []U
		if !depends {
			shared = p.Propagation.UsersToPropagate(s.rc, PropagatedInformation[I]{}, us, data)
		}
		sent := make([]I, 0, sel.NumPropagated())
		for _, info := range sel.All() {
			targets := shared
			if depends {
				targets = p.Propagation.UsersToPropagate(s.rc, info, us, data)
			}
			prior, hasPrior := us.senderRecord(info.PieceID)
			out := NewPropagatedInformation(info.PieceID, info.Timestamp, us.Index)
			n := 0
			for _, v := range targets {
				vIdx, ok := data.UserIndex(v)
				if !ok || vIdx == us.Index {
					continue
				}
				if hasPrior && prior.HasCarrier(vIdx) {
					continue
				}
				inbox[vIdx] = append(inbox[vIdx], out)
				n++
			}
			if n == 0 {
				continue
			}
			it.NewlyPropagated += int64(n)
			sent = append(sent, info.PieceID)
			us.markPropagated(info.PieceID)
		}
		if len(sent) > 0 {
			it.Propagating = append(it.Propagating, UserPieces[U, I]{User: us.UserID, Pieces: sent})
			it.NumPropagated += len(sent)
			it.NumPropagatingUsers++
		}
	}

	// 3. delivery, one goroutine per receiver at a time

	receivers := make([]uint, 0, len(inbox))
	for idx := range inbox {
		receivers = append(receivers, idx)
	}
	sort.Slice(receivers, func(i, j int) bool { return receivers[i] < receivers[j] })

	commits := make([][]commitResult[I], len(receivers))
	g = s.newGroup()
	for k, idx := range receivers {
		g.Go(func() error {
			us := s.state.users[idx]
			for _, info := range inbox[idx] {
				us.addSeen(info, p.Update)
			}
			commits[k] = us.commitSeen(p.Update)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to deliver pieces: %w", err)
	}

	for k, idx := range receivers {
		us := s.state.users[idx]
		var fresh, again []Receipt[U, I]
		for _, c := range commits[k] {
			switch c.outcome {
			case outcomeNew, outcomeResurrected:
				fresh = append(fresh, s.receipt(c.info))
			case outcomeReReceived:
				again = append(again, s.receipt(c.info))
			}
		}
		if len(fresh) > 0 {
			it.Receiving = append(it.Receiving, UserReceipts[U, I]{User: us.UserID, Pieces: fresh})
			it.NewlySeen += len(fresh)
		}
		if len(again) > 0 {
			it.ReReceiving = append(it.ReReceiving, UserReceipts[U, I]{User: us.UserID, Pieces: again})
			it.NumReReceived += len(again)
		}
	}

	// 4. expiration

	holders := make([]*UserState[U, I], 0)
	for _, us := range s.state.users {
		if us.NumReceived() > 0 {
			holders = append(holders, us)
		}
	}
	discarded := make([][]I, len(holders))
	g = s.newGroup()
	for k, us := range holders {
		g.Go(func() error {
			rng := rand.New(rand.NewSource(deriveSeed(^s.rc.seed, uint64(iter), uint64(us.Index))))
			ids := p.Expiration.Expire(rng, us, data, iter, s.timestamp)
			if len(ids) > 0 {
				discarded[k] = us.discard(ids)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to expire pieces: %w", err)
	}
	for k, us := range holders {
		if len(discarded[k]) == 0 {
			continue
		}
		it.Discarding = append(it.Discarding, UserPieces[U, I]{User: us.UserID, Pieces: discarded[k]})
		it.NumDiscarded += len(discarded[k])
	}

	// 5. bookkeeping

	s.total += int64(it.NumPropagated)
	it.TotalPropagated = s.total

	if s.opts.checkInvariants {
		if err := s.checkInvariants(iter); err != nil {
			return it, err
		}
	}

	s.state.addIteration(it)
	s.curIter++
	s.advanceTimestamp()

	s.logger.Debug("iteration finished",
		zap.Int("iteration", it.Index),
		zap.Int("propagated", it.NumPropagated),
		zap.Int("propagating_users", it.NumPropagatingUsers),
		zap.Int64("newly_propagated", it.NewlyPropagated),
		zap.Int("newly_seen", it.NewlySeen),
		zap.Int("discarded", it.NumDiscarded),
		zap.Int64("total_propagated", it.TotalPropagated),
	)

	for _, h := range s.hooks {
		if err := h(it); err != nil {
			return it, fmt.Errorf("iteration hook failed: %w", err)
		}
	}

	return it, nil
}

func (s *Simulator[U, I]) receipt(info PropagatedInformation[I]) Receipt[U, I] {
	carriers := info.Carriers()
	users := make([]U, 0, len(carriers))
	for _, c := range carriers {
		if u, ok := s.data.UserAt(c); ok {
			users = append(users, u)
		}
	}
	return Receipt[U, I]{Piece: info.PieceID, Carriers: users}
}

func (s *Simulator[U, I]) advanceTimestamp() {
	if s.timestamp == nil {
		return
	}
	next, ok := s.data.NextTimestamp(*s.timestamp)
	if !ok {
		s.timestamp = nil
		return
	}
	s.timestamp = &next
}

func (s *Simulator[U, I]) checkInvariants(iter int) error {
	for _, us := range s.state.users {
		if id, sets, ok := us.checkDisjoint(); !ok {
			return &InvariantViolation{
				Iteration: iter,
				User:      us.UserID,
				Piece:     id,
				Sets:      sets,
			}
		}
	}
	return nil
}

// ShouldStop evaluates the stop condition on the last finished iteration
func (s *Simulator[U, I]) ShouldStop(it *Iteration[U, I]) bool {
	return s.stop.Stop(
		s.curIter,
		it.NumPropagated,
		it.NumPropagatingUsers,
		it.NewlyPropagated,
		s.total,
		s.data,
		s.timestamp,
	)
}

// Run executes rounds until the stop condition holds. On cancellation the
// state reached so far is returned with the context error.
func (s *Simulator[U, I]) Run(ctx context.Context) (*SimulationState[U, I], error) {
	if s.state == nil {
		if err := s.validate(s.data); err != nil {
			return nil, err
		}
		return nil, ErrNotInitialized
	}

	start := time.Now()
	s.logger.Info("simulation started",
		zap.Int("users", s.data.NumUsers()),
		zap.Int("pieces", len(s.data.Pieces())),
		zap.Int("from_iteration", s.curIter),
		zap.Int64("seed", s.opts.seed),
		zap.Int("workers", s.opts.workers),
	)

	for {
		if err := ctx.Err(); err != nil {
			s.logger.Info("simulation cancelled", zap.Int("iterations", s.curIter), zap.Error(err))
			return s.state, err
		}
		it, err := s.Step()
		if err != nil {
			return s.state, err
		}
		if s.ShouldStop(it) {
			break
		}
	}

	s.logger.Info("simulation finished",
		zap.Int("iterations", s.curIter),
		zap.Int64("total_propagated", s.total),
		zap.Duration("elapsed", time.Since(start)),
	)
	return s.state, nil
}

// Run initializes a simulator and runs it to the end
func Run[U, I comparable](
	ctx context.Context,
	data *Data[U, I],
	protocol Protocol[U, I],
	stop StopCondition[U, I],
	own map[U][]I,
	opts ...Option,
) (*SimulationState[U, I], error) {
	sim := NewSimulator(protocol, stop, opts...)
	if err := sim.Initialize(data, own); err != nil {
		return nil, err
	}
	return sim.Run(ctx)
}
