package simulation

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"diffusion-sim/model"
	"diffusion-sim/utils"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
)

const DB_CACHE_SIZE = 200
const EVENT_DB_NAME = "events.db"

type ScenarioOption func(*Scenario)

func WithLogger(logger *zap.Logger) ScenarioOption {
	return func(s *Scenario) { s.logger = logger }
}

// WithRegisterer registers the scenario metrics with reg
func WithRegisterer(reg prometheus.Registerer) ScenarioOption {
	return func(s *Scenario) { s.registerer = reg }
}

func WithProgress(show bool) ScenarioOption {
	return func(s *Scenario) { s.showProgress = show }
}

// Scenario is a persisted simulation run living in <dir>/<unique name>
type Scenario struct {
	dir          string
	metadata     *ScenarioMetadata
	logger       *zap.Logger
	registerer   prometheus.Registerer
	showProgress bool

	dataset *Dataset
	data    *model.Data[int64, int64]
	graph   *utils.SocialGraph[int64]
	sim     *model.Simulator[int64, int64]

	acc        *AccumulativeState
	serializer *SimulationSerializer
	db         *EventDB
	runID      string
	metrics    *Metrics
}

func NewScenario(dir string, metadata *ScenarioMetadata, opts ...ScenarioOption) *Scenario {
	s := &Scenario{
		dir:          dir,
		metadata:     metadata,
		logger:       zap.NewNop(),
		showProgress: true,
		serializer:   NewSimulationSerializer(dir, metadata.UniqueName, metadata.MaxSnapshotCount),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	s.logger = s.logger.With(zap.String("scenario", metadata.UniqueName))
	s.metrics = NewMetrics(s.registerer)
	return s
}

func (s *Scenario) Dir() string {
	return filepath.Join(s.dir, s.metadata.UniqueName)
}

func (s *Scenario) Metadata() *ScenarioMetadata             { return s.metadata }
func (s *Scenario) Simulator() *model.Simulator[int64, int64] { return s.sim }
func (s *Scenario) Data() *model.Data[int64, int64]           { return s.data }
func (s *Scenario) Graph() *utils.SocialGraph[int64]          { return s.graph }
func (s *Scenario) Dataset() *Dataset                         { return s.dataset }
func (s *Scenario) Accumulative() *AccumulativeState          { return s.acc }
func (s *Scenario) RunID() string                             { return s.runID }
func (s *Scenario) Metrics() *Metrics                         { return s.metrics }

func (s *Scenario) openDB() error {
	if s.db != nil {
		return nil
	}
	db, err := OpenEventDB(filepath.Join(s.Dir(), EVENT_DB_NAME), DB_CACHE_SIZE)
	if err != nil {
		return fmt.Errorf("failed to create event db: %w", err)
	}
	runID, err := db.EnsureRun(s.metadata.UniqueName, s.metadata.Seed)
	if err != nil {
		db.Close()
		return err
	}
	s.db = db
	s.runID = runID
	return nil
}

// prepare builds data, protocol and simulator from a dataset
func (s *Scenario) prepare(ds *Dataset) error {
	data, graph, err := ds.ToData()
	if err != nil {
		return fmt.Errorf("failed to build data: %w", err)
	}

	protocol, stopCond, err := BuildProtocol(s.metadata.Protocol, graph)
	if err != nil {
		return err
	}

	s.dataset = ds
	s.data = data
	s.graph = graph
	s.sim = model.NewSimulator(
		protocol,
		stopCond,
		model.WithSeed(s.metadata.Seed),
		model.WithWorkers(s.metadata.Workers),
		model.WithInvariantChecks(s.metadata.InvariantChecks),
		model.WithLogger(s.logger),
	)
	s.sim.AddHook(s.record)
	return nil
}

// Init starts the scenario from scratch, replacing an earlier run with the
// same name
func (s *Scenario) Init() error {
	var ds *Dataset
	var err error
	if s.metadata.Network.Type == "File" {
		ds, err = LoadDataset(s.metadata.Network.DatasetPath)
	} else {
		ds, err = GenerateDataset(s.metadata.Network, s.metadata.PiecesPerUser, s.metadata.Seed)
	}
	if err != nil {
		return err
	}

	if err := s.prepare(ds); err != nil {
		return err
	}
	if err := s.sim.Initialize(s.data, nil); err != nil {
		return fmt.Errorf("failed to initialize simulator: %w", err)
	}

	if err := s.serializer.SaveMetadata(s.metadata); err != nil {
		return fmt.Errorf("failed to save metadata: %w", err)
	}
	if err := s.serializer.SaveDataset(ds); err != nil {
		return fmt.Errorf("failed to save dataset: %w", err)
	}
	if err := s.serializer.SaveGraph(s.graph); err != nil {
		return fmt.Errorf("failed to save graph: %w", err)
	}
	if err := s.serializer.ClearFinished(); err != nil {
		return fmt.Errorf("failed to clear finished mark: %w", err)
	}

	s.acc = NewAccumulativeState()

	if err := s.openDB(); err != nil {
		return err
	}
	if err := s.db.DeleteIterationsFrom(s.runID, 0); err != nil {
		return err
	}

	s.logger.Info("scenario initialized",
		zap.Int("users", s.data.NumUsers()),
		zap.Int("pieces", len(s.data.Pieces())),
		zap.Int("edges", s.graph.NumEdges()),
	)
	return nil
}

// Load continues from the latest snapshot. It reports false without error
// when there is nothing to continue from.
func (s *Scenario) Load() (bool, error) {
	snapshot, err := s.serializer.GetLatestSnapshot()
	if err != nil {
		return false, fmt.Errorf("failed to load snapshot: %w", err)
	}
	if snapshot == nil {
		return false, nil
	}

	ds, err := s.serializer.LoadDataset()
	if err != nil {
		return false, err
	}
	if err := s.prepare(ds); err != nil {
		return false, err
	}
	if err := s.sim.Restore(s.data, snapshot); err != nil {
		return false, err
	}

	acc, err := s.serializer.GetLatestAccumulativeState()
	if err != nil {
		return false, fmt.Errorf("failed to load accumulative state: %w", err)
	}
	if acc == nil || !acc.validate(snapshot.Iteration) {
		return false, fmt.Errorf("accumulative state does not match snapshot at iteration %d", snapshot.Iteration)
	}
	s.acc = acc

	if err := s.openDB(); err != nil {
		return false, err
	}
	// rows written after the snapshot are replayed
	if err := s.db.DeleteIterationsFrom(s.runID, snapshot.Iteration); err != nil {
		return false, err
	}

	s.logger.Info("scenario loaded", zap.Int("iteration", snapshot.Iteration))
	return true, nil
}

func (s *Scenario) Dump() error {
	if err := s.db.Flush(); err != nil {
		return err
	}
	if err := s.serializer.SaveSnapshot(s.sim.Snapshot()); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	if err := s.serializer.SaveAccumulativeState(s.acc); err != nil {
		return fmt.Errorf("failed to save accumulative state: %w", err)
	}
	return nil
}

func (s *Scenario) record(it *model.Iteration[int64, int64]) error {
	s.acc.accumulate(it, s.sim.State())
	s.metrics.Observe(s.metadata.UniqueName, it)
	return s.db.StoreIteration(s.runID, it)
}

func (s *Scenario) Step() (*model.Iteration[int64, int64], error) {
	return s.sim.Step()
}

func (s *Scenario) IsFinished() bool {
	finished, err := s.serializer.IsFinished()
	if err != nil {
		s.logger.Warn("failed to read finished mark", zap.Error(err))
	}
	return finished
}

// StepTillEnd runs until the stop condition holds or MaxSimulationStep
// iterations are done, saving every SaveInterval seconds. A cancelled
// context dumps the current state and returns the context error.
func (s *Scenario) StepTillEnd(ctx context.Context) error {

	// if finished, jump this simulation
	if s.IsFinished() {
		s.logger.Info("scenario already finished")
		return nil
	}

	maxStep := s.metadata.MaxSimulationStep
	var bar *progressbar.ProgressBar
	if s.showProgress {
		bar = progressbar.Default(int64(maxStep), s.metadata.UniqueName)
	} else {
		bar = progressbar.DefaultSilent(int64(maxStep))
	}
	_ = bar.Set(s.sim.CurrentIteration())

	saveInterval := time.Duration(s.metadata.SaveInterval) * time.Second
	lastSaveTime := time.Now()

	for s.sim.CurrentIteration() < maxStep {

		if err := ctx.Err(); err != nil {
			s.logger.Info("scenario interrupted", zap.Int("iteration", s.sim.CurrentIteration()))
			return errors.Join(err, s.Dump())
		}

		it, err := s.Step()
		if err != nil {
			return fmt.Errorf("failed to step scenario: %w", err)
		}
		_ = bar.Set(s.sim.CurrentIteration())

		if s.sim.ShouldStop(it) {
			break
		}

		// save at fixed interval
		if saveInterval > 0 && time.Since(lastSaveTime) >= saveInterval {
			lastSaveTime = time.Now()
			if err := s.Dump(); err != nil {
				return err
			}
			s.logger.Debug("snapshot saved", zap.Int("iteration", s.sim.CurrentIteration()))
		}
	}
	_ = bar.Finish()

	// finally save everything
	if err := s.Dump(); err != nil {
		return err
	}
	if err := s.serializer.MarkFinished(s.sim.CurrentIteration()); err != nil {
		return fmt.Errorf("failed to mark finished: %w", err)
	}

	s.logger.Info("scenario finished",
		zap.Int("iterations", s.sim.CurrentIteration()),
		zap.Int64("total_propagated", s.sim.TotalPropagated()),
	)
	return nil
}

func (s *Scenario) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
