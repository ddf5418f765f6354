package simulation

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"diffusion-sim/model"
	"diffusion-sim/utils"

	"github.com/vmihailenco/msgpack/v5"
)

type Snapshot = model.StateSnapshot[int64, int64]

// SimulationSerializer owns the files of one scenario directory
type SimulationSerializer struct {
	baseDir          string
	simulationID     string
	maxSnapshotCount int
}

func NewSimulationSerializer(baseDir string, simulationID string, maxSnapshotCount int) *SimulationSerializer {
	return &SimulationSerializer{
		baseDir:          baseDir,
		simulationID:     simulationID,
		maxSnapshotCount: maxSnapshotCount,
	}
}

func (s *SimulationSerializer) getSimulationDir() string {
	return filepath.Join(s.baseDir, s.simulationID)
}

func (s *SimulationSerializer) Exists() bool {
	_, err := os.Stat(s.getSimulationDir())
	return !os.IsNotExist(err)
}

func (s *SimulationSerializer) ensureSimulationDir() error {
	return os.MkdirAll(s.getSimulationDir(), 0755)
}

// #region serialize

func (s *SimulationSerializer) _list(fileType string, suffixName string) ([]string, error) {
	dir := s.getSimulationDir()
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasPrefix(entry.Name(), fileType+"-") && strings.HasSuffix(entry.Name(), suffixName) {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}

	// ISO 8601 names sort by time
	sort.Strings(files)
	return files, nil
}

func (s *SimulationSerializer) _latest(fileType string, suffixName string) (string, error) {
	if !s.Exists() {
		return "", nil
	}
	files, err := s._list(fileType, suffixName)
	if err != nil {
		return "", err
	}
	if len(files) == 0 {
		return "", nil
	}
	return files[len(files)-1], nil
}

func _read[T any](filePath string) (*T, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var ret T
	if err := msgpack.Unmarshal(data, &ret); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", filePath, err)
	}
	return &ret, nil
}

// names carry a nanosecond UTC stamp so that two dumps never collide
func (s *SimulationSerializer) _getFilePath(fileType string, suffixName string) string {
	timestamp := time.Now().UTC().Format("20060102T150405.000000000Z")
	filename := fmt.Sprintf("%s-%s%s", fileType, timestamp, suffixName)
	return filepath.Join(s.getSimulationDir(), filename)
}

func (s *SimulationSerializer) _write(fileType string, value any) error {
	if err := s.ensureSimulationDir(); err != nil {
		return err
	}

	data, err := msgpack.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", fileType, err)
	}

	filePath := s._getFilePath(fileType, ".msgpack")
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return err
	}

	return s._clean(fileType, false, ".msgpack")
}

// _clean keeps the newest maxSnapshotCount files of a type, or none with all
func (s *SimulationSerializer) _clean(fileType string, all bool, suffixName string) error {
	if !all && s.maxSnapshotCount <= 0 {
		return nil
	}

	files, err := s._list(fileType, suffixName)
	if err != nil {
		return err
	}

	toDelete := len(files)
	if !all {
		if len(files) > s.maxSnapshotCount {
			toDelete -= s.maxSnapshotCount
		} else {
			toDelete = 0
		}
	}

	for i := range toDelete {
		if err := os.Remove(files[i]); err != nil {
			return err
		}
	}

	return nil
}

// #endregion

// #region snapshot

// GetLatestSnapshot returns nil without error when nothing was saved yet
func (s *SimulationSerializer) GetLatestSnapshot() (*Snapshot, error) {
	latest, err := s._latest("snapshot", ".msgpack")
	if err != nil || latest == "" {
		return nil, err
	}
	return _read[Snapshot](latest)
}

func (s *SimulationSerializer) SaveSnapshot(snapshot *Snapshot) error {
	return s._write("snapshot", snapshot)
}

// #endregion

// #region finished mark

type FinishMark struct {
	Iteration int `msgpack:"iteration"`
}

func (s *SimulationSerializer) MarkFinished(iteration int) error {
	return s._write("finished", &FinishMark{Iteration: iteration})
}

func (s *SimulationSerializer) IsFinished() (bool, error) {
	latest, err := s._latest("finished", ".msgpack")
	if err != nil {
		return false, err
	}
	return latest != "", nil
}

// ClearFinished drops the finished mark so a scenario can be extended
func (s *SimulationSerializer) ClearFinished() error {
	if !s.Exists() {
		return nil
	}
	return s._clean("finished", true, ".msgpack")
}

// #endregion

// #region acc-state

func (s *SimulationSerializer) GetLatestAccumulativeState() (*AccumulativeState, error) {
	latest, err := s._latest("acc-state", ".lz4")
	if err != nil || latest == "" {
		return nil, err
	}
	return LoadAccumulativeState(latest)
}

func (s *SimulationSerializer) SaveAccumulativeState(state *AccumulativeState) error {
	if err := s.ensureSimulationDir(); err != nil {
		return err
	}

	fileType := "acc-state"
	if err := SaveAccumulativeState(s._getFilePath(fileType, ".lz4"), state); err != nil {
		return err
	}

	return s._clean(fileType, false, ".lz4")
}

// #endregion

// #region graph

func (s *SimulationSerializer) graphPath() string {
	return filepath.Join(s.getSimulationDir(), "graph.msgpack")
}

func (s *SimulationSerializer) SaveGraph(graph *utils.SocialGraph[int64]) error {
	if err := s.ensureSimulationDir(); err != nil {
		return err
	}
	return utils.SaveGraphToFile(graph, s.graphPath())
}

// LoadGraph returns nil without error when no graph was saved
func (s *SimulationSerializer) LoadGraph() (*utils.SocialGraph[int64], error) {
	if _, err := os.Stat(s.graphPath()); os.IsNotExist(err) {
		return nil, nil
	}
	return utils.LoadGraphFromFile(s.graphPath())
}

// #endregion

// #region dataset

func (s *SimulationSerializer) datasetPath() string {
	return filepath.Join(s.getSimulationDir(), "dataset.msgpack")
}

func (s *SimulationSerializer) SaveDataset(ds *Dataset) error {
	if err := s.ensureSimulationDir(); err != nil {
		return err
	}
	return SaveDataset(s.datasetPath(), ds)
}

func (s *SimulationSerializer) LoadDataset() (*Dataset, error) {
	return LoadDataset(s.datasetPath())
}

// #endregion

func (s *SimulationSerializer) SaveMetadata(metadata *ScenarioMetadata) error {
	if err := s.ensureSimulationDir(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(s.getSimulationDir(), "metadata.json"), data, 0644)
}

// LoadMetadata returns nil without error when the scenario does not exist
func (s *SimulationSerializer) LoadMetadata() (*ScenarioMetadata, error) {
	if !s.Exists() {
		return nil, nil
	}

	data, err := os.ReadFile(filepath.Join(s.getSimulationDir(), "metadata.json"))
	if err != nil {
		return nil, err
	}

	var metadata ScenarioMetadata
	if err := json.Unmarshal(data, &metadata); err != nil {
		return nil, err
	}

	return &metadata, nil
}
