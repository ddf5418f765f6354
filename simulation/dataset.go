package simulation

import (
	"fmt"
	"math/rand"
	"os"
	"strconv"

	"diffusion-sim/model"
	"diffusion-sim/utils"

	"github.com/vmihailenco/msgpack/v5"
)

type PieceRecord struct {
	ID        int64   `msgpack:"id"`
	Timestamp int64   `msgpack:"timestamp"`
	Creators  []int64 `msgpack:"creators"`
}

// Dataset is the on-disk input of a scenario
type Dataset struct {
	Graph          *utils.NetworkXGraph           `msgpack:"graph"`
	Pieces         []PieceRecord                  `msgpack:"pieces"`
	UserFeatures   map[string]map[int64][]string `msgpack:"user_features,omitempty"`
	PieceFeatures  map[string]map[int64][]string `msgpack:"piece_features,omitempty"`
	RealPropagated map[int64][]int64             `msgpack:"real_propagated,omitempty"`
}

const DatasetTimestampRange = 1000
const DatasetGroupCount = 4

// GenerateDataset builds a synthetic network with piecesPerUser pieces per
// user at random timestamps. Each user also gets a random group feature and
// as many really repropagated pieces as they authored.
func GenerateDataset(cfg NetworkConfig, piecesPerUser int, seed int64) (*Dataset, error) {
	rng := rand.New(rand.NewSource(seed))

	nodeCount := max(cfg.NodeCount, 1)
	followCount := max(cfg.NodeFollowCount, 1)

	var graph *utils.SocialGraph[int64]
	switch cfg.Type {
	case "Random", "":
		graph = utils.CreateRandomNetwork(
			rng,
			nodeCount,
			float64(followCount)/float64(max(nodeCount-1, 1)),
		)
	case "SmallWorld":
		graph = utils.CreateSmallWorldNetwork(rng, nodeCount, followCount, cfg.RewireProbability)
	default:
		return nil, fmt.Errorf("cannot generate a %q network", cfg.Type)
	}

	ds := &Dataset{
		Graph:          utils.SerializeGraph(graph),
		Pieces:         make([]PieceRecord, 0, nodeCount*piecesPerUser),
		UserFeatures:   map[string]map[int64][]string{"group": {}},
		PieceFeatures:  map[string]map[int64][]string{},
		RealPropagated: map[int64][]int64{},
	}

	for _, u := range graph.Users() {
		for k := range piecesPerUser {
			ds.Pieces = append(ds.Pieces, PieceRecord{
				ID:        u*int64(piecesPerUser) + int64(k),
				Timestamp: rng.Int63n(DatasetTimestampRange),
				Creators:  []int64{u},
			})
		}
		ds.UserFeatures["group"][u] = []string{strconv.Itoa(rng.Intn(DatasetGroupCount))}
	}

	if total := len(ds.Pieces); total > 0 {
		for _, u := range graph.Users() {
			picked := make([]int64, 0, piecesPerUser)
			for range piecesPerUser {
				picked = append(picked, ds.Pieces[rng.Intn(total)].ID)
			}
			ds.RealPropagated[u] = picked
		}
	}

	return ds, nil
}

func SaveDataset(path string, ds *Dataset) error {
	data, err := msgpack.Marshal(ds)
	if err != nil {
		return fmt.Errorf("failed to encode dataset: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write dataset: %w", err)
	}
	return nil
}

func LoadDataset(path string) (*Dataset, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset: %w", err)
	}
	var ds Dataset
	if err := msgpack.Unmarshal(raw, &ds); err != nil {
		return nil, fmt.Errorf("failed to decode dataset %s: %w", path, err)
	}
	if ds.Graph == nil {
		return nil, fmt.Errorf("dataset %s has no graph", path)
	}
	return &ds, nil
}

// ToData rebuilds the social graph and indexes the pieces
func (ds *Dataset) ToData() (*model.Data[int64, int64], *utils.SocialGraph[int64], error) {
	if ds.Graph == nil {
		return nil, nil, fmt.Errorf("failed to create data: %w", model.ErrNilGraph)
	}
	graph := utils.DeserializeGraph(ds.Graph)

	pieces := make([]model.Information[int64, int64], len(ds.Pieces))
	for i, p := range ds.Pieces {
		pieces[i] = model.Information[int64, int64]{ID: p.ID, Timestamp: p.Timestamp, Creators: p.Creators}
	}

	data, err := model.NewData[int64, int64](graph, pieces, &model.DataExtras[int64, int64]{
		UserFeatures:   ds.UserFeatures,
		PieceFeatures:  ds.PieceFeatures,
		RealPropagated: ds.RealPropagated,
	})
	if err != nil {
		return nil, nil, err
	}
	return data, graph, nil
}
