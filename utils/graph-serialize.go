package utils

import (
	"fmt"
	"os"
	"sort"

	"github.com/vmihailenco/msgpack/v5"
)

// NetworkXGraph is the node-link adjacency layout networkx reads and writes
type NetworkXGraph struct {
	Adjacency map[int64]map[int64]any  `msgpack:"adjacency"`
	Directed  bool                     `msgpack:"directed"`
	Nodes     map[int64]map[string]any `msgpack:"nodes"`
	Graph     map[string]any           `msgpack:"graph"`
}

func SerializeGraph(g *SocialGraph[int64]) *NetworkXGraph {
	nxGraph := &NetworkXGraph{
		Adjacency: make(map[int64]map[int64]any),
		Directed:  g.IsDirected(),
		Nodes:     make(map[int64]map[string]any),
		Graph:     make(map[string]any),
	}

	for _, u := range g.Users() {
		nxGraph.Nodes[u] = make(map[string]any)
		nxGraph.Adjacency[u] = make(map[int64]any)
	}

	edges := g.Gonum().WeightedEdges()
	for edges.Next() {
		edge := edges.WeightedEdge()
		from, _ := g.UserOf(edge.From().ID())
		to, _ := g.UserOf(edge.To().ID())
		nxGraph.Adjacency[from][to] = map[string]any{
			"weight": edge.Weight(),
		}
	}

	nxGraph.Graph["name"] = "social network"

	return nxGraph
}

func edgeWeight(attr any) float64 {
	attrs, ok := attr.(map[string]any)
	if !ok {
		return 1
	}
	switch v := attrs["weight"].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int8:
		return float64(v)
	case int16:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	case uint8:
		return float64(v)
	case uint16:
		return float64(v)
	case uint32:
		return float64(v)
	case uint64:
		return float64(v)
	}
	return 1
}

// DeserializeGraph rebuilds a graph; users are added in ascending id order
func DeserializeGraph(nxGraph *NetworkXGraph) *SocialGraph[int64] {
	g := NewSocialGraph[int64](nxGraph.Directed)

	idSet := make(map[int64]struct{})
	for id := range nxGraph.Nodes {
		idSet[id] = struct{}{}
	}
	for from, targets := range nxGraph.Adjacency {
		idSet[from] = struct{}{}
		for to := range targets {
			idSet[to] = struct{}{}
		}
	}
	ids := make([]int64, 0, len(idSet))
	for id := range idSet {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		g.AddUser(id)
	}

	for _, from := range ids {
		targets := nxGraph.Adjacency[from]
		tos := make([]int64, 0, len(targets))
		for to := range targets {
			tos = append(tos, to)
		}
		sort.Slice(tos, func(i, j int) bool { return tos[i] < tos[j] })
		for _, to := range tos {
			g.AddEdge(from, to, edgeWeight(targets[to]))
		}
	}

	return g
}

func SaveGraphToFile(g *SocialGraph[int64], filename string) error {
	data, err := msgpack.Marshal(SerializeGraph(g))
	if err != nil {
		return fmt.Errorf("failed to encode graph: %w", err)
	}

	return os.WriteFile(filename, data, 0644)
}

func LoadGraphFromFile(filename string) (*SocialGraph[int64], error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	var nxGraph NetworkXGraph
	if err := msgpack.Unmarshal(data, &nxGraph); err != nil {
		return nil, fmt.Errorf("failed to decode graph %s: %w", filename, err)
	}

	return DeserializeGraph(&nxGraph), nil
}
