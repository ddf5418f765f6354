package utils

import (
	"sort"

	"diffusion-sim/model"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
)

// SocialGraph is a weighted social network keyed by user id. Undirected
// graphs store both arcs of every edge.
type SocialGraph[U comparable] struct {
	g        *simple.WeightedDirectedGraph
	directed bool
	users    []U
	ids      map[U]int64
}

var _ model.Graph[int64] = (*SocialGraph[int64])(nil)

func NewSocialGraph[U comparable](directed bool) *SocialGraph[U] {
	return &SocialGraph[U]{
		g:        simple.NewWeightedDirectedGraph(0, 0),
		directed: directed,
		users:    make([]U, 0),
		ids:      make(map[U]int64),
	}
}

// AddUser adds u if absent and returns its node id
func (sg *SocialGraph[U]) AddUser(u U) int64 {
	if id, ok := sg.ids[u]; ok {
		return id
	}
	id := int64(len(sg.users))
	sg.g.AddNode(simple.Node(id))
	sg.ids[u] = id
	sg.users = append(sg.users, u)
	return id
}

// AddEdge adds an edge u -> v, adding missing users. Self loops are ignored.
func (sg *SocialGraph[U]) AddEdge(u, v U, weight float64) {
	from := sg.AddUser(u)
	to := sg.AddUser(v)
	if from == to {
		return
	}
	sg.g.SetWeightedEdge(sg.g.NewWeightedEdge(simple.Node(from), simple.Node(to), weight))
	if !sg.directed {
		sg.g.SetWeightedEdge(sg.g.NewWeightedEdge(simple.Node(to), simple.Node(from), weight))
	}
}

// RemoveEdge removes u -> v, and v -> u for undirected graphs
func (sg *SocialGraph[U]) RemoveEdge(u, v U) {
	from, ok1 := sg.ids[u]
	to, ok2 := sg.ids[v]
	if !ok1 || !ok2 {
		return
	}
	sg.g.RemoveEdge(from, to)
	if !sg.directed {
		sg.g.RemoveEdge(to, from)
	}
}

// Users returns the users in insertion order
func (sg *SocialGraph[U]) Users() []U {
	ret := make([]U, len(sg.users))
	copy(ret, sg.users)
	return ret
}

func (sg *SocialGraph[U]) NumUsers() int { return len(sg.users) }

// NumEdges counts arcs; an undirected edge counts once
func (sg *SocialGraph[U]) NumEdges() int {
	n := sg.g.Edges().Len()
	if !sg.directed {
		n /= 2
	}
	return n
}

func (sg *SocialGraph[U]) IsDirected() bool { return sg.directed }

// Gonum exposes the underlying graph
func (sg *SocialGraph[U]) Gonum() *simple.WeightedDirectedGraph { return sg.g }

func (sg *SocialGraph[U]) ID(u U) (int64, bool) {
	id, ok := sg.ids[u]
	return id, ok
}

func (sg *SocialGraph[U]) UserOf(id int64) (U, bool) {
	if id < 0 || id >= int64(len(sg.users)) {
		var zero U
		return zero, false
	}
	return sg.users[id], true
}

func (sg *SocialGraph[U]) ContainsEdge(u, v U) bool {
	from, ok1 := sg.ids[u]
	to, ok2 := sg.ids[v]
	if !ok1 || !ok2 {
		return false
	}
	return sg.g.HasEdgeFromTo(from, to)
}

func (sg *SocialGraph[U]) EdgeWeight(u, v U) (float64, bool) {
	from, ok1 := sg.ids[u]
	to, ok2 := sg.ids[v]
	if !ok1 || !ok2 {
		return 0, false
	}
	e := sg.g.WeightedEdge(from, to)
	if e == nil {
		return 0, false
	}
	return e.Weight(), true
}

func collectIDs(nodes graph.Nodes) map[int64]struct{} {
	ret := make(map[int64]struct{})
	for nodes.Next() {
		ret[nodes.Node().ID()] = struct{}{}
	}
	return ret
}

// Neighbors returns the neighbors of u sorted by insertion order
func (sg *SocialGraph[U]) Neighbors(u U, orientation model.Orientation) []U {
	id, ok := sg.ids[u]
	if !ok {
		return []U{}
	}

	var set map[int64]struct{}
	switch orientation {
	case model.Out:
		set = collectIDs(sg.g.From(id))
	case model.In:
		set = collectIDs(sg.g.To(id))
	case model.Und:
		set = collectIDs(sg.g.From(id))
		for v := range collectIDs(sg.g.To(id)) {
			set[v] = struct{}{}
		}
	case model.Mutual:
		out := collectIDs(sg.g.From(id))
		set = make(map[int64]struct{})
		for v := range collectIDs(sg.g.To(id)) {
			if _, ok := out[v]; ok {
				set[v] = struct{}{}
			}
		}
	default:
		return []U{}
	}

	ids := make([]int64, 0, len(set))
	for v := range set {
		ids = append(ids, v)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	ret := make([]U, len(ids))
	for i, v := range ids {
		ret[i] = sg.users[v]
	}
	return ret
}
