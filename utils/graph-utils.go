package utils

type edgeKey[U comparable] struct {
	from, to U
}

func edgeTable[U comparable](g *SocialGraph[U]) map[edgeKey[U]]float64 {
	ret := make(map[edgeKey[U]]float64)
	edges := g.Gonum().WeightedEdges()
	for edges.Next() {
		e := edges.WeightedEdge()
		from, _ := g.UserOf(e.From().ID())
		to, _ := g.UserOf(e.To().ID())
		ret[edgeKey[U]{from, to}] = e.Weight()
	}
	return ret
}

// CompareGraphs reports whether both graphs have the same users, direction
// and weighted edges. User insertion order is not compared.
func CompareGraphs[U comparable](g1, g2 *SocialGraph[U]) bool {
	if g1.IsDirected() != g2.IsDirected() || g1.NumUsers() != g2.NumUsers() {
		return false
	}
	for _, u := range g1.Users() {
		if _, ok := g2.ID(u); !ok {
			return false
		}
	}

	edges1 := edgeTable(g1)
	edges2 := edgeTable(g2)
	if len(edges1) != len(edges2) {
		return false
	}
	for k, w := range edges1 {
		if w2, ok := edges2[k]; !ok || w2 != w {
			return false
		}
	}
	return true
}
