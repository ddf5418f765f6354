package utils

import (
	"math/rand"

	"diffusion-sim/model"
)

// n, p graph
//
// p = m / (n - 1),
func CreateRandomNetwork(rng *rand.Rand, nodeCount int, edgeProbability float64) *SocialGraph[int64] {
	g := NewSocialGraph[int64](true)

	for i := range nodeCount {
		g.AddUser(int64(i))
	}

	for i := range nodeCount {
		for j := range nodeCount {
			if i != j && rng.Float64() < edgeProbability {
				g.AddEdge(int64(i), int64(j), 1)
			}
		}
	}

	return g
}

// Watts-Strogatz ring lattice with k neighbors per node, each right-hand
// edge rewired with the given probability
func CreateSmallWorldNetwork(rng *rand.Rand, nodeCount int, k int, rewireProbability float64) *SocialGraph[int64] {
	g := NewSocialGraph[int64](true)

	for i := range nodeCount {
		g.AddUser(int64(i))
	}
	if nodeCount < 2 {
		return g
	}

	for i := range nodeCount {
		for j := 1; j <= k/2; j++ {
			rightNeighbor := (i + j) % nodeCount
			leftNeighbor := (i - j + nodeCount) % nodeCount

			g.AddEdge(int64(i), int64(rightNeighbor), 1)
			g.AddEdge(int64(i), int64(leftNeighbor), 1)
		}
	}

	// random reconnect
	for i := 0; i < nodeCount; i++ {
		for j := 1; j <= k/2; j++ {
			if rng.Float64() >= rewireProbability {
				continue
			}
			// no free target left
			if len(g.Neighbors(int64(i), model.Out)) >= nodeCount-1 {
				break
			}
			oldTarget := (i + j) % nodeCount

			var newTarget int
			for {
				newTarget = rng.Intn(nodeCount)
				if newTarget != i && !g.ContainsEdge(int64(i), int64(newTarget)) {
					break
				}
			}

			g.RemoveEdge(int64(i), int64(oldTarget))
			g.AddEdge(int64(i), int64(newTarget), 1)
		}
	}

	return g
}
