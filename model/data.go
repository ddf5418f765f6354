package model

import (
	"fmt"
	"sort"
	"strings"
)

// Orientation selects which edges define the neighbors of a user
type Orientation int

const (
	// In neighbors v have an edge v -> u
	In Orientation = iota
	// Out neighbors v have an edge u -> v
	Out
	// Und neighbors are the union of In and Out
	Und
	// Mutual neighbors have edges in both directions
	Mutual
)

func (o Orientation) String() string {
	switch o {
	case In:
		return "IN"
	case Out:
		return "OUT"
	case Und:
		return "UND"
	case Mutual:
		return "MUTUAL"
	}
	return fmt.Sprintf("Orientation(%d)", int(o))
}

// ParseOrientation parses IN, OUT, UND or MUTUAL, case-insensitive
func ParseOrientation(s string) (Orientation, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "IN":
		return In, nil
	case "OUT":
		return Out, nil
	case "UND", "UNDIRECTED", "":
		return Und, nil
	case "MUTUAL":
		return Mutual, nil
	}
	return Und, fmt.Errorf("unknown orientation %q", s)
}

// Graph is the social network the information travels on
type Graph[U comparable] interface {
	Users() []U
	// Neighbors must return the same order on every call
	Neighbors(u U, orientation Orientation) []U
	ContainsEdge(u, v U) bool
	EdgeWeight(u, v U) (float64, bool)
	IsDirected() bool
}

// DataExtras carries the optional parts of a dataset
type DataExtras[U, I comparable] struct {
	UserFeatures   map[string]map[U][]string
	PieceFeatures  map[string]map[I][]string
	RealPropagated map[U][]I
}

// Data is the read-only input of a simulation
type Data[U, I comparable] struct {
	graph      Graph[U]
	users      []U
	userIndex  map[U]uint
	pieces     []Information[U, I]
	pieceIndex map[I]int
	userPieces map[U][]I
	timestamps []int64

	userFeatures   map[string]map[U][]string
	pieceFeatures  map[string]map[I][]string
	realPropagated map[U]map[I]struct{}
}

// NewData indexes the users of the graph and the pieces. Every creator must
// be a user of the graph and piece ids must be unique.
func NewData[U, I comparable](graph Graph[U], pieces []Information[U, I], extras *DataExtras[U, I]) (*Data[U, I], error) {
	if graph == nil {
		return nil, fmt.Errorf("failed to create data: %w", ErrNilGraph)
	}

	d := &Data[U, I]{
		graph:          graph,
		users:          graph.Users(),
		userIndex:      make(map[U]uint),
		pieces:         make([]Information[U, I], 0, len(pieces)),
		pieceIndex:     make(map[I]int, len(pieces)),
		userPieces:     make(map[U][]I),
		userFeatures:   make(map[string]map[U][]string),
		pieceFeatures:  make(map[string]map[I][]string),
		realPropagated: make(map[U]map[I]struct{}),
	}
	for i, u := range d.users {
		if _, ok := d.userIndex[u]; ok {
			return nil, fmt.Errorf("duplicate user %v in graph", u)
		}
		d.userIndex[u] = uint(i)
	}

	tsSet := make(map[int64]struct{})
	for _, p := range pieces {
		if _, ok := d.pieceIndex[p.ID]; ok {
			return nil, fmt.Errorf("duplicate piece %v", p.ID)
		}
		for _, c := range p.Creators {
			if _, ok := d.userIndex[c]; !ok {
				return nil, fmt.Errorf("creator %v of piece %v is not in the graph", c, p.ID)
			}
			d.userPieces[c] = append(d.userPieces[c], p.ID)
		}
		creators := make([]U, len(p.Creators))
		copy(creators, p.Creators)
		d.pieceIndex[p.ID] = len(d.pieces)
		d.pieces = append(d.pieces, Information[U, I]{ID: p.ID, Timestamp: p.Timestamp, Creators: creators})
		tsSet[p.Timestamp] = struct{}{}
	}
	d.timestamps = make([]int64, 0, len(tsSet))
	for ts := range tsSet {
		d.timestamps = append(d.timestamps, ts)
	}
	sort.Slice(d.timestamps, func(i, j int) bool { return d.timestamps[i] < d.timestamps[j] })

	if extras != nil {
		for name, table := range extras.UserFeatures {
			d.userFeatures[name] = table
		}
		for name, table := range extras.PieceFeatures {
			d.pieceFeatures[name] = table
		}
		for u, ids := range extras.RealPropagated {
			set := make(map[I]struct{}, len(ids))
			for _, id := range ids {
				set[id] = struct{}{}
			}
			d.realPropagated[u] = set
		}
	}

	return d, nil
}

func (d *Data[U, I]) Graph() Graph[U] { return d.graph }

// Users returns the users in index order
func (d *Data[U, I]) Users() []U { return d.users }

func (d *Data[U, I]) NumUsers() int { return len(d.users) }

func (d *Data[U, I]) UserIndex(u U) (uint, bool) {
	idx, ok := d.userIndex[u]
	return idx, ok
}

func (d *Data[U, I]) UserAt(idx uint) (U, bool) {
	if int(idx) >= len(d.users) {
		var zero U
		return zero, false
	}
	return d.users[idx], true
}

// Pieces returns the pieces in dataset order
func (d *Data[U, I]) Pieces() []Information[U, I] { return d.pieces }

func (d *Data[U, I]) Piece(id I) (Information[U, I], bool) {
	pos, ok := d.pieceIndex[id]
	if !ok {
		return Information[U, I]{}, false
	}
	return d.pieces[pos], true
}

func (d *Data[U, I]) Creators(id I) []U {
	p, ok := d.Piece(id)
	if !ok {
		return nil
	}
	return p.Creators
}

func (d *Data[U, I]) PieceTimestamp(id I) (int64, bool) {
	p, ok := d.Piece(id)
	return p.Timestamp, ok
}

// PiecesOf returns the pieces created by u in dataset order
func (d *Data[U, I]) PiecesOf(u U) []I { return d.userPieces[u] }

// Timestamps returns the distinct piece timestamps in ascending order
func (d *Data[U, I]) Timestamps() []int64 { return d.timestamps }

// NextTimestamp returns the smallest timestamp greater than ts
func (d *Data[U, I]) NextTimestamp(ts int64) (int64, bool) {
	pos := sort.Search(len(d.timestamps), func(i int) bool { return d.timestamps[i] > ts })
	if pos >= len(d.timestamps) {
		return 0, false
	}
	return d.timestamps[pos], true
}

func (d *Data[U, I]) UserFeature(name string, u U) []string {
	return d.userFeatures[name][u]
}

func (d *Data[U, I]) PieceFeature(name string, id I) []string {
	return d.pieceFeatures[name][id]
}

// HasRealPropagated reports whether a ground-truth repropagation reference
// was loaded
func (d *Data[U, I]) HasRealPropagated() bool { return len(d.realPropagated) > 0 }

// RealPropagated reports whether u repropagated piece id in the real data
func (d *Data[U, I]) RealPropagated(u U, id I) bool {
	_, ok := d.realPropagated[u][id]
	return ok
}
