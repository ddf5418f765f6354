package model

// pieceMap is an insertion-ordered map from piece to its propagated record.
// Accessors return pieces in insertion order so that seeded runs do not
// depend on Go map iteration order.
type pieceMap[I comparable] struct {
	index map[I]int
	items []PropagatedInformation[I]
}

func newPieceMap[I comparable]() *pieceMap[I] {
	return &pieceMap[I]{
		index: make(map[I]int),
		items: make([]PropagatedInformation[I], 0),
	}
}

func (m *pieceMap[I]) len() int {
	return len(m.items)
}

func (m *pieceMap[I]) contains(id I) bool {
	_, ok := m.index[id]
	return ok
}

func (m *pieceMap[I]) get(id I) (PropagatedInformation[I], bool) {
	pos, ok := m.index[id]
	if !ok {
		return PropagatedInformation[I]{}, false
	}
	return m.items[pos], true
}

// put inserts info, or replaces the record of the same piece in place.
func (m *pieceMap[I]) put(info PropagatedInformation[I]) {
	if pos, ok := m.index[info.PieceID]; ok {
		m.items[pos] = info
		return
	}
	m.index[info.PieceID] = len(m.items)
	m.items = append(m.items, info)
}

// remove deletes a piece keeping the relative order of the rest.
func (m *pieceMap[I]) remove(id I) (PropagatedInformation[I], bool) {
	pos, ok := m.index[id]
	if !ok {
		return PropagatedInformation[I]{}, false
	}
	info := m.items[pos]
	delete(m.index, id)
	copy(m.items[pos:], m.items[pos+1:])
	m.items = m.items[:len(m.items)-1]
	for i := pos; i < len(m.items); i++ {
		m.index[m.items[i].PieceID] = i
	}
	return info, true
}

func (m *pieceMap[I]) values() []PropagatedInformation[I] {
	ret := make([]PropagatedInformation[I], len(m.items))
	copy(ret, m.items)
	return ret
}

func (m *pieceMap[I]) ids() []I {
	ret := make([]I, len(m.items))
	for i, info := range m.items {
		ret[i] = info.PieceID
	}
	return ret
}

func (m *pieceMap[I]) clear() {
	m.index = make(map[I]int)
	m.items = m.items[:0]
}

func (m *pieceMap[I]) clone() *pieceMap[I] {
	ret := &pieceMap[I]{
		index: make(map[I]int, len(m.index)),
		items: make([]PropagatedInformation[I], len(m.items)),
	}
	copy(ret.items, m.items)
	for k, v := range m.index {
		ret.index[k] = v
	}
	return ret
}
