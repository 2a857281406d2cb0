package router

import "sync"

// pendingMap is the router's rq_id -> Cell table. Entries are inserted by
// senders before the first byte goes out and removed by the reader when
// the matching response arrives (§3, "Router state").
//
// rq_id is a 32-bit counter that can wrap; this is a sparse map keyed by
// rq_id, not an assumption of monotonic density, so wraparound is safe
// (§9).
type pendingMap struct {
	mu    sync.Mutex
	cells map[uint32]*Cell
}

func newPendingMap() *pendingMap {
	return &pendingMap{cells: make(map[uint32]*Cell)}
}

func (m *pendingMap) register(reqID uint32, cell *Cell) {
	m.mu.Lock()
	m.cells[reqID] = cell
	m.mu.Unlock()
}

// remove pops the cell for reqID, if any.
func (m *pendingMap) remove(reqID uint32) (*Cell, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cell, ok := m.cells[reqID]
	if ok {
		delete(m.cells, reqID)
	}
	return cell, ok
}

// failAll wakes every still-pending cell with err and empties the map.
// Called when the router tears down so no caller is left blocked forever.
func (m *pendingMap) failAll(err error) {
	m.mu.Lock()
	cells := m.cells
	m.cells = make(map[uint32]*Cell)
	m.mu.Unlock()

	for _, cell := range cells {
		cell.fail(err)
	}
}
