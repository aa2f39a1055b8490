package session

import (
	"sync"
	"time"
)

// positionSaver coalesces rapid position updates into one persist call per
// node. Each node id owns one pending task; rescheduling replaces the
// coordinates and restarts the quiet-period timer, so a continuous drag
// produces exactly one write, carrying the final coordinates.
type positionSaver struct {
	quiet   time.Duration
	persist func(nodeID string, x, y float64)

	mu      sync.Mutex
	pending map[string]*pendingSave
}

type pendingSave struct {
	x, y  float64
	timer *time.Timer
}

func newPositionSaver(quiet time.Duration, persist func(nodeID string, x, y float64)) *positionSaver {
	return &positionSaver{
		quiet:   quiet,
		persist: persist,
		pending: make(map[string]*pendingSave),
	}
}

// schedule records the latest coordinates for a node and restarts its
// quiet-period timer.
func (p *positionSaver) schedule(nodeID string, x, y float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if task, ok := p.pending[nodeID]; ok {
		task.x, task.y = x, y
		task.timer.Reset(p.quiet)
		return
	}
	task := &pendingSave{x: x, y: y}
	task.timer = time.AfterFunc(p.quiet, func() { p.flush(nodeID) })
	p.pending[nodeID] = task
}

// flush persists and clears one node's pending save, if any.
func (p *positionSaver) flush(nodeID string) {
	p.mu.Lock()
	task, ok := p.pending[nodeID]
	if ok {
		task.timer.Stop()
		delete(p.pending, nodeID)
	}
	p.mu.Unlock()

	if ok {
		p.persist(nodeID, task.x, task.y)
	}
}

// flushAll persists every pending save immediately.
func (p *positionSaver) flushAll() {
	p.mu.Lock()
	ids := make([]string, 0, len(p.pending))
	for id := range p.pending {
		ids = append(ids, id)
	}
	p.mu.Unlock()

	for _, id := range ids {
		p.flush(id)
	}
}
