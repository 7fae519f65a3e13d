package gateway

import "sync/atomic"

// LoopToggle is a concurrency-safe on/off switch a background loop polls
// each tick and an admin endpoint flips.
type LoopToggle struct {
	running int32
}

func NewLoopToggle(startRunning bool) *LoopToggle {
	t := &LoopToggle{}
	if startRunning {
		atomic.StoreInt32(&t.running, 1)
	}
	return t
}

func (t *LoopToggle) Start() { atomic.StoreInt32(&t.running, 1) }
func (t *LoopToggle) Stop()  { atomic.StoreInt32(&t.running, 0) }

func (t *LoopToggle) Running() bool { return atomic.LoadInt32(&t.running) == 1 }
