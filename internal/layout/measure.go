package layout

import "sync"

// Recorder collects measured block heights as they are reported by the
// rendering host. Reports may arrive out of order across blocks; the
// latest report per id wins, so pagination converges regardless of
// timing.
type Recorder struct {
	mu      sync.Mutex
	heights HeightMap
}

func NewRecorder() *Recorder {
	return &Recorder{heights: make(HeightMap)}
}

// Report stores the measured height for a block. Non-positive heights
// are ignored; a block that vanished should be dropped via Forget.
func (r *Recorder) Report(blockID string, height float64) {
	if blockID == "" || height <= 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.heights[blockID] = height
}

// Merge applies a batch of reports, last write wins per id.
func (r *Recorder) Merge(batch HeightMap) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, h := range batch {
		if id == "" || h <= 0 {
			continue
		}
		r.heights[id] = h
	}
}

// Forget removes a block's measurement, e.g. after the block is
// deleted.
func (r *Recorder) Forget(blockID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.heights, blockID)
}

// Snapshot returns a copy of the current height map for a pagination
// pass.
func (r *Recorder) Snapshot() HeightMap {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(HeightMap, len(r.heights))
	for id, h := range r.heights {
		out[id] = h
	}
	return out
}
