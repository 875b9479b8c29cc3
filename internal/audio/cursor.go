package audio

import "sync"

// UnboundedEnd is the EndOffset sentinel meaning "play to the end of all
// recorded audio".
const UnboundedEnd int64 = -1

// PlaybackRange bounds an active playback window in global sample offsets.
type PlaybackRange struct {
	StartOffset   int64
	EndOffset     int64
	CurrentOffset int64
	ReachedEnd    bool
}

// LineIndex supplies transcript timing to the cursor: the union time span
// of a line-ID selection and the lines active at a wall-clock instant.
// Implemented by the owning document.
type LineIndex interface {
	// SelectionSpan returns [min StartTime, max EndTime] over the lines with
	// the given IDs. IDs that resolve to no line are ignored; ok is false
	// when none resolve.
	SelectionSpan(ids []int64) (start, end float64, ok bool)

	// ActiveLineIDs returns the IDs of every line whose
	// [StartTime, EndTime] window contains t.
	ActiveLineIDs(t float64) []int64
}

// Frame is the result of one NextFrame call: exactly the requested number of
// mixed samples, the line IDs under the post-read position, and whether the
// cursor has consumed its range.
type Frame struct {
	Mixed         []float32
	ActiveLineIDs []int64
	ReachedEnd    bool
}

// Cursor is a stateful read head over a BlockStore. It produces fixed-length
// mixed microphone+system frames on demand for a real-time consumer, so its
// operations never block beyond the store mutex, never panic, and answer
// degenerate input with silence.
type Cursor struct {
	store  *BlockStore
	mapper *OffsetMapper
	lines  LineIndex

	mu        sync.Mutex
	rng       PlaybackRange
	selection map[int64]struct{}
}

// NewCursor creates a cursor with an unbounded range starting at offset 0.
// lines may be nil when no transcript highlighting is needed.
func NewCursor(store *BlockStore, mapper *OffsetMapper, lines LineIndex) *Cursor {
	return &Cursor{
		store:  store,
		mapper: mapper,
		lines:  lines,
		rng:    PlaybackRange{EndOffset: UnboundedEnd},
	}
}

// Range returns a copy of the current playback range.
func (c *Cursor) Range() PlaybackRange {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rng
}

// SetRange sets the playback window. end == UnboundedEnd plays to the end of
// all recorded audio. The read position rewinds to start and the end flag
// clears; the change is applied atomically with respect to NextFrame.
func (c *Cursor) SetRange(start, end int64) {
	if start < 0 {
		start = 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.applyRangeLocked(start, end, nil)
}

// SetRangeFromLineIDs sets the playback window to the union time span of the
// given transcript lines. An empty selection, or one where no ID resolves,
// falls back to an unbounded range starting at 0. Reapplying the selection
// already in effect is a no-op, so repeated identical UI selections do not
// rewind playback.
func (c *Cursor) SetRangeFromLineIDs(ids []int64) {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}

	c.mu.Lock()
	if c.selection != nil && equalIDSets(c.selection, set) {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	// Resolve the selection outside the cursor lock: the line index and the
	// mapper take their own locks.
	start, end := int64(0), UnboundedEnd
	if c.lines != nil && len(set) > 0 {
		if t0, t1, ok := c.lines.SelectionSpan(ids); ok {
			if off, ok := c.mapper.GlobalOffsetFromTime(t0); ok {
				start = off
			}
			if off, ok := c.mapper.GlobalOffsetFromTime(t1); ok {
				end = off
			}
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.applyRangeLocked(start, end, set)
}

// Reset rewinds the read position to the start of the existing range and
// clears the end flag. Used when a playback session replays from the top
// rather than resuming.
func (c *Cursor) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rng.CurrentOffset = c.rng.StartOffset
	c.rng.ReachedEnd = false
}

func (c *Cursor) applyRangeLocked(start, end int64, selection map[int64]struct{}) {
	c.rng = PlaybackRange{
		StartOffset:   start,
		EndOffset:     end,
		CurrentOffset: start,
	}
	c.selection = selection
}

// NextFrame produces the next mixed audio frame. The returned Mixed slice
// always has exactly frameLen samples: data past the end of any stream, of
// the range, or of all recorded audio is silence. Microphone and system
// samples are summed pointwise with no normalization or clipping.
//
// Once the post-read offset reaches the range end (or the total recorded
// length for an unbounded range) the frame reports ReachedEnd and the read
// position freezes: further calls return silence until Reset or a new range.
// Callers must issue NextFrame in increasing offset order.
func (c *Cursor) NextFrame(frameLen int) Frame {
	if frameLen <= 0 {
		return Frame{Mixed: []float32{}, ReachedEnd: true}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	mixed := make([]float32, frameLen)
	if c.rng.ReachedEnd {
		return Frame{Mixed: mixed, ReachedEnd: true}
	}

	start := c.rng.CurrentOffset
	post := start + int64(frameLen)

	mic := make([]float32, frameLen)
	sys := make([]float32, frameLen)

	c.store.mu.Lock()
	total := c.store.totalSamplesLocked()
	c.store.readSpanLocked(start, mic, sys)
	postClamped := post
	if postClamped > total {
		postClamped = total
	}
	postTime, haveTime := c.store.timeAtOffsetLocked(postClamped, c.mapper.sampleRate)
	c.store.mu.Unlock()

	for i := range mixed {
		mixed[i] = mic[i] + sys[i]
	}

	limit := total
	if c.rng.EndOffset != UnboundedEnd && c.rng.EndOffset < limit {
		limit = c.rng.EndOffset
	}
	reached := post >= limit

	if reached {
		c.rng.ReachedEnd = true
	} else {
		c.rng.CurrentOffset = post
	}

	var active []int64
	if haveTime && c.lines != nil {
		active = c.lines.ActiveLineIDs(postTime)
	}

	return Frame{Mixed: mixed, ActiveLineIDs: active, ReachedEnd: reached}
}

func equalIDSets(a, b map[int64]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for id := range a {
		if _, ok := b[id]; !ok {
			return false
		}
	}
	return true
}
