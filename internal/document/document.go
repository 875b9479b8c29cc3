// Package document owns the recording blocks and transcript lines of one
// open note and is their sole mutator. Recognizer events reach the document
// through a bounded channel drained by a single goroutine; the playback
// cursor reads the same state under the document's locks.
package document

import (
	"context"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/moonshine-ai/MoonshineNoteTaker/internal/audio"
	"github.com/moonshine-ai/MoonshineNoteTaker/internal/transcript"
)

// Config carries the document's tunables.
type Config struct {
	SampleRate       int
	SuppressEcho     bool
	OverlapThreshold float64
	EventBuffer      int
}

// Document is the owned context for one note: the audio block ledger, the
// transcript line set, and the playback cursor over both.
type Document struct {
	store  *audio.BlockStore
	mapper *audio.OffsetMapper
	cursor *audio.Cursor
	filter *transcript.OverlapFilter
	log    *logrus.Logger

	events chan transcript.Event

	mu        sync.Mutex
	lines     []transcript.Line
	byID      map[int64]int
	capturing bool
}

// New creates an empty document.
func New(cfg Config, log *logrus.Logger) *Document {
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = 256
	}
	d := &Document{
		store:  audio.NewBlockStore(cfg.SampleRate),
		filter: transcript.NewOverlapFilter(cfg.SuppressEcho, cfg.OverlapThreshold),
		log:    log,
		events: make(chan transcript.Event, cfg.EventBuffer),
		byID:   make(map[int64]int),
	}
	d.mapper = audio.NewOffsetMapper(d.store)
	d.cursor = audio.NewCursor(d.store, d.mapper, d)
	return d
}

// Store returns the document's block store. Restore swaps the store out, so
// callers fetch it per use rather than caching it.
func (d *Document) Store() *audio.BlockStore {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.store
}

// Mapper returns the document's offset mapper.
func (d *Document) Mapper() *audio.OffsetMapper {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.mapper
}

// Cursor returns the document's playback cursor.
func (d *Document) Cursor() *audio.Cursor {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cursor
}

// Now returns the current wall-clock time in epoch seconds, the time unit
// used throughout the document.
func Now() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}

// StartCapture opens a new recording block at now. It is the capture session
// controller's guard: starting while a block is already open is rejected.
func (d *Document) StartCapture(now float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.capturing {
		return fmt.Errorf("start capture: a block is already open")
	}
	d.store.StartNewBlock(now)
	d.capturing = true
	return nil
}

// StopCapture closes the open recording block at now.
func (d *Document) StopCapture(now float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.capturing {
		return fmt.Errorf("stop capture: no block is open")
	}
	if err := d.store.EndCurrentBlock(now); err != nil {
		return err
	}
	d.capturing = false
	return nil
}

// Capturing reports whether a recording block is open.
func (d *Document) Capturing() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.capturing
}

// AppendMicrophone forwards capture samples to the open block.
func (d *Document) AppendMicrophone(samples []float32) {
	d.Store().AppendMicrophone(samples)
}

// AppendSystem forwards system-audio samples to the open block.
func (d *Document) AppendSystem(samples []float32) {
	d.Store().AppendSystem(samples)
}

// Enqueue hands a recognizer event to the drain loop. Blocks briefly when
// the buffer is full; fails once ctx is done.
func (d *Document) Enqueue(ctx context.Context, ev transcript.Event) error {
	select {
	case d.events <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run drains recognizer events onto the document until ctx is done. All line
// mutation happens on this goroutine.
func (d *Document) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-d.events:
			d.applySafe(ev)
		}
	}
}

// applySafe applies one event, recovering from panics so a malformed event
// cannot take down the drain loop.
func (d *Document) applySafe(ev transcript.Event) {
	defer func() {
		if r := recover(); r != nil {
			d.log.WithFields(logrus.Fields{
				"kind":    ev.Kind,
				"line_id": ev.ID,
				"panic":   fmt.Sprint(r),
			}).Errorf("event apply panicked\n%s", debug.Stack())
		}
	}()
	d.Apply(ev)
}

// Apply dispatches one recognizer event. A line is created on the first
// event carrying its ID and updated in place afterwards.
func (d *Document) Apply(ev transcript.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch ev.Kind {
	case transcript.EventLineStarted:
		d.upsertLocked(ev.Line())

	case transcript.EventLineTextChanged, transcript.EventLineCompleted:
		if i, ok := d.byID[ev.ID]; ok {
			d.lines[i].Text = ev.Text
			return
		}
		d.upsertLocked(ev.Line())

	case transcript.EventLineUpdated:
		// Full replacement: timing may have moved, so re-sort.
		if i, ok := d.byID[ev.ID]; ok {
			d.lines[i] = ev.Line()
			d.sortLinesLocked()
			return
		}
		d.upsertLocked(ev.Line())

	case transcript.EventError:
		d.log.WithField("line_id", ev.ID).Warnf("recognizer error: %s", ev.Message)

	default:
		d.log.WithField("kind", ev.Kind).Warn("unknown recognizer event")
	}
}

func (d *Document) upsertLocked(l transcript.Line) {
	if i, ok := d.byID[l.ID]; ok {
		d.lines[i] = l
	} else {
		d.lines = append(d.lines, l)
	}
	d.sortLinesLocked()
}

func (d *Document) sortLinesLocked() {
	sort.SliceStable(d.lines, func(i, j int) bool {
		return d.lines[i].StartTime < d.lines[j].StartTime
	})
	for i, l := range d.lines {
		d.byID[l.ID] = i
	}
}

// Lines returns a copy of the current line set, sorted by start time.
func (d *Document) Lines() []transcript.Line {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]transcript.Line, len(d.lines))
	copy(out, d.lines)
	return out
}

// Normalize replaces the document's line set with the canonical list: same-ID
// fragments merged and, when enabled, echoed microphone lines dropped.
// Normalizing twice in a row yields the same result. Serialized against event
// ingestion by the document lock.
func (d *Document) Normalize() []transcript.Line {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.lines = d.filter.Normalize(d.lines)
	d.byID = make(map[int64]int, len(d.lines))
	for i, l := range d.lines {
		d.byID[l.ID] = i
	}

	out := make([]transcript.Line, len(d.lines))
	copy(out, d.lines)
	return out
}

// Restore replaces the document's blocks and lines with loaded state.
// Must not be called while capture or playback is running.
func (d *Document) Restore(blocks []audio.RecordingBlock, lines []transcript.Line) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.store = audio.NewBlockStore(d.store.SampleRate())
	for _, b := range blocks {
		d.store.RestoreBlock(b)
	}
	d.mapper = audio.NewOffsetMapper(d.store)
	d.cursor = audio.NewCursor(d.store, d.mapper, d)

	d.lines = make([]transcript.Line, len(lines))
	copy(d.lines, lines)
	d.byID = make(map[int64]int, len(lines))
	d.capturing = false
	d.sortLinesLocked()
}

// SelectionSpan implements audio.LineIndex: the union [min start, max end]
// over the lines with the given IDs. Missing IDs are excluded; ok is false
// when none resolve.
func (d *Document) SelectionSpan(ids []int64) (start, end float64, ok bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, id := range ids {
		i, found := d.byID[id]
		if !found {
			continue
		}
		l := d.lines[i]
		if !ok || l.StartTime < start {
			start = l.StartTime
		}
		if !ok || l.EndTime() > end {
			end = l.EndTime()
		}
		ok = true
	}
	return start, end, ok
}

// ActiveLineIDs implements audio.LineIndex: the IDs of every line whose
// [StartTime, EndTime] window contains t.
func (d *Document) ActiveLineIDs(t float64) []int64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	var ids []int64
	for _, l := range d.lines {
		if t >= l.StartTime && t <= l.EndTime() {
			ids = append(ids, l.ID)
		}
	}
	return ids
}
