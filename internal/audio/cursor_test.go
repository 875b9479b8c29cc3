package audio

import (
	"reflect"
	"testing"
)

// fakeLineIndex is a canned LineIndex for cursor tests.
type fakeLineIndex struct {
	spans  map[int64][2]float64 // line ID -> [start, end]
	active []int64
}

func (f *fakeLineIndex) SelectionSpan(ids []int64) (float64, float64, bool) {
	var start, end float64
	found := false
	for _, id := range ids {
		span, ok := f.spans[id]
		if !ok {
			continue
		}
		if !found || span[0] < start {
			start = span[0]
		}
		if !found || span[1] > end {
			end = span[1]
		}
		found = true
	}
	return start, end, found
}

func (f *fakeLineIndex) ActiveLineIDs(t float64) []int64 {
	var ids []int64
	for id, span := range f.spans {
		if t >= span[0] && t <= span[1] {
			ids = append(ids, id)
		}
	}
	if ids == nil {
		ids = f.active
	}
	return ids
}

// scenarioStore builds the reference playback fixture: one block starting at
// t=0, six microphone samples of 1.0, four system samples of 2.0, at a 1 Hz
// sample rate so one sample spans one second.
func scenarioStore(t *testing.T) *BlockStore {
	t.Helper()
	s := NewBlockStore(1)
	s.StartNewBlock(0)
	s.AppendMicrophone([]float32{1, 1, 1, 1, 1, 1})
	s.AppendSystem([]float32{2, 2, 2, 2})
	if err := s.EndCurrentBlock(6); err != nil {
		t.Fatalf("EndCurrentBlock: %v", err)
	}
	return s
}

func TestNextFrameMixesStreams(t *testing.T) {
	s := scenarioStore(t)
	c := NewCursor(s, NewOffsetMapper(s), nil)

	frame := c.NextFrame(4)
	if want := []float32{3, 3, 3, 3}; !reflect.DeepEqual(frame.Mixed, want) {
		t.Errorf("frame 1 mixed = %v, want %v", frame.Mixed, want)
	}
	if frame.ReachedEnd {
		t.Error("frame 1 reported end")
	}
	if got := c.Range().CurrentOffset; got != 4 {
		t.Errorf("CurrentOffset after frame 1 = %d, want 4", got)
	}

	// The system stream is exhausted; the short stream clamps and its tail
	// reads as silence. Post-read offset 8 passes the 6-sample total.
	frame = c.NextFrame(4)
	if want := []float32{1, 1, 0, 0}; !reflect.DeepEqual(frame.Mixed, want) {
		t.Errorf("frame 2 mixed = %v, want %v", frame.Mixed, want)
	}
	if !frame.ReachedEnd {
		t.Error("frame 2 did not report end")
	}
}

func TestNextFrameLengthInvariant(t *testing.T) {
	s := scenarioStore(t)
	c := NewCursor(s, NewOffsetMapper(s), nil)

	for i := 0; i < 6; i++ {
		frame := c.NextFrame(5)
		if len(frame.Mixed) != 5 {
			t.Fatalf("call %d: len(Mixed) = %d, want 5", i, len(frame.Mixed))
		}
	}
}

func TestNextFrameEndIsSticky(t *testing.T) {
	s := scenarioStore(t)
	c := NewCursor(s, NewOffsetMapper(s), nil)

	c.NextFrame(4)
	frame := c.NextFrame(4)
	if !frame.ReachedEnd {
		t.Fatal("expected end after second frame")
	}
	offsetAtEnd := c.Range().CurrentOffset

	for i := 0; i < 3; i++ {
		frame = c.NextFrame(4)
		if !frame.ReachedEnd {
			t.Errorf("call %d after end: ReachedEnd = false", i)
		}
		if want := []float32{0, 0, 0, 0}; !reflect.DeepEqual(frame.Mixed, want) {
			t.Errorf("call %d after end: mixed = %v, want silence", i, frame.Mixed)
		}
		if got := c.Range().CurrentOffset; got != offsetAtEnd {
			t.Errorf("call %d after end: CurrentOffset = %d, want frozen %d", i, got, offsetAtEnd)
		}
	}
}

func TestNextFrameOnEmptyStore(t *testing.T) {
	s := NewBlockStore(1)
	c := NewCursor(s, NewOffsetMapper(s), nil)

	frame := c.NextFrame(4)
	if want := []float32{0, 0, 0, 0}; !reflect.DeepEqual(frame.Mixed, want) {
		t.Errorf("mixed = %v, want silence", frame.Mixed)
	}
	if !frame.ReachedEnd {
		t.Error("empty store should report end immediately")
	}
}

func TestResetRewindsToRangeStart(t *testing.T) {
	s := scenarioStore(t)
	c := NewCursor(s, NewOffsetMapper(s), nil)

	c.SetRange(2, UnboundedEnd)
	c.NextFrame(4) // consumes to end of data
	c.Reset()

	r := c.Range()
	if r.CurrentOffset != 2 || r.ReachedEnd {
		t.Errorf("after Reset: CurrentOffset = %d, ReachedEnd = %v, want 2, false",
			r.CurrentOffset, r.ReachedEnd)
	}

	frame := c.NextFrame(4)
	if want := []float32{3, 3, 1, 1}; !reflect.DeepEqual(frame.Mixed, want) {
		t.Errorf("frame after Reset = %v, want %v", frame.Mixed, want)
	}
}

func TestSetRangeBounded(t *testing.T) {
	s := scenarioStore(t)
	c := NewCursor(s, NewOffsetMapper(s), nil)

	c.SetRange(0, 4)
	frame := c.NextFrame(4)
	if !frame.ReachedEnd {
		t.Error("post-read offset 4 should reach the bounded end at 4")
	}

	c.SetRange(0, 5)
	frame = c.NextFrame(4)
	if frame.ReachedEnd {
		t.Error("post-read offset 4 should not reach the bounded end at 5")
	}
}

func TestNextFrameSpansBlocks(t *testing.T) {
	s := NewBlockStore(1)
	s.StartNewBlock(0)
	s.AppendMicrophone([]float32{1, 1})
	if err := s.EndCurrentBlock(2); err != nil {
		t.Fatalf("EndCurrentBlock: %v", err)
	}
	s.StartNewBlock(10)
	s.AppendSystem([]float32{2, 2, 2})
	if err := s.EndCurrentBlock(13); err != nil {
		t.Fatalf("EndCurrentBlock: %v", err)
	}

	c := NewCursor(s, NewOffsetMapper(s), nil)
	frame := c.NextFrame(5)
	if want := []float32{1, 1, 2, 2, 2}; !reflect.DeepEqual(frame.Mixed, want) {
		t.Errorf("mixed = %v, want %v", frame.Mixed, want)
	}
	if !frame.ReachedEnd {
		t.Error("expected end after consuming both blocks")
	}
}

func TestSetRangeFromLineIDs(t *testing.T) {
	s := scenarioStore(t)
	lines := &fakeLineIndex{spans: map[int64][2]float64{
		7: {1, 3},
		8: {2, 5},
	}}
	c := NewCursor(s, NewOffsetMapper(s), lines)

	c.SetRangeFromLineIDs([]int64{7, 8})
	r := c.Range()
	// Union span [1, 5] at 1 Hz from block start 0.
	if r.StartOffset != 1 || r.EndOffset != 5 {
		t.Errorf("range = [%d, %d], want [1, 5]", r.StartOffset, r.EndOffset)
	}
	if r.CurrentOffset != 1 {
		t.Errorf("CurrentOffset = %d, want 1", r.CurrentOffset)
	}
}

func TestSetRangeFromLineIDsIdempotent(t *testing.T) {
	s := scenarioStore(t)
	lines := &fakeLineIndex{spans: map[int64][2]float64{7: {0, 4}}}
	c := NewCursor(s, NewOffsetMapper(s), lines)

	c.SetRangeFromLineIDs([]int64{7})
	c.NextFrame(2)
	if got := c.Range().CurrentOffset; got != 2 {
		t.Fatalf("CurrentOffset = %d, want 2", got)
	}

	// Reapplying the same selection must not rewind playback.
	c.SetRangeFromLineIDs([]int64{7})
	if got := c.Range().CurrentOffset; got != 2 {
		t.Errorf("CurrentOffset after identical selection = %d, want 2", got)
	}

	// A different selection does reapply.
	lines.spans[9] = [2]float64{0, 2}
	c.SetRangeFromLineIDs([]int64{9})
	if got := c.Range().CurrentOffset; got != 0 {
		t.Errorf("CurrentOffset after new selection = %d, want 0", got)
	}
}

func TestSetRangeFromLineIDsMissingLines(t *testing.T) {
	s := scenarioStore(t)
	lines := &fakeLineIndex{spans: map[int64][2]float64{}}
	c := NewCursor(s, NewOffsetMapper(s), lines)

	// All referenced lines missing: unbounded default.
	c.SetRangeFromLineIDs([]int64{42, 43})
	r := c.Range()
	if r.StartOffset != 0 || r.EndOffset != UnboundedEnd {
		t.Errorf("range = [%d, %d], want [0, %d]", r.StartOffset, r.EndOffset, UnboundedEnd)
	}
}

func TestSetRangeFromLineIDsEmptySelection(t *testing.T) {
	s := scenarioStore(t)
	c := NewCursor(s, NewOffsetMapper(s), &fakeLineIndex{})

	c.SetRange(2, 4)
	c.SetRangeFromLineIDs(nil)
	r := c.Range()
	if r.StartOffset != 0 || r.EndOffset != UnboundedEnd {
		t.Errorf("range = [%d, %d], want unbounded from 0", r.StartOffset, r.EndOffset)
	}
}

func TestNextFrameReportsActiveLines(t *testing.T) {
	s := scenarioStore(t)
	lines := &fakeLineIndex{spans: map[int64][2]float64{
		7: {3, 5},
	}}
	c := NewCursor(s, NewOffsetMapper(s), lines)

	// Post-read offset 4 corresponds to t=4, inside line 7's window.
	frame := c.NextFrame(4)
	if want := []int64{7}; !reflect.DeepEqual(frame.ActiveLineIDs, want) {
		t.Errorf("ActiveLineIDs = %v, want %v", frame.ActiveLineIDs, want)
	}
}
