package transcript

import (
	"reflect"
	"testing"
)

func micLine(id int64, text string, start, duration float64) Line {
	return Line{ID: id, Text: text, StartTime: start, Duration: duration, Source: SourceMicrophone}
}

func sysLine(id int64, text string, start, duration float64) Line {
	return Line{ID: id, Text: text, StartTime: start, Duration: duration, Source: SourceSystem}
}

func TestNormalizeSortsByStartTime(t *testing.T) {
	f := NewOverlapFilter(false, 0)
	lines := []Line{
		micLine(2, "second", 10, 1),
		micLine(1, "first", 5, 1),
		micLine(3, "third", 20, 1),
	}

	out := f.Normalize(lines)
	if len(out) != 3 {
		t.Fatalf("got %d lines, want 3", len(out))
	}
	for i, want := range []int64{1, 2, 3} {
		if out[i].ID != want {
			t.Errorf("out[%d].ID = %d, want %d", i, out[i].ID, want)
		}
	}
}

func TestNormalizeMergesSameID(t *testing.T) {
	f := NewOverlapFilter(false, 0)
	lines := []Line{
		micLine(1, "hello ", 0, 2),
		micLine(1, "world", 1, 1),
		micLine(2, "other", 5, 1),
	}

	out := f.Normalize(lines)
	if len(out) != 2 {
		t.Fatalf("got %d lines, want 2", len(out))
	}
	if out[0].Text != "hello world" {
		t.Errorf("merged text = %q, want %q", out[0].Text, "hello world")
	}
	// The first occurrence keeps its timing.
	if out[0].StartTime != 0 || out[0].Duration != 2 {
		t.Errorf("merged timing = (%v, %v), want (0, 2)", out[0].StartTime, out[0].Duration)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	f := NewOverlapFilter(true, 0)
	lines := []Line{
		micLine(1, "a", 0, 2),
		micLine(1, "b", 1, 1),
		sysLine(2, "speech", 0.5, 1),
		micLine(3, "kept", 100, 1),
	}

	once := f.Normalize(lines)
	twice := f.Normalize(once)
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("Normalize not idempotent:\nonce:  %+v\ntwice: %+v", once, twice)
	}
}

func TestEchoSuppressionDropsOverlappingMicLine(t *testing.T) {
	// Line A: microphone, t=0..2. Line B: system, t=0.5..1.5, so the overlap
	// is 1.0s = 50% of A's duration.
	lines := []Line{
		micLine(1, "echoed", 0, 2),
		sysLine(2, "speaker audio", 0.5, 1),
	}

	out := NewOverlapFilter(true, 0).Normalize(lines)
	if len(out) != 1 || out[0].ID != 2 {
		t.Fatalf("suppression enabled: got %+v, want only the system line", out)
	}

	out = NewOverlapFilter(false, 0).Normalize(lines)
	if len(out) != 2 {
		t.Fatalf("suppression disabled: got %d lines, want 2", len(out))
	}
}

func TestEchoSuppressionThresholdBoundary(t *testing.T) {
	// A 2-second microphone line overlapped by a system line for 0.58, 0.60,
	// and 0.62 seconds: fractions 0.29, 0.30, and 0.31 against the 0.3
	// threshold. Only a fraction strictly above the threshold suppresses.
	tests := []struct {
		overlap    float64
		suppressed bool
	}{
		{0.58, false},
		{0.60, false},
		{0.62, true},
		{0.80, true},  // 40%
		{0.40, false}, // 20%
	}

	for _, tt := range tests {
		lines := []Line{
			micLine(1, "maybe echo", 0, 2),
			sysLine(2, "speech", 0, tt.overlap),
		}
		out := NewOverlapFilter(true, 0).Normalize(lines)

		gotSuppressed := true
		for _, l := range out {
			if l.ID == 1 {
				gotSuppressed = false
			}
		}
		if gotSuppressed != tt.suppressed {
			t.Errorf("overlap %.2fs: suppressed = %v, want %v", tt.overlap, gotSuppressed, tt.suppressed)
		}
	}
}

func TestZeroDurationMicLineNeverSuppressed(t *testing.T) {
	lines := []Line{
		micLine(1, "instant", 1, 0),
		sysLine(2, "long speech", 0, 10),
	}

	out := NewOverlapFilter(true, 0).Normalize(lines)
	found := false
	for _, l := range out {
		if l.ID == 1 {
			found = true
		}
	}
	if !found {
		t.Error("zero-duration microphone line was suppressed")
	}
}

func TestSystemLinesAlwaysPass(t *testing.T) {
	lines := []Line{
		sysLine(1, "a", 0, 2),
		sysLine(2, "b", 0, 2),
	}

	out := NewOverlapFilter(true, 0).Normalize(lines)
	if len(out) != 2 {
		t.Errorf("got %d lines, want 2: system lines must pass through", len(out))
	}
}

func TestEmptyTextSystemLineIsNotACandidate(t *testing.T) {
	lines := []Line{
		micLine(1, "speech", 0, 2),
		sysLine(2, "", 0, 2),
	}

	out := NewOverlapFilter(true, 0).Normalize(lines)
	found := false
	for _, l := range out {
		if l.ID == 1 {
			found = true
		}
	}
	if !found {
		t.Error("microphone line suppressed by an empty-text system line")
	}
}

func TestNonOverlappingMicLineRetained(t *testing.T) {
	lines := []Line{
		micLine(1, "speech", 0, 2),
		sysLine(2, "later", 10, 2),
	}

	out := NewOverlapFilter(true, 0).Normalize(lines)
	if len(out) != 2 {
		t.Errorf("got %d lines, want 2", len(out))
	}
}

func TestSubSecondLineGetsABucket(t *testing.T) {
	// Both lines are much shorter than the one-second bucket resolution; the
	// inclusive floor/ceil range still indexes them together.
	lines := []Line{
		micLine(1, "short", 0.2, 0.4),
		sysLine(2, "short sys", 0.3, 0.4),
	}

	out := NewOverlapFilter(true, 0).Normalize(lines)
	// Overlap 0.3s of a 0.4s line = 75%, suppressed.
	for _, l := range out {
		if l.ID == 1 {
			t.Error("sub-second microphone line not suppressed")
		}
	}
}

func TestNormalizeDoesNotModifyInput(t *testing.T) {
	lines := []Line{
		micLine(2, "b", 10, 1),
		micLine(1, "a", 0, 1),
	}
	orig := make([]Line, len(lines))
	copy(orig, lines)

	NewOverlapFilter(true, 0).Normalize(lines)
	if !reflect.DeepEqual(lines, orig) {
		t.Error("Normalize modified its input")
	}
}

func TestDefaultThreshold(t *testing.T) {
	f := NewOverlapFilter(true, 0)
	if f.Threshold != DefaultOverlapThreshold {
		t.Errorf("Threshold = %v, want %v", f.Threshold, DefaultOverlapThreshold)
	}
	f = NewOverlapFilter(true, 0.5)
	if f.Threshold != 0.5 {
		t.Errorf("Threshold = %v, want 0.5", f.Threshold)
	}
}
