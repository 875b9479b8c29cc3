package transcript

import (
	"math"
	"sort"
)

// DefaultOverlapThreshold is the overlap fraction above which a microphone
// line is treated as an echo of simultaneous system audio.
const DefaultOverlapThreshold = 0.3

// OverlapFilter turns the raw, possibly duplicated and unsorted line set
// accumulated from recognizer events into the canonical transcript.
// Fragments sharing an ID are merged, and when echo suppression is enabled,
// microphone lines that mostly coincide with system-audio speech are dropped.
type OverlapFilter struct {
	SuppressEcho bool
	Threshold    float64
}

// NewOverlapFilter creates a filter. A threshold <= 0 selects the default.
func NewOverlapFilter(suppressEcho bool, threshold float64) *OverlapFilter {
	if threshold <= 0 {
		threshold = DefaultOverlapThreshold
	}
	return &OverlapFilter{SuppressEcho: suppressEcho, Threshold: threshold}
}

// Normalize returns the canonical, time-ordered line list. The input is not
// modified. Running Normalize on its own output yields the same output.
func (f *OverlapFilter) Normalize(lines []Line) []Line {
	out := make([]Line, len(lines))
	copy(out, lines)

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartTime < out[j].StartTime
	})

	out = mergeByID(out)

	if f.SuppressEcho {
		out = f.suppressEchoes(out)
	}
	return out
}

// mergeByID collapses lines sharing an ID into the first occurrence.
// The first occurrence keeps its timing; text grows by append in time order.
func mergeByID(lines []Line) []Line {
	merged := make([]Line, 0, len(lines))
	index := make(map[int64]int, len(lines))

	for _, l := range lines {
		if i, ok := index[l.ID]; ok {
			merged[i].Text += l.Text
			continue
		}
		index[l.ID] = len(merged)
		merged = append(merged, l)
	}
	return merged
}

// suppressEchoes drops microphone lines whose time overlap with any
// system-audio line exceeds the threshold fraction of their own duration.
// Non-microphone lines always pass through.
func (f *OverlapFilter) suppressEchoes(lines []Line) []Line {
	// Bucket lines by the whole seconds they span so each microphone line
	// only scans nearby candidates.
	buckets := make(map[int64][]int)
	for i, l := range lines {
		first, last := bucketBounds(l)
		for s := first; s <= last; s++ {
			buckets[s] = append(buckets[s], i)
		}
	}

	kept := make([]Line, 0, len(lines))
	for i, l := range lines {
		if l.Source == SourceMicrophone && f.isEcho(lines, buckets, i) {
			continue
		}
		kept = append(kept, l)
	}
	return kept
}

// isEcho reports whether the microphone line at index i overlaps a
// system-audio line by more than the threshold fraction of its duration.
// A zero-duration line has an undefined overlap fraction and is never
// suppressed.
func (f *OverlapFilter) isEcho(lines []Line, buckets map[int64][]int, i int) bool {
	mic := lines[i]
	if mic.Duration <= 0 {
		return false
	}

	first, last := bucketBounds(mic)
	seen := make(map[int]struct{})
	for s := first; s <= last; s++ {
		for _, j := range buckets[s] {
			if j == i {
				continue
			}
			if _, ok := seen[j]; ok {
				continue
			}
			seen[j] = struct{}{}

			cand := lines[j]
			if cand.Source != SourceSystem || cand.Text == "" {
				continue
			}

			overlap := math.Min(mic.EndTime(), cand.EndTime()) - math.Max(mic.StartTime, cand.StartTime)
			if overlap <= 0 {
				continue
			}
			if overlap/mic.Duration > f.Threshold {
				return true
			}
		}
	}
	return false
}

// bucketBounds returns the inclusive whole-second range a line spans.
// A line shorter than a second still occupies at least one bucket.
func bucketBounds(l Line) (int64, int64) {
	return int64(math.Floor(l.StartTime)), int64(math.Ceil(l.EndTime()))
}
