package audio

import (
	"fmt"
	"sync"
)

// DefaultSampleRate is the capture sample rate in Hz.
const DefaultSampleRate = 48000

// RecordingBlock holds one contiguous capture session's audio, bounded by
// explicit start/stop. The microphone and system streams grow independently
// within a block; the two may arrive at different rates and latencies.
// Times are wall-clock seconds since the Unix epoch.
type RecordingBlock struct {
	StartTime  float64
	EndTime    float64
	Microphone []float32
	System     []float32
}

// SampleCount is the block's logical length for offset purposes:
// max(len(Microphone), len(System)).
func (b *RecordingBlock) SampleCount() int {
	if len(b.Microphone) > len(b.System) {
		return len(b.Microphone)
	}
	return len(b.System)
}

// BlockStore is the append-only ordered sequence of recording blocks.
// A single coarse mutex serializes capture appends against playback reads;
// it is held for the duration of one append or one frame read and never
// across anything that blocks.
type BlockStore struct {
	mu         sync.Mutex
	sampleRate int
	blocks     []*RecordingBlock
}

// NewBlockStore creates an empty store. A sampleRate <= 0 selects the
// default recording rate.
func NewBlockStore(sampleRate int) *BlockStore {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	return &BlockStore{sampleRate: sampleRate}
}

// SampleRate returns the store's sample rate in Hz.
func (s *BlockStore) SampleRate() int {
	return s.sampleRate
}

// StartNewBlock appends an open block beginning at now. The caller must have
// closed any previous block first; that invariant is not checked here.
func (s *BlockStore) StartNewBlock(now float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blocks = append(s.blocks, &RecordingBlock{StartTime: now, EndTime: now})
}

// EndCurrentBlock closes the last block at now. Calling it on an empty store
// is a caller bug and reported as an error.
func (s *BlockStore) EndCurrentBlock(now float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.blocks) == 0 {
		return fmt.Errorf("end current block: store is empty")
	}
	s.blocks[len(s.blocks)-1].EndTime = now
	return nil
}

// AppendMicrophone appends capture samples to the open block. Runs on the
// capture callback path: samples arriving before any block exists are
// silently dropped rather than failing.
func (s *BlockStore) AppendMicrophone(samples []float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.blocks) == 0 {
		return
	}
	last := s.blocks[len(s.blocks)-1]
	last.Microphone = append(last.Microphone, samples...)
}

// AppendSystem appends system-audio samples to the open block. Same
// contract as AppendMicrophone.
func (s *BlockStore) AppendSystem(samples []float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.blocks) == 0 {
		return
	}
	last := s.blocks[len(s.blocks)-1]
	last.System = append(last.System, samples...)
}

// RestoreBlock appends a fully formed block. Used when loading a saved
// document; capture must not be running.
func (s *BlockStore) RestoreBlock(b RecordingBlock) {
	s.mu.Lock()
	defer s.mu.Unlock()
	blk := b
	s.blocks = append(s.blocks, &blk)
}

// BlockCount returns the number of blocks.
func (s *BlockStore) BlockCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.blocks)
}

// TotalSamples returns the summed SampleCount over all blocks.
func (s *BlockStore) TotalSamples() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalSamplesLocked()
}

// Snapshot returns a copy of the block list. Slice headers are copied, not
// sample data: closed blocks are immutable, and an open block's header keeps
// viewing the samples it had when the snapshot was taken.
func (s *BlockStore) Snapshot() []RecordingBlock {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]RecordingBlock, len(s.blocks))
	for i, b := range s.blocks {
		out[i] = *b
	}
	return out
}

func (s *BlockStore) totalSamplesLocked() int64 {
	var total int64
	for _, b := range s.blocks {
		total += int64(b.SampleCount())
	}
	return total
}

// readSpanLocked copies the microphone and system samples covering the
// global span [start, start+len(mic)) into the aligned output buffers.
// Positions with no data stay zero: each stream clamps independently to its
// own length, and anything past the last block is silence. mic and sys must
// have equal length. Caller holds s.mu.
func (s *BlockStore) readSpanLocked(start int64, mic, sys []float32) {
	if len(s.blocks) == 0 || start < 0 {
		return
	}

	bi, off := s.blockIndexAndOffsetLocked(start)
	want := int64(len(mic))
	var written int64

	for bi < len(s.blocks) && written < want {
		b := s.blocks[bi]
		n := int64(b.SampleCount()) - off
		if n > want-written {
			n = want - written
		}
		if n > 0 {
			copyStream(mic[written:written+n], b.Microphone, off)
			copyStream(sys[written:written+n], b.System, off)
			written += n
		}
		bi++
		off = 0
	}
}

// copyStream copies up to len(dst) samples of src starting at off, clamped
// to src's own length. dst positions past the stream's end are left as-is.
func copyStream(dst []float32, src []float32, off int64) {
	if off >= int64(len(src)) {
		return
	}
	copy(dst, src[off:])
}

// blockIndexAndOffsetLocked maps a global offset to (block index, in-block
// offset), saturating at (last block, its SampleCount) past the end.
// Caller holds s.mu.
func (s *BlockStore) blockIndexAndOffsetLocked(global int64) (int, int64) {
	if len(s.blocks) == 0 {
		return 0, 0
	}
	if global < 0 {
		return 0, 0
	}

	var acc int64
	for i, b := range s.blocks {
		n := int64(b.SampleCount())
		if global < acc+n {
			return i, global - acc
		}
		acc += n
	}

	last := len(s.blocks) - 1
	return last, int64(s.blocks[last].SampleCount())
}
