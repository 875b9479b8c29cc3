package audio

// OffsetMapper translates between the global sample offset used by the
// playback engine, (block index, in-block offset) pairs, and wall-clock
// time. It carries no state of its own beyond the store it reads block
// lengths from and the sample rate used for time conversion.
type OffsetMapper struct {
	store      *BlockStore
	sampleRate int
}

// NewOffsetMapper creates a mapper over the store using the store's sample
// rate for time conversion.
func NewOffsetMapper(store *BlockStore) *OffsetMapper {
	return &OffsetMapper{store: store, sampleRate: store.SampleRate()}
}

// BlockIndexAndOffset maps a global sample offset to the owning block and
// the offset within it. Offsets past the end of all recorded audio saturate
// at (last block index, that block's SampleCount) rather than erroring;
// an empty store maps everything to (0, 0).
func (m *OffsetMapper) BlockIndexAndOffset(global int64) (int, int64) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	return m.store.blockIndexAndOffsetLocked(global)
}

// GlobalOffset is the inverse of BlockIndexAndOffset: the summed
// SampleCount of all blocks before blockIndex, plus inBlock.
func (m *OffsetMapper) GlobalOffset(blockIndex int, inBlock int64) int64 {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	return m.globalOffsetLocked(blockIndex, inBlock)
}

// GlobalOffsetFromTime maps a wall-clock time to a global sample offset.
// ok is false when no block's [StartTime, EndTime] window contains t.
func (m *OffsetMapper) GlobalOffsetFromTime(t float64) (int64, bool) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	for i, b := range m.store.blocks {
		if t < b.StartTime || t > b.EndTime {
			continue
		}
		inBlock := int64((t - b.StartTime) * float64(m.sampleRate))
		if n := int64(b.SampleCount()); inBlock > n {
			inBlock = n
		}
		return m.globalOffsetLocked(i, inBlock), true
	}
	return 0, false
}

// TimeAtOffset maps a global sample offset back to wall-clock time, using
// the saturating block mapping. ok is false only when the store is empty.
func (m *OffsetMapper) TimeAtOffset(global int64) (float64, bool) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	return m.store.timeAtOffsetLocked(global, m.sampleRate)
}

func (m *OffsetMapper) globalOffsetLocked(blockIndex int, inBlock int64) int64 {
	global := inBlock
	for i, b := range m.store.blocks {
		if i >= blockIndex {
			break
		}
		global += int64(b.SampleCount())
	}
	return global
}

func (s *BlockStore) timeAtOffsetLocked(global int64, sampleRate int) (float64, bool) {
	if len(s.blocks) == 0 {
		return 0, false
	}
	bi, off := s.blockIndexAndOffsetLocked(global)
	b := s.blocks[bi]
	return b.StartTime + float64(off)/float64(sampleRate), true
}
