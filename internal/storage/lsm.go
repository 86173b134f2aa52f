package storage

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// Constants governing memtable flush and compaction thresholds. These are
// compile-time by design (see SPEC_FULL.md §6): the engine takes no
// persisted configuration.
const (
	// MaxMemtableSize is the entry count at which Put triggers a flush.
	MaxMemtableSize = 1_048_576
	// MaxLevel is the fixed number of SSTable levels the tree maintains.
	MaxLevel = 7
	// LevelSizeMultiplier bounds the size ratio between adjacent levels.
	LevelSizeMultiplier = 10
	// L0CompactionTrigger is the level-0 entry count that forces a
	// level-0 -> level-1 compaction sweep after a flush.
	L0CompactionTrigger = 4096
)

// Logger is the narrow logging surface LSMTree calls into on flush and
// compaction milestones. A *zap.SugaredLogger satisfies it without
// adaptation. The storage package never imports a logging library itself;
// see SPEC_FULL.md §4.4.
type Logger interface {
	Infof(template string, args ...any)
	Warnf(template string, args ...any)
	Errorf(template string, args ...any)
}

// MetricsSink is the narrow metrics surface LSMTree calls into. internal/metrics
// implements it on top of Prometheus instruments; storage never imports
// prometheus itself.
type MetricsSink interface {
	ObservePut()
	ObserveGet(hit bool)
	ObserveFlush(entries int)
	ObserveCompaction(level int, entriesWritten int)
}

// Option configures an LSMTree at construction time.
type Option func(*LSMTree)

// WithLogger injects a Logger the tree reports flush/compaction events to.
func WithLogger(l Logger) Option {
	return func(t *LSMTree) { t.logger = l }
}

// WithMetrics injects a MetricsSink the tree reports operation counts to.
func WithMetrics(m MetricsSink) Option {
	return func(t *LSMTree) { t.metrics = m }
}

// LSMTree is the controller that owns the active memtable and the per-level
// SSTable lists, routes Put/Get, and drives flush and compaction. It is
// single-threaded and synchronous: callers must serialize all operations on
// a given tree (see package doc). There is no background compaction -
// compaction runs inline on the Put that tripped the threshold.
type LSMTree struct {
	dataDir string

	memtable       *MemTable
	levels         [][]*SSTable // levels[i] ordered oldest-first
	levelSizes     [MaxLevel]int
	sstableCounter uint64

	logger  Logger
	metrics MetricsSink
}

// Open creates a tree rooted at dataDir, creating the directory if needed.
// It does not scan dataDir for pre-existing SSTables: the engine has no
// crash-recovery story (explicit non-goal), so Open always starts from a
// fresh, empty tree state regardless of what dataDir already contains.
func Open(dataDir string, opts ...Option) (*LSMTree, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", dataDir, err)
	}

	t := &LSMTree{
		dataDir:  dataDir,
		memtable: NewMemTable(),
		levels:   make([][]*SSTable, MaxLevel),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Close closes every SSTable file descriptor the tree holds open, cascading
// leaves-last (levels own their SSTables, each SSTable owns its file).
func (t *LSMTree) Close() error {
	var firstErr error
	for _, level := range t.levels {
		for _, sst := range level {
			if err := sst.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// Put inserts or replaces the value for key, flushing the memtable to a new
// level-0 SSTable if it has crossed MaxMemtableSize.
func (t *LSMTree) Put(key, value []byte) error {
	if len(key) == 0 {
		return ErrEmptyKey
	}

	t.memtable.Put(key, value)
	if t.metrics != nil {
		t.metrics.ObservePut()
	}

	if t.memtable.Size() >= MaxMemtableSize {
		return t.Flush()
	}
	return nil
}

// Get checks the memtable first, then levels 0..MaxLevel-1 in ascending
// order, scanning each level's SSTables newest-first; the first hit wins.
// The returned slice is always a copy the caller owns outright - never an
// alias into the memtable or an SSTable's internal buffers.
func (t *LSMTree) Get(key []byte) ([]byte, bool) {
	if len(key) == 0 {
		return nil, false
	}

	if v, ok := t.memtable.Get(key); ok {
		if t.metrics != nil {
			t.metrics.ObserveGet(true)
		}
		return append([]byte(nil), v...), true
	}

	for level := 0; level < MaxLevel; level++ {
		sstables := t.levels[level]
		for i := len(sstables) - 1; i >= 0; i-- {
			// SSTable.Get already hands back a freshly allocated buffer
			// (see sstable.go), so no further copy-and-release step is
			// needed here to isolate the caller from its internals.
			if v, ok := sstables[i].Get(key); ok {
				if t.metrics != nil {
					t.metrics.ObserveGet(true)
				}
				return v, true
			}
		}
	}

	if t.metrics != nil {
		t.metrics.ObserveGet(false)
	}
	return nil, false
}

// Flush synthesizes a new level-0 SSTable from the current memtable,
// stamping every entry with a single wall-clock timestamp captured once for
// the whole batch, then starts a fresh memtable. If the resulting level-0
// entry count crosses L0CompactionTrigger, Compact runs inline before Flush
// returns.
func (t *LSMTree) Flush() error {
	path := filepath.Join(t.dataDir, fmt.Sprintf("L0_sstable_%d.db", t.sstableCounter))
	sst, err := CreateSSTable(path)
	if err != nil {
		return err
	}

	entries := t.memtable.OrderedEnumerate()
	// All entries in a single flush share a monotonically non-decreasing
	// timestamp source; a per-process atomic counter would serve the same
	// purpose and is immune to clock skew, but wall-clock matches the
	// reference this engine is based on.
	timestamp := time.Now().UnixNano()
	for _, e := range entries {
		e.Timestamp = timestamp
	}

	if err := sst.Write(entries); err != nil {
		sst.Close()
		return err
	}

	t.levels[0] = append(t.levels[0], sst)
	t.levelSizes[0] += len(entries)
	t.memtable = NewMemTable()
	t.sstableCounter++

	if t.logger != nil {
		t.logger.Infof("flushed memtable to %s (%d entries)", path, len(entries))
	}
	if t.metrics != nil {
		t.metrics.ObserveFlush(len(entries))
	}

	if t.levelSizes[0] >= L0CompactionTrigger {
		return t.Compact()
	}
	return nil
}

// Compact sweeps levels 0..MaxLevel-2, merging a level into the next
// whenever its entry count is at or above LevelSizeMultiplier^(level+1),
// stopping at the first level under its own threshold. A single merge can
// push the next level's size over its threshold, which is why the sweep is
// cascading rather than a single pass.
func (t *LSMTree) Compact() error {
	for level := 0; level < MaxLevel-1; level++ {
		threshold := 1
		for i := 0; i <= level; i++ {
			threshold *= LevelSizeMultiplier
		}
		if t.levelSizes[level] < threshold {
			break
		}
		if err := t.mergeLevel(level); err != nil {
			return err
		}
	}
	return nil
}

// mergeLevel merges every SSTable in levels[level] together with every
// SSTable already in levels[level+1] into one new SSTable that replaces the
// contents of levels[level+1], then empties levels[level]. Levels[level+1] is fully
// drained into the same merge (rather than left to accumulate alongside the
// new output) so levelSizes[level+1] = total entries written is exact, not
// an approximation that ignores pre-existing content - see SPEC_FULL.md §9.
func (t *LSMTree) mergeLevel(level int) error {
	next := level + 1
	if next >= MaxLevel {
		return nil
	}

	destPath := filepath.Join(t.dataDir, fmt.Sprintf("L%d_merged_%d.db", next, t.sstableCounter))
	dest, err := CreateSSTable(destPath)
	if err != nil {
		return err
	}

	sources := make([]*SSTable, 0, len(t.levels[level])+len(t.levels[next]))
	sources = append(sources, t.levels[level]...)
	sources = append(sources, t.levels[next]...)

	var working []*Entry
	for _, src := range sources {
		srcEntries, err := src.ReadAllEntries()
		if err != nil {
			dest.Close()
			os.Remove(destPath)
			return err
		}
		working = append(working, srcEntries...)
	}

	sort.Slice(working, func(i, j int) bool {
		if c := bytes.Compare(working[i].Key, working[j].Key); c != 0 {
			return c < 0
		}
		// Ties in key are broken by putting the newer timestamp first.
		return working[i].Timestamp > working[j].Timestamp
	})

	// Duplicate keys across source SSTables are carried through the sort
	// with the freshest copy first; keep only that first occurrence so the
	// destination SSTable's index maps each key to its one true offset.
	deduped := working[:0]
	for i, e := range working {
		if i > 0 && bytes.Equal(e.Key, deduped[len(deduped)-1].Key) {
			continue
		}
		deduped = append(deduped, e)
	}

	if err := dest.Write(deduped); err != nil {
		dest.Close()
		os.Remove(destPath)
		return err
	}

	for _, src := range sources {
		src.Close()
	}
	t.levels[level] = nil
	t.levelSizes[level] = 0
	t.levels[next] = []*SSTable{dest}
	t.levelSizes[next] = len(deduped)

	t.sstableCounter++

	if t.logger != nil {
		t.logger.Infof("merged level %d into %d (%d entries -> %s)", level, next, len(deduped), destPath)
	}
	if t.metrics != nil {
		t.metrics.ObserveCompaction(next, len(deduped))
	}
	return nil
}

// ForceCompaction is an administrative entry point (primarily used by
// tests) that bypasses the size threshold: it flushes a non-empty memtable
// first, then unconditionally merges level into level+1. It refuses on the
// last level, since there is no next level to merge into, and is a no-op if
// the source level is already empty.
func (t *LSMTree) ForceCompaction(level int) error {
	if level >= MaxLevel-1 {
		return ErrInvalidLevel
	}
	if t.memtable.Size() > 0 {
		if err := t.Flush(); err != nil {
			return err
		}
	}
	if len(t.levels[level]) == 0 {
		return nil
	}
	return t.mergeLevel(level)
}

// LevelSizes returns the current per-level entry counts, primarily for
// tests and the CLI's stats command.
func (t *LSMTree) LevelSizes() [MaxLevel]int {
	return t.levelSizes
}

// MemtableSize returns the number of entries currently buffered in the
// active memtable.
func (t *LSMTree) MemtableSize() int {
	return t.memtable.Size()
}
