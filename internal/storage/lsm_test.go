package storage

import (
	"fmt"
	"testing"
)

type fakeLogger struct {
	infos, warns, errors int
}

func (f *fakeLogger) Infof(template string, args ...any)  { f.infos++ }
func (f *fakeLogger) Warnf(template string, args ...any)  { f.warns++ }
func (f *fakeLogger) Errorf(template string, args ...any) { f.errors++ }

type fakeMetrics struct {
	puts, hits, misses, flushes, flushedEntries int
	compactions                                 int
	compactedEntries                            int
}

func (f *fakeMetrics) ObservePut() { f.puts++ }
func (f *fakeMetrics) ObserveGet(hit bool) {
	if hit {
		f.hits++
	} else {
		f.misses++
	}
}
func (f *fakeMetrics) ObserveFlush(entries int) {
	f.flushes++
	f.flushedEntries += entries
}
func (f *fakeMetrics) ObserveCompaction(level int, entriesWritten int) {
	f.compactions++
	f.compactedEntries += entriesWritten
}

func TestLSM_PutGetRoundTrip(t *testing.T) {
	tree, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer tree.Close()

	if err := tree.Put([]byte("key1"), []byte("value1")); err != nil {
		t.Fatal(err)
	}
	v, ok := tree.Get([]byte("key1"))
	if !ok || string(v) != "value1" {
		t.Errorf("expected value1, got %s, found=%v", v, ok)
	}
	if _, ok := tree.Get([]byte("missing")); ok {
		t.Error("expected missing key to be absent")
	}
}

func TestLSM_RejectsEmptyKey(t *testing.T) {
	tree, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer tree.Close()

	if err := tree.Put([]byte{}, []byte("v")); err != ErrEmptyKey {
		t.Errorf("expected ErrEmptyKey, got %v", err)
	}
	if _, ok := tree.Get([]byte{}); ok {
		t.Error("expected Get on empty key to report absence, not a match")
	}
}

func TestLSM_OverwriteInMemtableIsLastWriterWins(t *testing.T) {
	tree, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer tree.Close()

	if err := tree.Put([]byte("k"), []byte("a")); err != nil {
		t.Fatal(err)
	}
	if err := tree.Put([]byte("k"), []byte("b")); err != nil {
		t.Fatal(err)
	}
	v, ok := tree.Get([]byte("k"))
	if !ok || string(v) != "b" {
		t.Errorf("expected b, got %s", v)
	}
}

func TestLSM_GetReturnsOwnedCopy(t *testing.T) {
	tree, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer tree.Close()

	if err := tree.Put([]byte("k"), []byte("value")); err != nil {
		t.Fatal(err)
	}
	v, ok := tree.Get([]byte("k"))
	if !ok {
		t.Fatal("expected k to be found")
	}
	v[0] = 'X'

	v2, ok := tree.Get([]byte("k"))
	if !ok || string(v2) != "value" {
		t.Errorf("mutating a prior Get result corrupted internal state: got %s", v2)
	}
}

// TestLSM_FlushAtMemtableBoundary exercises S3: after MaxMemtableSize+1 puts
// of distinct keys, the memtable must have flushed at least once and every
// key, old and new, must still resolve correctly.
func TestLSM_FlushAtMemtableBoundary(t *testing.T) {
	tree, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer tree.Close()

	n := MaxMemtableSize + 1
	for i := 0; i < n; i++ {
		key := []byte(fmt.Sprintf("key%010d", i))
		value := []byte(fmt.Sprintf("value%010d", i))
		if err := tree.Put(key, value); err != nil {
			t.Fatalf("put %d: %v", i, err)
		}
	}

	if tree.MemtableSize() >= MaxMemtableSize {
		t.Errorf("expected a flush to have reset the memtable, size is %d", tree.MemtableSize())
	}
	totalL0 := tree.LevelSizes()[0]
	if totalL0 == 0 {
		t.Error("expected at least one entry flushed to level 0")
	}

	for _, i := range []int{0, n / 2, n - 1} {
		key := []byte(fmt.Sprintf("key%010d", i))
		want := fmt.Sprintf("value%010d", i)
		v, ok := tree.Get(key)
		if !ok || string(v) != want {
			t.Errorf("key %d: expected %s, got %s, found=%v", i, want, v, ok)
		}
	}
}

// TestLSM_FreshestValueAcrossLevel0Flushes overwrites five keys 1112 times
// across seven small level-0 flushes (35 entries in all, well under
// L0CompactionTrigger, so no compaction runs) and checks that the freshest
// value per key wins over the older copies in earlier level-0 SSTables.
func TestLSM_FreshestValueAcrossLevel0Flushes(t *testing.T) {
	tree, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer tree.Close()

	keys := []string{"key1", "key2", "key3", "key4", "key5"}
	for i := 0; i < 1112; i++ {
		for _, k := range keys {
			value := []byte(fmt.Sprintf("v%d", i))
			if err := tree.Put([]byte(k), value); err != nil {
				t.Fatal(err)
			}
		}
		if i%200 == 0 {
			// Force a flush periodically; a memtable this small would
			// otherwise never cross MaxMemtableSize on its own within the
			// entry count this scenario uses.
			if err := tree.Flush(); err != nil {
				t.Fatal(err)
			}
		}
	}
	if err := tree.Flush(); err != nil {
		t.Fatal(err)
	}

	for _, k := range keys {
		v, ok := tree.Get([]byte(k))
		want := "v1111"
		if !ok || string(v) != want {
			t.Errorf("key %s: expected freshest value %s, got %s, found=%v", k, want, v, ok)
		}
	}
}

// TestLSM_ForceCompaction exercises S5: ForceCompaction merges a level into
// the next even when its natural size threshold hasn't been hit, and drains
// the source level.
func TestLSM_ForceCompaction(t *testing.T) {
	tree, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer tree.Close()

	for i := 0; i < 1000; i++ {
		key := []byte(fmt.Sprintf("key%06d", i))
		value := []byte(fmt.Sprintf("value%06d", i))
		if err := tree.Put(key, value); err != nil {
			t.Fatal(err)
		}
	}
	if err := tree.Flush(); err != nil {
		t.Fatal(err)
	}

	before := tree.LevelSizes()
	if before[0] == 0 {
		t.Fatal("expected level 0 to be non-empty before forcing compaction")
	}

	if err := tree.ForceCompaction(0); err != nil {
		t.Fatal(err)
	}

	after := tree.LevelSizes()
	if after[0] != 0 {
		t.Errorf("expected level 0 to be drained, got size %d", after[0])
	}
	if after[1] == 0 {
		t.Error("expected level 1 to receive the merged entries")
	}

	for i := 0; i < 1000; i += 137 {
		key := []byte(fmt.Sprintf("key%06d", i))
		want := fmt.Sprintf("value%06d", i)
		v, ok := tree.Get(key)
		if !ok || string(v) != want {
			t.Errorf("key %d: expected %s, got %s, found=%v", i, want, v, ok)
		}
	}
}

func TestLSM_ForceCompactionRejectsLastLevel(t *testing.T) {
	tree, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer tree.Close()

	if err := tree.ForceCompaction(MaxLevel - 1); err != ErrInvalidLevel {
		t.Errorf("expected ErrInvalidLevel, got %v", err)
	}
}

func TestLSM_ForceCompactionIsNoOpOnEmptyLevel(t *testing.T) {
	tree, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer tree.Close()

	if err := tree.ForceCompaction(0); err != nil {
		t.Errorf("expected no error compacting an empty level, got %v", err)
	}
}

// TestLSM_HooksAreOptional exercises SPEC_FULL.md property 7 from the
// no-hooks side: a tree with no logger and no metrics sink runs Put, Flush,
// ForceCompaction and Get without error and returns the stored value.
func TestLSM_HooksAreOptional(t *testing.T) {
	tree, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer tree.Close()

	if err := tree.Put([]byte("k"), []byte("v")); err != nil {
		t.Fatal(err)
	}
	if err := tree.Flush(); err != nil {
		t.Fatal(err)
	}
	if err := tree.ForceCompaction(0); err != nil {
		t.Fatal(err)
	}
	if v, ok := tree.Get([]byte("k")); !ok || string(v) != "v" {
		t.Errorf("expected v, got %s, found=%v", v, ok)
	}
}

// TestLSM_MetricsAreMonotonic exercises SPEC_FULL.md property 8: every
// counter the sink tracks only ever increases across a sequence of
// operations, and matches the operations actually performed.
func TestLSM_MetricsAreMonotonic(t *testing.T) {
	logger := &fakeLogger{}
	metrics := &fakeMetrics{}
	tree, err := Open(t.TempDir(), WithLogger(logger), WithMetrics(metrics))
	if err != nil {
		t.Fatal(err)
	}
	defer tree.Close()

	for i := 0; i < 10; i++ {
		key := []byte(fmt.Sprintf("key%d", i))
		if err := tree.Put(key, []byte("v")); err != nil {
			t.Fatal(err)
		}
	}
	if metrics.puts != 10 {
		t.Errorf("expected 10 puts observed, got %d", metrics.puts)
	}

	tree.Get([]byte("key0"))
	tree.Get([]byte("does-not-exist"))
	if metrics.hits != 1 || metrics.misses != 1 {
		t.Errorf("expected 1 hit and 1 miss, got hits=%d misses=%d", metrics.hits, metrics.misses)
	}

	if err := tree.Flush(); err != nil {
		t.Fatal(err)
	}
	if metrics.flushes != 1 || metrics.flushedEntries != 10 {
		t.Errorf("expected 1 flush of 10 entries, got flushes=%d entries=%d", metrics.flushes, metrics.flushedEntries)
	}
	if logger.infos == 0 {
		t.Error("expected the flush to have logged an info message")
	}

	if err := tree.ForceCompaction(0); err != nil {
		t.Fatal(err)
	}
	if metrics.compactions != 1 {
		t.Errorf("expected 1 compaction observed, got %d", metrics.compactions)
	}
}

func TestLSM_AbsenceIsStableAcrossMemtableAndLevels(t *testing.T) {
	tree, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer tree.Close()

	if err := tree.Put([]byte("a"), []byte("1")); err != nil {
		t.Fatal(err)
	}
	if err := tree.Flush(); err != nil {
		t.Fatal(err)
	}
	if err := tree.Put([]byte("b"), []byte("2")); err != nil {
		t.Fatal(err)
	}

	if _, ok := tree.Get([]byte("never-written")); ok {
		t.Error("expected a key never written to be absent")
	}
}
