package storage

// MemTable is the ordered in-memory write buffer backing an LSMTree. It wraps
// a skip list and tracks entry count for flush threshold decisions: size is
// counted in entries, not bytes, matching the reference this engine is based
// on (see SPEC_FULL.md §3).
//
// MemTable is not safe for concurrent use; the tree as a whole assumes a
// single caller serializing all operations (see package doc).
type MemTable struct {
	sl *SkipList
}

// NewMemTable creates a new, empty memtable.
func NewMemTable() *MemTable {
	return &MemTable{sl: NewSkipList()}
}

// Put inserts or replaces the value for key. Keys and values are copied into
// storage owned by the memtable; the caller's slices may be reused
// afterward. Callers must not pass an empty key (see LSMTree.Put, which
// enforces this at the public boundary).
func (m *MemTable) Put(key, value []byte) {
	keyCopy := append([]byte(nil), key...)
	valCopy := append([]byte(nil), value...)
	m.sl.Put(keyCopy, valCopy, 0)
}

// Get retrieves a value by key. The returned slice is borrowed from the
// memtable; the caller must not mutate or retain it past the memtable's
// lifetime without copying.
func (m *MemTable) Get(key []byte) ([]byte, bool) {
	return m.sl.Get(key)
}

// Size returns the number of entries currently buffered.
func (m *MemTable) Size() int {
	return m.sl.Count()
}

// OrderedEnumerate walks the memtable in ascending key order, returning every
// entry. Used by LSMTree.Flush to build the next level-0 SSTable.
func (m *MemTable) OrderedEnumerate() []*Entry {
	entries := make([]*Entry, 0, m.sl.Count())
	iter := m.sl.NewIterator()
	for iter.Next() {
		entries = append(entries, iter.Entry())
	}
	return entries
}
