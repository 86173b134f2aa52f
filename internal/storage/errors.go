package storage

import "errors"

var (
	// ErrKeyNotFound names a lookup miss. No function in this package
	// returns it: SSTable.Get and LSMTree.Get report a miss through their
	// bool return instead.
	ErrKeyNotFound = errors.New("storage: key not found")

	// ErrEmptyKey is returned by Put for the empty-key sentinel reserved by
	// the memtable's head node.
	ErrEmptyKey = errors.New("storage: empty key is reserved")

	// ErrInvalidLevel is returned by ForceCompaction for a level that has no
	// next level to merge into.
	ErrInvalidLevel = errors.New("storage: invalid compaction level")

	// ErrShortRecord is returned by ReadAllEntries when an SSTable file ends
	// mid-record rather than cleanly at a record boundary.
	ErrShortRecord = errors.New("storage: truncated sstable record")
)
