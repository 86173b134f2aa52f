// Package storage implements a Log-Structured Merge (LSM) tree storage engine.
//
// The tree buffers writes in an in-memory skip-list memtable, flushes that
// memtable to an immutable on-disk SSTable once it crosses a size threshold,
// and periodically merges SSTables across a fixed number of levels to bound
// read amplification. There is no write-ahead log, no transactions or
// snapshots, and no concurrent access support: callers must serialize their
// own calls into a single tree.
//
// Architecture:
//
//	┌─────────────────────────────────────────────────────────────────┐
//	│                         LSM-Tree                                  │
//	├─────────────────────────────────────────────────────────────────┤
//	│  Write Path:  Put → MemTable → (flush) → SSTable L0              │
//	│  Read Path:   Get → MemTable → L0 → L1 → ... → L(MaxLevel-1)     │
//	├─────────────────────────────────────────────────────────────────┤
//	│  Compaction:  L0 → L1 → L2 → ... (cascading, size-ratio driven)  │
//	└─────────────────────────────────────────────────────────────────┘
//
// Key components:
//   - MemTable: in-memory skip list buffering writes before flush
//   - SSTable: immutable, sorted on-disk key/value/timestamp log with a
//     per-key in-memory offset index
//   - LSMTree: the controller that routes Put/Get and drives flush/compaction
package storage
