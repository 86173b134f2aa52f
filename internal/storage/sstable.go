package storage

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// SSTable (Sorted String Table) is an immutable on-disk representation of a
// sorted batch of (key, value, timestamp) entries, with an in-memory index
// from every key to its record's file offset.
//
// On-disk layout is a flat concatenation of entries in the order they were
// supplied, no header, no footer, no checksums:
//
//	repeated:
//	  u32   key_len       (little-endian)
//	  u8[key_len]   key bytes
//	  u32   value_len     (little-endian)
//	  u8[value_len] value bytes
//	  i64   timestamp     (little-endian)
//
// An SSTable is single-shot: Write is called exactly once after Create, and
// the index it builds is only ever valid for the one batch that call wrote.
type SSTable struct {
	path  string
	file  *os.File
	index map[string]int64 // key -> byte offset of its record
}

// CreateSSTable creates (or truncates) the file at path and returns a handle
// ready to receive a single Write call.
func CreateSSTable(path string) (*SSTable, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("storage: create sstable %s: %w", path, err)
	}
	return &SSTable{
		path:  path,
		file:  file,
		index: make(map[string]int64),
	}, nil
}

// OpenSSTable opens an existing SSTable file for reading and rebuilds its
// index by scanning the file once.
func OpenSSTable(path string) (*SSTable, error) {
	file, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("storage: open sstable %s: %w", path, err)
	}
	s := &SSTable{path: path, file: file, index: make(map[string]int64)}
	if err := s.rebuildIndex(); err != nil {
		file.Close()
		return nil, err
	}
	return s, nil
}

func (s *SSTable) rebuildIndex() error {
	if _, err := s.file.Seek(0, io.SeekStart); err != nil {
		return err
	}
	r := bufio.NewReader(s.file)
	offset := int64(0)
	for {
		var keyLen uint32
		if err := binary.Read(r, binary.LittleEndian, &keyLen); err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("storage: rebuild index %s: %w", s.path, err)
		}
		key := make([]byte, keyLen)
		if _, err := io.ReadFull(r, key); err != nil {
			return fmt.Errorf("storage: rebuild index %s: %w", s.path, ErrShortRecord)
		}
		s.index[string(key)] = offset

		var valueLen uint32
		if err := binary.Read(r, binary.LittleEndian, &valueLen); err != nil {
			return fmt.Errorf("storage: rebuild index %s: %w", s.path, ErrShortRecord)
		}
		if _, err := r.Discard(int(valueLen)); err != nil {
			return fmt.Errorf("storage: rebuild index %s: %w", s.path, ErrShortRecord)
		}
		var timestamp int64
		if err := binary.Read(r, binary.LittleEndian, &timestamp); err != nil {
			return fmt.Errorf("storage: rebuild index %s: %w", s.path, ErrShortRecord)
		}

		offset += int64(4+keyLen+4) + int64(valueLen) + 8
	}
}

// Write appends entries (assumed to already be in ascending key order) to the
// SSTable and populates the index. Write may be called once after Create;
// subsequent calls append without clearing the index: callers must treat an
// SSTable as single-shot.
func (s *SSTable) Write(entries []*Entry) error {
	w := bufio.NewWriterSize(s.file, 64*1024)

	offset, err := s.file.Seek(0, io.SeekCurrent)
	if err != nil {
		return fmt.Errorf("storage: write sstable %s: %w", s.path, err)
	}

	for _, e := range entries {
		s.index[string(e.Key)] = offset

		if err := binary.Write(w, binary.LittleEndian, uint32(len(e.Key))); err != nil {
			return fmt.Errorf("storage: write sstable %s: %w", s.path, err)
		}
		if _, err := w.Write(e.Key); err != nil {
			return fmt.Errorf("storage: write sstable %s: %w", s.path, err)
		}
		if err := binary.Write(w, binary.LittleEndian, uint32(len(e.Value))); err != nil {
			return fmt.Errorf("storage: write sstable %s: %w", s.path, err)
		}
		if _, err := w.Write(e.Value); err != nil {
			return fmt.Errorf("storage: write sstable %s: %w", s.path, err)
		}
		if err := binary.Write(w, binary.LittleEndian, e.Timestamp); err != nil {
			return fmt.Errorf("storage: write sstable %s: %w", s.path, err)
		}

		offset += int64(4+len(e.Key)+4) + int64(len(e.Value)) + 8
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("storage: write sstable %s: %w", s.path, err)
	}
	return nil
}

// Get looks up key via the in-memory index. Absence is not an error: it is
// reported by the second return value. The returned value buffer is a fresh
// copy the caller owns outright.
func (s *SSTable) Get(key []byte) ([]byte, bool) {
	offset, ok := s.index[string(key)]
	if !ok {
		return nil, false
	}

	if _, err := s.file.Seek(offset, io.SeekStart); err != nil {
		return nil, false
	}
	r := bufio.NewReader(s.file)

	var keyLen uint32
	if err := binary.Read(r, binary.LittleEndian, &keyLen); err != nil {
		return nil, false
	}
	onDiskKey := make([]byte, keyLen)
	if _, err := io.ReadFull(r, onDiskKey); err != nil {
		return nil, false
	}
	// Sanity check: if the on-disk key doesn't match, treat it as absent
	// rather than raising - the index is trusted but verified.
	if !bytes.Equal(onDiskKey, key) {
		return nil, false
	}

	var valueLen uint32
	if err := binary.Read(r, binary.LittleEndian, &valueLen); err != nil {
		return nil, false
	}
	value := make([]byte, valueLen)
	if _, err := io.ReadFull(r, value); err != nil {
		return nil, false
	}
	// Timestamp trails the value; it is skipped here.

	return value, true
}

// ReadAllEntries scans the file from the beginning and returns every entry in
// file order, which is ascending key order by the writer's precondition. A
// clean end-of-file at a record boundary terminates the scan normally; a
// truncated record is reported as ErrShortRecord.
func (s *SSTable) ReadAllEntries() ([]*Entry, error) {
	if _, err := s.file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("storage: read sstable %s: %w", s.path, err)
	}
	r := bufio.NewReader(s.file)

	var entries []*Entry
	for {
		var keyLen uint32
		if err := binary.Read(r, binary.LittleEndian, &keyLen); err != nil {
			if err == io.EOF {
				return entries, nil
			}
			if err == io.ErrUnexpectedEOF {
				err = ErrShortRecord
			}
			return nil, fmt.Errorf("storage: read sstable %s: %w", s.path, err)
		}

		key := make([]byte, keyLen)
		if _, err := io.ReadFull(r, key); err != nil {
			return nil, fmt.Errorf("storage: read sstable %s: %w", s.path, ErrShortRecord)
		}

		var valueLen uint32
		if err := binary.Read(r, binary.LittleEndian, &valueLen); err != nil {
			return nil, fmt.Errorf("storage: read sstable %s: %w", s.path, ErrShortRecord)
		}
		value := make([]byte, valueLen)
		if _, err := io.ReadFull(r, value); err != nil {
			return nil, fmt.Errorf("storage: read sstable %s: %w", s.path, ErrShortRecord)
		}

		var timestamp int64
		if err := binary.Read(r, binary.LittleEndian, &timestamp); err != nil {
			return nil, fmt.Errorf("storage: read sstable %s: %w", s.path, ErrShortRecord)
		}

		entries = append(entries, &Entry{Key: key, Value: value, Timestamp: timestamp})
	}
}

// Path returns the file path backing this SSTable.
func (s *SSTable) Path() string {
	return s.path
}

// Close closes the underlying file descriptor.
func (s *SSTable) Close() error {
	return s.file.Close()
}
