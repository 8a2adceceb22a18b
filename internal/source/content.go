package source

import (
	"fmt"
	"os"
	"sync"
)

// Content is the backing handle of a Source.
type Content interface {
	// Bytes returns the normalized content.
	Bytes() ([]byte, error)
	// Stamp changes whenever the content may have changed (mtime, version).
	Stamp() int64
	// Exists reports whether the content is still available.
	Exists() bool
}

// FileContent reads a file from disk on every access.
type FileContent struct {
	Path string
}

func (f FileContent) Bytes() ([]byte, error) {
	// #nosec G304 -- path is provided by the caller
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.Path, err)
	}
	return Normalize(data), nil
}

func (f FileContent) Stamp() int64 {
	info, err := os.Stat(f.Path)
	if err != nil {
		return 0
	}
	return info.ModTime().UnixNano()
}

func (f FileContent) Exists() bool {
	_, err := os.Stat(f.Path)
	return err == nil
}

// BufferContent is an in-memory buffer (editor buffer, test input, generated code).
type BufferContent struct {
	mu      sync.RWMutex
	data    []byte
	version int64
	deleted bool
}

// NewBuffer creates a buffer holding data.
func NewBuffer(data []byte) *BufferContent {
	return &BufferContent{data: Normalize(data), version: 1}
}

// Set replaces the buffer content and bumps its stamp.
func (b *BufferContent) Set(data []byte) {
	b.mu.Lock()
	b.data = Normalize(data)
	b.version++
	b.deleted = false
	b.mu.Unlock()
}

// Delete marks the buffer as gone.
func (b *BufferContent) Delete() {
	b.mu.Lock()
	b.deleted = true
	b.version++
	b.mu.Unlock()
}

func (b *BufferContent) Bytes() ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.deleted {
		return nil, os.ErrNotExist
	}
	return b.data, nil
}

func (b *BufferContent) Stamp() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.version
}

func (b *BufferContent) Exists() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return !b.deleted
}

// ArchiveEntryContent is one entry read out of a pre-compiled archive.
// The archive is read once; the entry keeps its bytes.
type ArchiveEntryContent struct {
	Archive string
	Entry   string
	Data    []byte
	CRC     uint32
}

func (a ArchiveEntryContent) Bytes() ([]byte, error) {
	return a.Data, nil
}

func (a ArchiveEntryContent) Stamp() int64 {
	return int64(a.CRC)
}

func (a ArchiveEntryContent) Exists() bool {
	_, err := os.Stat(a.Archive)
	return err == nil
}
