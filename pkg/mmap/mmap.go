// Package mmap maps whole files read-only into memory.
package mmap

import (
	"bytes"
	"fmt"
	"os"
)

// File is a read-only view of a file's contents.
type File struct {
	data   []byte
	mapped bool
}

// Open maps path. Empty files yield an empty view without a mapping.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if stat.Size() == 0 {
		return &File{}, nil
	}
	if int64(int(stat.Size())) != stat.Size() {
		return nil, fmt.Errorf("file of %d bytes is too large to map", stat.Size())
	}

	data, mapped, err := mapFile(f, int(stat.Size()))
	if err != nil {
		return nil, fmt.Errorf("failed to mmap file: %w", err)
	}
	return &File{data: data, mapped: mapped}, nil
}

// Bytes returns the mapped contents. The slice is invalid after Close.
func (m *File) Bytes() []byte { return m.data }

// Len is the file size.
func (m *File) Len() int { return len(m.data) }

// Reader returns a reader over the contents.
func (m *File) Reader() *bytes.Reader { return bytes.NewReader(m.data) }

// Close releases the mapping.
func (m *File) Close() error {
	data := m.data
	m.data = nil
	if !m.mapped || data == nil {
		return nil
	}
	m.mapped = false
	return unmap(data)
}
