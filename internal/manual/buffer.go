// Package manual implements the operator-fed overflow buffer: a single text
// file that outside actors append to and this system drains on read.
package manual

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Buffer is a single-slot text mailbox backed by a file. A read that
// observes content clears the file before returning, so each write is
// delivered at most once.
type Buffer struct {
	path string
}

// NewBuffer creates a buffer backed by the file at path.
func NewBuffer(path string) *Buffer {
	return &Buffer{path: path}
}

// Path returns the backing file path.
func (b *Buffer) Path() string {
	return b.path
}

// Drain reads and clears the buffer. A missing file is created empty.
// Returns "" when there is nothing staged.
func (b *Buffer) Drain() (string, error) {
	data, err := os.ReadFile(b.path)
	if os.IsNotExist(err) {
		if err := b.clear(); err != nil {
			return "", err
		}
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading manual news: %w", err)
	}

	content := strings.TrimSpace(string(data))
	if content == "" {
		return "", nil
	}

	if err := b.clear(); err != nil {
		return "", err
	}
	return content, nil
}

func (b *Buffer) clear() error {
	if dir := filepath.Dir(b.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating buffer directory: %w", err)
		}
	}
	if err := os.WriteFile(b.path, nil, 0o644); err != nil {
		return fmt.Errorf("clearing manual news: %w", err)
	}
	return nil
}
