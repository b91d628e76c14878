package storage

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Manager writes invoice artifacts into a single output folder
type Manager struct {
	outputDir string
	written   map[string]int64
	mu        sync.RWMutex
}

// NewManager creates the output folder if needed
func NewManager(outputDir string) (*Manager, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	return &Manager{
		outputDir: outputDir,
		written:   make(map[string]int64),
	}, nil
}

// Save writes r to name inside the output folder and returns the full path.
// An existing file with the same name is replaced.
func (m *Manager) Save(name string, r io.Reader) (string, error) {
	if err := checkName(name); err != nil {
		return "", err
	}
	filename := filepath.Join(m.outputDir, name)

	// Create temporary file first
	out, err := os.CreateTemp(m.outputDir, "."+name+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary file: %w", err)
	}
	tempFile := out.Name()

	n, err := io.Copy(out, r)
	closeErr := out.Close()

	if err != nil {
		os.Remove(tempFile)
		return "", fmt.Errorf("failed to write %s: %w", name, err)
	}
	if closeErr != nil {
		os.Remove(tempFile)
		return "", fmt.Errorf("failed to close file: %w", closeErr)
	}

	// Atomic rename, replacing any previous artifact
	if err := os.Rename(tempFile, filename); err != nil {
		os.Remove(tempFile)
		return "", fmt.Errorf("failed to rename temporary file: %w", err)
	}

	m.mu.Lock()
	m.written[name] = n
	m.mu.Unlock()

	return filename, nil
}

// SaveBytes is Save for an in-memory payload
func (m *Manager) SaveBytes(name string, data []byte) (string, error) {
	return m.Save(name, bytes.NewReader(data))
}

// GetOutputDir returns the output directory path
func (m *Manager) GetOutputDir() string {
	return m.outputDir
}

// GetWrittenCount returns the number of distinct files saved
func (m *Manager) GetWrittenCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.written)
}

func checkName(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || filepath.Base(name) != name {
		return fmt.Errorf("invalid artifact name %q", name)
	}
	return nil
}
