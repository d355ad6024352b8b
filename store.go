// FILE: lixenwraith/secureconfig/store.go
package secureconfig

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// MaxFileSize bounds how much of a configuration file is read.
const MaxFileSize = 10 << 20

// Store persists Documents. Open returns a fresh snapshot on every call;
// Save replaces the persisted state with doc as a whole.
type Store interface {
	Open() (*Document, error)
	Save(doc *Document) error
}

// FileStore keeps the document in a single TOML, YAML or JSON file.
type FileStore struct {
	path   string
	format string
	perm   os.FileMode
}

// NewFileStore returns a store for path. The format is detected from the
// extension, falling back to the file content.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path, format: FormatAuto, perm: 0600}
}

// WithFormat forces a file format instead of auto-detection.
func (s *FileStore) WithFormat(format string) *FileStore {
	if format == "" {
		format = FormatAuto
	}
	s.format = format
	return s
}

// WithPermissions sets the file mode used on save.
func (s *FileStore) WithPermissions(perm os.FileMode) *FileStore {
	s.perm = perm
	return s
}

// Path returns the backing file path.
func (s *FileStore) Path() string { return s.path }

// Open reads and parses the configuration file.
func (s *FileStore) Open() (*Document, error) {
	data, err := s.read()
	if err != nil {
		return nil, &PersistenceError{Path: s.path, Op: "open", Err: err}
	}

	format := s.format
	if format == FormatAuto {
		format = detectFileFormat(s.path)
		if format == "" {
			format = detectFormatFromContent(data)
		}
		if format == "" {
			return nil, &PersistenceError{Path: s.path, Op: "open", Err: fmt.Errorf("%w: unable to determine format", ErrUnsupportedFormat)}
		}
	}

	doc, err := parseDocument(data, format)
	if err != nil {
		return nil, &PersistenceError{Path: s.path, Op: "open", Err: err}
	}
	return doc, nil
}

func (s *FileStore) read() ([]byte, error) {
	file, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, MaxFileSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > MaxFileSize {
		return nil, fmt.Errorf("file exceeds maximum size %d bytes", MaxFileSize)
	}
	return data, nil
}

// Save renders doc and atomically replaces the configuration file.
func (s *FileStore) Save(doc *Document) error {
	format := s.format
	if format == FormatAuto {
		format = detectFileFormat(s.path)
		if format == "" {
			format = FormatTOML
		}
	}

	data, err := renderDocument(doc, format)
	if err != nil {
		return &PersistenceError{Path: s.path, Op: "save", Err: err}
	}
	if err := atomicWriteFile(s.path, data, s.perm); err != nil {
		return &PersistenceError{Path: s.path, Op: "save", Err: err}
	}
	return nil
}

// atomicWriteFile writes data to a temporary file in the target directory
// and renames it over path, so readers never observe a partial file.
func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory '%s': %w", dir, err)
	}

	tempFile, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	tempPath := tempFile.Name()
	defer os.Remove(tempPath) // No-op once renamed

	if _, err := tempFile.Write(data); err != nil {
		tempFile.Close()
		return fmt.Errorf("failed to write temporary file: %w", err)
	}

	if err := tempFile.Sync(); err != nil {
		tempFile.Close()
		return fmt.Errorf("failed to sync temporary file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("failed to close temporary file: %w", err)
	}

	if err := os.Chmod(tempPath, perm); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}

	return nil
}

// MemoryStore keeps the document in memory. Open and Save copy, so callers
// never share state with the store.
type MemoryStore struct {
	mu    sync.Mutex
	doc   *Document
	saves int
}

// NewMemoryStore returns a store seeded with a copy of doc. A nil doc
// starts empty.
func NewMemoryStore(doc *Document) *MemoryStore {
	if doc == nil {
		doc = NewDocument()
	}
	return &MemoryStore{doc: doc.Clone()}
}

func (m *MemoryStore) Open() (*Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.doc.Clone(), nil
}

func (m *MemoryStore) Save(doc *Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.doc = doc.Clone()
	m.saves++
	return nil
}

// Saves returns how many times Save has been called.
func (m *MemoryStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}
