// Package docio specifies the boundary between this engine's core and
// STEP/BREP file I/O. Real BREP reading and writing, colour/material
// capture, and shape-validity-report formatting live in a kernel binding's
// own package, not here; docio ships only the interfaces the core calls
// through and an in-memory fake.
package docio

import (
	"context"
	"fmt"
	"sync"

	"github.com/ukaea/overlap-checker/internal/shape"
)

// Loader reads a Document from path. A production binding backs this with
// its kernel's native BREP reader; this package provides none.
type Loader interface {
	Load(ctx context.Context, path string) (*shape.Document, error)
}

// Saver writes a Document to path.
type Saver interface {
	Save(ctx context.Context, path string, doc *shape.Document) error
}

// Memory is an in-memory Loader and Saver that stands in for a real BREP
// file: Save records the Document under path, Load returns what was last
// saved there.
type Memory struct {
	mu    sync.Mutex
	files map[string]*shape.Document
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{files: make(map[string]*shape.Document)}
}

// Seed preloads path with doc, as if it had already been saved, letting a
// test construct a Loader input without going through Save first.
func (m *Memory) Seed(path string, doc *shape.Document) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path] = doc
}

func (m *Memory) Load(_ context.Context, path string) (*shape.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.files[path]
	if !ok {
		return nil, fmt.Errorf("docio: %s: no such document", path)
	}
	return doc, nil
}

func (m *Memory) Save(_ context.Context, path string, doc *shape.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path] = doc
	return nil
}

var (
	_ Loader = (*Memory)(nil)
	_ Saver  = (*Memory)(nil)
)
