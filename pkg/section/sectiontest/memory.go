// Package sectiontest provides an in-memory section.IO for tests.
package sectiontest

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"github.com/albertocavalcante/srcmeta/pkg/section"
)

// Memory is a section.IO keeping binaries as maps of section contents.
// Every call is appended to Calls as "op path".
type Memory struct {
	mu       sync.Mutex
	files    map[string]map[string][]byte
	failures map[string]error

	Calls []string
}

var _ section.IO = (*Memory)(nil)

// NewMemory returns an empty Memory.
func NewMemory() *Memory {
	return &Memory{
		files:    make(map[string]map[string][]byte),
		failures: make(map[string]error),
	}
}

// AddBinary registers a binary with the given sections.
func (m *Memory) AddBinary(path string, sections map[string][]byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := make(map[string][]byte, len(sections))
	for k, v := range sections {
		s[k] = append([]byte(nil), v...)
	}
	m.files[path] = s
}

// FailOn makes op ("read", "write", "remove" or "copy") on path return err.
func (m *Memory) FailOn(op, path string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[op+" "+path] = err
}

// Section returns the current contents of a section and whether it exists.
func (m *Memory) Section(path, name string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[path]
	if !ok {
		return nil, false
	}
	data, ok := f[name]
	return data, ok
}

// HasFile reports whether path exists.
func (m *Memory) HasFile(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.files[path]
	return ok
}

func (m *Memory) begin(op, path string) (map[string][]byte, error) {
	m.Calls = append(m.Calls, op+" "+path)
	if err := m.failures[op+" "+path]; err != nil {
		return nil, err
	}
	f, ok := m.files[path]
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, section.ErrFileNotFound)
	}
	return f, nil
}

func (m *Memory) ReadSection(_ context.Context, binary, name string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, err := m.begin("read", binary)
	if err != nil {
		return nil, err
	}
	data, ok := f[name]
	if !ok {
		return nil, fmt.Errorf("%s: %s: %w", binary, name, section.ErrSectionNotFound)
	}
	return append([]byte(nil), data...), nil
}

func (m *Memory) WriteSection(_ context.Context, binary, name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, err := m.begin("write", binary)
	if err != nil {
		return err
	}
	f[name] = append([]byte(nil), data...)
	return nil
}

func (m *Memory) RemoveSection(_ context.Context, binary, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, err := m.begin("remove", binary)
	if err != nil {
		return err
	}
	delete(f, name)
	return nil
}

func (m *Memory) CopyFile(_ context.Context, src, dst string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, err := m.begin("copy", src)
	if err != nil {
		return err
	}
	m.files[dst] = maps.Clone(f)
	return nil
}

func (m *Memory) Exists(_ context.Context, path string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.files[path]
	return ok, nil
}
