package registry

import (
	"context"
	"sync"
)

// MockClient is an in-memory registry for testing.
type MockClient struct {
	mu sync.Mutex

	// Packages maps published names to their metadata.
	Packages map[string]Package

	// Errors forces Search to fail for specific names.
	Errors map[string]error

	// Calls records every searched name in order.
	Calls []string
}

// NewMockClient creates a registry where each given name is published.
func NewMockClient(published ...string) *MockClient {
	m := &MockClient{
		Packages: make(map[string]Package),
		Errors:   make(map[string]error),
	}
	for _, name := range published {
		m.Packages[name] = Package{Name: name, Version: "1.0.0"}
	}
	return m
}

func (m *MockClient) Search(ctx context.Context, name string) ([]Package, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, name)
	if err, ok := m.Errors[name]; ok {
		return nil, err
	}
	if pkg, ok := m.Packages[name]; ok {
		return []Package{pkg}, nil
	}
	return []Package{}, nil
}

// CallCount returns how many times name was searched.
func (m *MockClient) CallCount(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for _, c := range m.Calls {
		if c == name {
			count++
		}
	}
	return count
}
