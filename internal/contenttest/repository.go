// internal/contenttest/repository.go
package contenttest

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Repository stores test cases together with the records they own.
// Save replaces the stored records, so dropped records are deleted with it.
type Repository interface {
	Create(ctx context.Context, tc *TestCase) error
	Get(ctx context.Context, id string) (*TestCase, error)
	ListByProblem(ctx context.Context, location string) ([]*TestCase, error)
	Save(ctx context.Context, tc *TestCase) error
	Delete(ctx context.Context, id string) error
}

// MemoryRepository keeps test cases in process memory.
type MemoryRepository struct {
	mu    sync.RWMutex
	tests map[string]*TestCase
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{tests: make(map[string]*TestCase)}
}

func (m *MemoryRepository) Create(_ context.Context, tc *TestCase) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.tests[tc.ID]; exists {
		return fmt.Errorf("test case %s already exists", tc.ID)
	}
	tc.MarkClean()
	m.tests[tc.ID] = tc.Clone()
	return nil
}

func (m *MemoryRepository) Get(_ context.Context, id string) (*TestCase, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tc, ok := m.tests[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTestCaseNotFound, id)
	}
	return tc.Clone(), nil
}

func (m *MemoryRepository) ListByProblem(_ context.Context, location string) ([]*TestCase, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*TestCase
	for _, tc := range m.tests {
		if tc.ProblemLocation == location {
			out = append(out, tc.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MemoryRepository) Save(_ context.Context, tc *TestCase) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tests[tc.ID]; !ok {
		return fmt.Errorf("%w: %s", ErrTestCaseNotFound, tc.ID)
	}
	tc.MarkClean()
	m.tests[tc.ID] = tc.Clone()
	return nil
}

func (m *MemoryRepository) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tests[id]; !ok {
		return fmt.Errorf("%w: %s", ErrTestCaseNotFound, id)
	}
	delete(m.tests, id)
	return nil
}
