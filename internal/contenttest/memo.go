// internal/contenttest/memo.go
package contenttest

import (
	"context"
	"sync"

	"content-testing-workers/internal/problem"
)

// TreeLoader returns the current reference tree for a content location.
type TreeLoader interface {
	Load(ctx context.Context, location string) (*problem.Tree, error)
}

// TreeMemo memoizes tree loads for the duration of one rematch call.
// After Release it stops caching and every lookup goes to the loader.
type TreeMemo struct {
	loader TreeLoader

	mu       sync.Mutex
	trees    map[string]*problem.Tree
	released bool
	loads    int
}

func NewTreeMemo(loader TreeLoader) *TreeMemo {
	return &TreeMemo{
		loader: loader,
		trees:  make(map[string]*problem.Tree),
	}
}

// GetOrLoad returns the memoized tree or loads it on a miss.
// Load errors are returned as-is and nothing is cached for them.
func (m *TreeMemo) GetOrLoad(ctx context.Context, location string) (*problem.Tree, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.released {
		if tree, ok := m.trees[location]; ok {
			return tree, nil
		}
	}

	m.loads++
	tree, err := m.loader.Load(ctx, location)
	if err != nil {
		return nil, err
	}
	if !m.released {
		m.trees[location] = tree
	}
	return tree, nil
}

// Release clears the memo and disables caching.
func (m *TreeMemo) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trees = make(map[string]*problem.Tree)
	m.released = true
}

func (m *TreeMemo) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.trees)
}

func (m *TreeMemo) Released() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.released
}

// Loads counts calls that reached the loader.
func (m *TreeMemo) Loads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loads
}
