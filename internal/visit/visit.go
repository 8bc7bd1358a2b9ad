// Package visit records the storefront page a customer should return to
// when they choose to continue shopping.
package visit

import (
	"context"
	"sync"

	apperrors "github.com/utafrali/storefront-search/pkg/errors"
)

// Page identifies a visited page for one customer in one store.
type Page struct {
	CustomerID string
	StoreID    string
	URL        string
}

// Recorder persists the last visited page of a customer per store.
type Recorder interface {
	RecordLastVisitedPage(ctx context.Context, customerID, url, storeID string) error
}

// MemoryRecorder is an in-process Recorder. Thread-safe via sync.RWMutex.
type MemoryRecorder struct {
	mu    sync.RWMutex
	pages map[string]map[string]string
}

// NewMemoryRecorder creates an empty in-memory recorder.
func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{pages: make(map[string]map[string]string)}
}

// RecordLastVisitedPage stores url as the customer's last page in storeID.
func (m *MemoryRecorder) RecordLastVisitedPage(_ context.Context, customerID, url, storeID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	byStore, ok := m.pages[customerID]
	if !ok {
		byStore = make(map[string]string)
		m.pages[customerID] = byStore
	}
	byStore[storeID] = url
	return nil
}

// LastVisitedPage returns the recorded page or a NOT_FOUND AppError.
func (m *MemoryRecorder) LastVisitedPage(_ context.Context, customerID, storeID string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	url, ok := m.pages[customerID][storeID]
	if !ok {
		return "", apperrors.NotFound("last visited page", customerID)
	}
	return url, nil
}
