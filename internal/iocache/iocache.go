// Package iocache persists GitHub API responses and run history.
package iocache

import (
	"sync"

	"github.com/huangsam/prstats/internal/contract"
)

// StoreManager holds the process-wide cache and history stores.
type StoreManager struct {
	sync.RWMutex // Protects the store pointers during initialization
	cache        contract.CacheStore
	history      contract.HistoryStore
}

var _ contract.CacheManager = &StoreManager{} // Compile-time check

// GetCacheStore returns the response CacheStore, or nil when caching is not configured.
func (mgr *StoreManager) GetCacheStore() contract.CacheStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.cache
}

// GetHistoryStore returns the HistoryStore, or nil when history is not configured.
func (mgr *StoreManager) GetHistoryStore() contract.HistoryStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.history
}
