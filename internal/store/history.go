// Package store keeps the session history of pushed tracks using a Bloom filter and an LRU cache.
package store

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	lru "github.com/hashicorp/golang-lru/v2"
)

// History remembers the most recently pushed track IDs of a session. It is safe
// for concurrent use.
type History struct {
	bloom     *bloom.BloomFilter
	lru       *lru.Cache[string, int]
	recent    []string
	mutex     sync.RWMutex
	maxTracks int
}

// NewHistory creates a history that tracks up to maxTracks distinct IDs.
func NewHistory(maxTracks int, falsePositiveRate float64) *History {
	if maxTracks <= 0 {
		maxTracks = 1
	}
	lruCache, _ := lru.New[string, int](maxTracks)

	return &History{
		bloom:     bloom.NewWithEstimates(uint(maxTracks), falsePositiveRate),
		lru:       lruCache,
		recent:    make([]string, 0, maxTracks),
		maxTracks: maxTracks,
	}
}

// Record stores a push of trackID and reports whether the same ID was pushed
// before and is still remembered.
func (h *History) Record(trackID string) bool {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	repeat := false
	if h.bloom.TestString(trackID) {
		if count, ok := h.lru.Get(trackID); ok {
			repeat = true
			h.lru.Add(trackID, count+1)
		}
	}
	if !repeat {
		h.bloom.AddString(trackID)
		h.lru.Add(trackID, 1)
	}

	if len(h.recent) == h.maxTracks {
		copy(h.recent, h.recent[1:])
		h.recent = h.recent[:len(h.recent)-1]
	}
	h.recent = append(h.recent, trackID)

	return repeat
}

// Count returns how many times trackID was pushed while remembered.
func (h *History) Count(trackID string) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	count, _ := h.lru.Peek(trackID)
	return count
}

// Recent returns the latest pushes, oldest first, repeats included.
func (h *History) Recent() []string {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	out := make([]string, len(h.recent))
	copy(out, h.recent)
	return out
}

// Size returns the number of distinct track IDs remembered.
func (h *History) Size() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.lru.Len()
}
