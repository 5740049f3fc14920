package middleware

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryCounter is a process-local Counter used when Redis is disabled
type MemoryCounter struct {
	mu sync.Mutex
	c  *gocache.Cache
}

// NewMemoryCounter creates an empty MemoryCounter
func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{c: gocache.New(gocache.NoExpiration, time.Minute)}
}

// Increment bumps key, starting a new window on the first hit or after the
// previous window expired.
func (m *MemoryCounter) Increment(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exp, ok := m.c.GetWithExpiration(key); ok {
		n, err := m.c.IncrementInt64(key, 1)
		if err != nil {
			return 0, 0, err
		}
		return n, time.Until(exp), nil
	}

	m.c.Set(key, int64(1), window)
	return 1, window, nil
}
