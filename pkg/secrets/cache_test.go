package secrets

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCache_PutGetExpire(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := NewCache[string](time.Minute)
	c.now = func() time.Time { return now }

	c.Put("dev/market-data/okx", "https://www.okx.com")
	v, ok := c.Get("dev/market-data/okx")
	assert.True(t, ok)
	assert.Equal(t, "https://www.okx.com", v)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get("dev/market-data/okx")
	assert.False(t, ok)
	assert.Zero(t, c.Len(), "expired entry removed on read")
}

func TestCache_Bust(t *testing.T) {
	c := NewCache[int](time.Hour)
	c.Put("a", 1)
	c.Bust("a")
	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestCache_CleanupExpired(t *testing.T) {
	now := time.Now()
	c := NewCache[int](time.Second)
	c.now = func() time.Time { return now }
	c.Put("old", 1)
	now = now.Add(time.Hour)
	c.Put("new", 2)

	c.cleanupExpired()
	assert.Equal(t, 1, c.Len())
}

func TestCache_StartCleanerStops(t *testing.T) {
	c := NewCache[int](time.Millisecond)
	c.Put("k", 1)
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		c.StartCleaner(5*time.Millisecond, stop)
		close(done)
	}()

	assert.Eventually(t, func() bool { return c.Len() == 0 }, time.Second, 5*time.Millisecond)
	close(stop)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleaner did not stop")
	}
}
