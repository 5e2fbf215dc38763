package cache

import (
	"testing"
	"time"
)

func TestManagerCleansRegisteredCaches(t *testing.T) {
	c := NewLRUCache[int](10, 10*time.Millisecond)
	c.Set("a", 1)
	c.Set("b", 2)

	m := NewManager()
	m.Register(c)
	m.StartCleanup(20 * time.Millisecond)
	defer m.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for c.Size() > 0 {
		if time.Now().After(deadline) {
			t.Fatalf("expired entries not cleaned, %d left", c.Size())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestManagerStopWaitsForLoop(t *testing.T) {
	m := NewManager()
	m.Register(NewLRUCache[string](5, time.Minute))
	m.StartCleanup(5 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		m.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return")
	}
}
