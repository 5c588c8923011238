package memento

import (
	"sync"
	"testing"
	"time"
)

func TestKeyLockSerializesSameKey(t *testing.T) {
	k := newKeyLock()
	var active int
	var maxActive int
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			k.withKey("same", func() {
				mu.Lock()
				active++
				if active > maxActive {
					maxActive = active
				}
				mu.Unlock()

				time.Sleep(time.Millisecond)

				mu.Lock()
				active--
				mu.Unlock()
			})
		}()
	}
	wg.Wait()

	if maxActive != 1 {
		t.Errorf("expected at most 1 concurrent holder of the same key, saw %d", maxActive)
	}
}

func TestKeyLockAllowsDifferentKeysConcurrently(t *testing.T) {
	k := newKeyLock()
	var wg sync.WaitGroup
	start := make(chan struct{})
	results := make(chan time.Duration, 2)

	for i := 0; i < 2; i++ {
		key := memoryKey(string(rune('a' + i)))
		wg.Add(1)
		go func(key string) {
			defer wg.Done()
			<-start
			began := time.Now()
			k.withKey(key, func() {
				time.Sleep(20 * time.Millisecond)
			})
			results <- time.Since(began)
		}(key)
	}
	close(start)
	wg.Wait()
	close(results)

	for d := range results {
		if d > 60*time.Millisecond {
			t.Errorf("expected distinct keys to run concurrently, took %v", d)
		}
	}
}

func TestKeyBuilders(t *testing.T) {
	if memoryKey("abc") != "memory:abc" {
		t.Errorf("unexpected memoryKey output: %s", memoryKey("abc"))
	}
	if frameKey("alice", "phone1") != "frame:alice:phone1" {
		t.Errorf("unexpected frameKey output: %s", frameKey("alice", "phone1"))
	}
	if patternKey("p1") != "pattern:p1" {
		t.Errorf("unexpected patternKey output: %s", patternKey("p1"))
	}
}
