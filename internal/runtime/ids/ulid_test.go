package ids

import (
	"sync"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateULIDIsStrictlyIncreasing(t *testing.T) {
	prev := CreateULID()
	for i := 0; i < 100; i++ {
		next := CreateULID()
		require.Len(t, next, 26)
		_, err := ulid.Parse(next)
		require.NoError(t, err)
		require.Less(t, prev, next)
		prev = next
	}
}

func TestCreateULIDConcurrentUniqueness(t *testing.T) {
	const goroutines, perGoroutine = 10, 20

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = make(map[string]struct{})
	)
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				id := CreateULID()
				mu.Lock()
				seen[id] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, goroutines*perGoroutine)
}

func TestTime(t *testing.T) {
	before := time.Now().Add(-time.Second)
	created, err := Time(CreateULID())
	require.NoError(t, err)
	assert.True(t, created.After(before))

	_, err = Time("not-a-ulid")
	assert.Error(t, err)
}
