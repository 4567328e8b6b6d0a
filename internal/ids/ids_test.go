package ids

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUUIDv7_Format(t *testing.T) {
	id := UUIDv7{}.New()

	parsed, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
	assert.Len(t, id, 36)
}

func TestUUIDv7_Unique(t *testing.T) {
	gen := UUIDv7{}
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := gen.New()
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestSequence_PredeterminedThenNumbered(t *testing.T) {
	gen := NewSequence("id", "tx-1", "item-1")

	assert.Equal(t, "tx-1", gen.New())
	assert.Equal(t, "item-1", gen.New())
	assert.Equal(t, "id-3", gen.New())
	assert.Equal(t, "id-4", gen.New())
}

func TestSequence_Concurrent(t *testing.T) {
	gen := NewSequence("id")
	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := make(map[string]bool)

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := gen.New()
			mu.Lock()
			seen[id] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, seen, 50)
}
