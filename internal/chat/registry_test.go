package chat

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistry(t *testing.T) {
	t.Run("unknown ids are not live", func(t *testing.T) {
		r := NewRegistry()
		assert.False(t, r.IsLive("thread_xyz"))
	})

	t.Run("added ids stay live", func(t *testing.T) {
		r := NewRegistry()
		r.Add("thread_001")
		assert.True(t, r.IsLive("thread_001"))
		// Repeated lookups never mutate state.
		for i := 0; i < 10; i++ {
			assert.True(t, r.IsLive("thread_001"))
		}
		assert.Equal(t, 1, r.Len())
	})

	t.Run("concurrent add and lookup", func(t *testing.T) {
		r := NewRegistry()
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(2)
			id := fmt.Sprintf("thread_%03d", i)
			go func() {
				defer wg.Done()
				r.Add(id)
			}()
			go func() {
				defer wg.Done()
				r.IsLive(id)
			}()
		}
		wg.Wait()
		assert.Equal(t, 50, r.Len())
	})
}
