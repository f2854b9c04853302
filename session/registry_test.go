package session

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/choi857/kinetic-simulator/errors"
)

func TestRegistry_OpenGetRemove(t *testing.T) {
	r := NewRegistry()

	e, err := r.Open("a")
	require.NoError(t, err)
	_, err = r.Open("a")
	assert.ErrorIs(t, err, errors.ErrInvalidData)

	got, ok := r.Get("a")
	require.True(t, ok)
	assert.Same(t, e, got)
	assert.Equal(t, 1, r.Len())

	sched := &fakeHandle{}
	require.NoError(t, e.Claim(testConfig()))
	require.NoError(t, e.SetSchedule(sched))

	r.Remove("a")
	r.Remove("a")
	assert.Equal(t, 0, r.Len())
	assert.Equal(t, StateClosed, e.State())
	assert.Equal(t, int32(1), sched.count(), "removal stops the schedule")
}

func TestRegistry_Fallback(t *testing.T) {
	r := NewRegistry()
	assert.Nil(t, r.Fallback())

	first, second := testConfig(), testConfig()
	r.SetFallback(first)
	r.SetFallback(second)
	r.SetFallback(nil)
	assert.Same(t, second, r.Fallback(), "last writer wins and nil is ignored")
}

func TestRegistry_CountsAndIDs(t *testing.T) {
	r := NewRegistry()
	for _, id := range []string{"c", "a", "b"} {
		_, err := r.Open(id)
		require.NoError(t, err)
	}
	e, _ := r.Get("b")
	require.NoError(t, e.Claim(testConfig()))

	assert.Equal(t, []string{"a", "b", "c"}, r.IDs())
	assert.Equal(t, map[State]int{StateAwaitingTemplate: 2, StateActive: 1}, r.CountByState())

	r.CloseAll()
	assert.Equal(t, 0, r.Len())
	assert.Equal(t, StateClosed, e.State())
}

func TestRegistry_Concurrent(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("conn-%d", i)
			e, err := r.Open(id)
			if !assert.NoError(t, err) {
				return
			}
			cfg := testConfig()
			assert.NoError(t, e.Claim(cfg))
			r.SetFallback(cfg)
			_ = r.Len()
			if i%2 == 0 {
				r.Remove(id)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 50, r.Len())
	assert.NotNil(t, r.Fallback())
}
