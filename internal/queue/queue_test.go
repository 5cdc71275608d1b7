package queue

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ascentops/autopilot/pkg/core"
)

func TestQueue_New(t *testing.T) {
	q := New[core.FlightSample](16)
	require.NotNil(t, q)
	assert.True(t, q.Empty())
	assert.Equal(t, 0, q.Len())

	_, ok := q.Last()
	assert.False(t, ok)
}

func TestQueue_PushAndLast(t *testing.T) {
	q := New[core.FlightSample](0)

	q.Push(core.FlightSample{Time: 1})
	q.Push(core.FlightSample{Time: 2}, core.FlightSample{Time: 3, Altitude: 120})

	assert.Equal(t, 3, q.Len())
	last, ok := q.Last()
	require.True(t, ok)
	assert.Equal(t, 3.0, last.Time)
	assert.Equal(t, 120.0, last.Altitude)
}

func TestQueue_SnapshotIsCopy(t *testing.T) {
	q := New[core.FlightSample](0)
	q.Push(core.FlightSample{Time: 1})

	snap := q.Snapshot()
	snap[0].Time = 99

	last, _ := q.Last()
	assert.Equal(t, 1.0, last.Time)
	assert.Equal(t, 1, q.Len())
}

func TestQueue_GetAndEmpty(t *testing.T) {
	q := New[core.FlightSample](0)
	q.Push(core.FlightSample{Time: 1}, core.FlightSample{Time: 2})

	items := q.GetAndEmpty()
	assert.Len(t, items, 2)
	assert.True(t, q.Empty())

	q.Push(core.FlightSample{Time: 3})
	assert.Equal(t, 1.0, items[0].Time, "drained slice must not alias new pushes")
	assert.Len(t, q.GetAndEmpty(), 1)
	assert.Empty(t, q.GetAndEmpty())
}

func TestQueue_ConcurrentPush(t *testing.T) {
	q := New[int](0)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				q.Push(n*100 + j)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1000, q.Len())
}
