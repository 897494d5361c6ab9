package queue

import (
	"sync"
	"testing"

	"github.com/OCAP2/droneview/pkg/core"
	"github.com/stretchr/testify/assert"
)

func obs(id string, t float64) core.Observation {
	return core.Observation{Time: t, VehicleID: id}
}

func TestQueue_New(t *testing.T) {
	q := New[core.Observation]()
	assert.True(t, q.Empty())
	assert.Equal(t, 0, q.Len())
}

func TestQueue_PushKeepsOrder(t *testing.T) {
	q := New[core.Observation]()
	q.Push(obs("a", 0))
	q.Push(obs("b", 1), obs("c", 2))

	assert.Equal(t, 3, q.Len())
	assert.Equal(t, []core.Observation{obs("a", 0), obs("b", 1), obs("c", 2)}, q.Drain(0))
}

func TestQueue_Drain(t *testing.T) {
	q := New[core.Observation]()
	q.Push(obs("a", 0), obs("b", 1), obs("c", 2))

	batch := q.Drain(2)
	assert.Equal(t, []core.Observation{obs("a", 0), obs("b", 1)}, batch)
	assert.Equal(t, 1, q.Len())

	rest := q.Drain(0)
	assert.Equal(t, []core.Observation{obs("c", 2)}, rest)
	assert.True(t, q.Empty())
	assert.Empty(t, q.Drain(10))
}

func TestQueue_DrainDoesNotAlias(t *testing.T) {
	q := New[core.Observation]()
	q.Push(obs("a", 0), obs("b", 1))

	batch := q.Drain(1)
	q.Push(obs("c", 2))
	batch[0].VehicleID = "changed"

	assert.Equal(t, []core.Observation{obs("b", 1), obs("c", 2)}, q.Drain(0))
}

func TestQueue_Requeue(t *testing.T) {
	q := New[core.Observation]()
	q.Push(obs("a", 0), obs("b", 1))
	failed := q.Drain(0)
	q.Push(obs("c", 2))

	q.Requeue(failed)
	q.Requeue(nil)

	assert.Equal(t, []core.Observation{obs("a", 0), obs("b", 1), obs("c", 2)}, q.Drain(0))
}

func TestQueue_ConcurrentPush(t *testing.T) {
	q := New[int]()
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
