package reactor

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncDispatcherRunsInline(t *testing.T) {
	d := NewSyncDispatcher()
	t.Cleanup(func() { _ = d.Close() })

	ran := false
	d.Schedule(func() { ran = true })

	assert.True(t, ran, "sync dispatcher must execute before Schedule returns")
}

func TestGoroutineDispatcherRunsConcurrently(t *testing.T) {
	d := NewGoroutineDispatcher()
	t.Cleanup(func() { _ = d.Close() })

	var wg sync.WaitGroup
	var count atomic.Int64
	const tasks = 50

	wg.Add(tasks)
	for i := 0; i < tasks; i++ {
		d.Schedule(func() {
			count.Add(1)
			wg.Done()
		})
	}
	wg.Wait()

	assert.Equal(t, int64(tasks), count.Load())
}

func TestRingBufferDispatcherPreservesOrder(t *testing.T) {
	d := NewRingBufferDispatcher(0)

	var mu sync.Mutex
	var got []int
	var wg sync.WaitGroup
	const tasks = 100

	wg.Add(tasks)
	for i := 0; i < tasks; i++ {
		d.Schedule(func() {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
			wg.Done()
		})
	}
	wg.Wait()
	require.NoError(t, d.Close())

	require.Len(t, got, tasks)
	for i, v := range got {
		assert.Equal(t, i, v, "tasks must execute in scheduling order")
	}
}

func TestRingBufferDispatcherCloseDrainsQueue(t *testing.T) {
	d := NewRingBufferDispatcher(0)

	var count atomic.Int64
	const tasks = 20
	for i := 0; i < tasks; i++ {
		d.Schedule(func() {
			time.Sleep(time.Millisecond)
			count.Add(1)
		})
	}

	require.NoError(t, d.Close())
	assert.Equal(t, int64(tasks), count.Load(), "Close must drain queued tasks")
}

func TestRingBufferDispatcherBackpressure(t *testing.T) {
	d := NewRingBufferDispatcher(1)
	t.Cleanup(func() { _ = d.Close() })

	release := make(chan struct{})
	started := make(chan struct{})
	d.Schedule(func() {
		close(started)
		<-release
	})
	<-started

	// Fill the single slot, then verify the next Schedule blocks until the
	// worker frees it.
	d.Schedule(func() {})

	blocked := make(chan struct{})
	go func() {
		d.Schedule(func() {})
		close(blocked)
	}()

	select {
	case <-blocked:
		t.Fatal("Schedule should block while the buffer is full")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-blocked:
	case <-time.After(time.Second):
		t.Fatal("Schedule should unblock once the worker drains the buffer")
	}
}

func TestTaskQueuePushPop(t *testing.T) {
	q := newTaskQueue(2)
	done := make(chan struct{})

	require.NoError(t, q.Push(done, func() {}))
	require.NoError(t, q.Push(done, func() {}))
	assert.Equal(t, 2, q.Len())

	_, ok := q.TryPop()
	assert.True(t, ok)
	_, ok = q.TryPop()
	assert.True(t, ok)
	_, ok = q.TryPop()
	assert.False(t, ok, "empty queue must not pop")
}

func TestTaskQueuePushAfterClose(t *testing.T) {
	q := newTaskQueue(1)
	done := make(chan struct{})

	require.NoError(t, q.Push(done, func() {}))
	close(done)

	err := q.Push(done, func() {})
	assert.ErrorIs(t, err, ErrDispatcherClosed)
}
