// timer/timer.go
package timer

import (
	"container/heap"
	"sync"
	"time"
)

// DefaultTick 是调度精度
const DefaultTick = 100 * time.Millisecond

// Task is a scheduled callback. Interval > 0 makes it repeat.
type Task struct {
	ID       int64
	Execute  time.Time
	Interval time.Duration
	Callback func()
	index    int
}

type taskQueue []*Task

func (q taskQueue) Len() int { return len(q) }

func (q taskQueue) Less(i, j int) bool {
	return q[i].Execute.Before(q[j].Execute)
}

func (q taskQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *taskQueue) Push(x interface{}) {
	task := x.(*Task)
	task.index = len(*q)
	*q = append(*q, task)
}

func (q *taskQueue) Pop() interface{} {
	old := *q
	n := len(old)
	task := old[n-1]
	old[n-1] = nil
	task.index = -1
	*q = old[:n-1]
	return task
}

// TimerManager runs callbacks on their own goroutines once due.
type TimerManager struct {
	queue    taskQueue
	mutex    sync.Mutex
	nextID   int64
	tick     time.Duration
	done     chan struct{}
	stopOnce sync.Once
}

func NewTimerManager() *TimerManager {
	return NewTimerManagerWithTick(DefaultTick)
}

// NewTimerManagerWithTick starts a manager that checks the queue every tick.
func NewTimerManagerWithTick(tick time.Duration) *TimerManager {
	if tick <= 0 {
		tick = DefaultTick
	}
	m := &TimerManager{
		queue:  make(taskQueue, 0),
		nextID: 1,
		tick:   tick,
		done:   make(chan struct{}),
	}
	heap.Init(&m.queue)
	go m.process()
	return m
}

// AddTimer schedules callback after delay, then every interval if > 0.
func (m *TimerManager) AddTimer(delay time.Duration, interval time.Duration, callback func()) int64 {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	task := &Task{
		ID:       m.nextID,
		Execute:  time.Now().Add(delay),
		Interval: interval,
		Callback: callback,
	}
	m.nextID++

	heap.Push(&m.queue, task)
	return task.ID
}

// RemoveTimer cancels a task. Unknown ids are ignored.
func (m *TimerManager) RemoveTimer(id int64) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for i, task := range m.queue {
		if task.ID == id {
			heap.Remove(&m.queue, i)
			break
		}
	}
}

// Len returns the number of scheduled tasks.
func (m *TimerManager) Len() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.queue.Len()
}

// Stop halts scheduling. Callbacks already started keep running.
func (m *TimerManager) Stop() {
	m.stopOnce.Do(func() { close(m.done) })
}

func (m *TimerManager) process() {
	ticker := time.NewTicker(m.tick)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case now := <-ticker.C:
			for _, task := range m.due(now) {
				go task()
			}
		}
	}
}

// due pops every task scheduled at or before now and re-queues repeating ones.
func (m *TimerManager) due(now time.Time) []func() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	var out []func()
	for m.queue.Len() > 0 {
		task := m.queue[0]
		if task.Execute.After(now) {
			break
		}
		heap.Pop(&m.queue)
		out = append(out, task.Callback)

		if task.Interval > 0 {
			task.Execute = now.Add(task.Interval)
			heap.Push(&m.queue, task)
		}
	}
	return out
}
