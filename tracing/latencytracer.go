package tracing

import (
	"sync"

	"github.com/sarchlab/bgas/sim"
)

// LatencyTracer measures how long the tasks selected by a filter take. It
// keeps the count, the sum and the maximum of the task durations. If the
// execution of two tasks overlaps, both durations are counted.
type LatencyTracer struct {
	timeTeller    sim.TimeTeller
	filter        TaskFilter
	lock          sync.Mutex
	inflightTasks map[string]Task

	count     uint64
	totalTime sim.VTimeInSec
	maxTime   sim.VTimeInSec
}

// NewLatencyTracer creates a new LatencyTracer
func NewLatencyTracer(
	timeTeller sim.TimeTeller,
	filter TaskFilter,
) *LatencyTracer {
	return &LatencyTracer{
		timeTeller:    timeTeller,
		filter:        filter,
		inflightTasks: make(map[string]Task),
	}
}

// StartTask records the task start time
func (t *LatencyTracer) StartTask(task Task) {
	if !t.filter(task) {
		return
	}

	task.StartTime = t.timeTeller.CurrentTime()

	t.lock.Lock()
	t.inflightTasks[task.ID] = task
	t.lock.Unlock()
}

// StepTask does nothing
func (t *LatencyTracer) StepTask(_ Task) {}

// EndTask records the end of the task
func (t *LatencyTracer) EndTask(task Task) {
	now := t.timeTeller.CurrentTime()

	t.lock.Lock()
	defer t.lock.Unlock()

	originalTask, ok := t.inflightTasks[task.ID]
	if !ok {
		return
	}

	duration := now - originalTask.StartTime
	t.totalTime += duration
	t.count++

	if duration > t.maxTime {
		t.maxTime = duration
	}

	delete(t.inflightTasks, task.ID)
}

// Count returns the number of completed tasks.
func (t *LatencyTracer) Count() uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.count
}

// TotalTime returns the sum of the durations of the completed tasks.
func (t *LatencyTracer) TotalTime() sim.VTimeInSec {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.totalTime
}

// AverageTime returns the average duration of the completed tasks.
func (t *LatencyTracer) AverageTime() sim.VTimeInSec {
	t.lock.Lock()
	defer t.lock.Unlock()

	if t.count == 0 {
		return 0
	}

	return t.totalTime / sim.VTimeInSec(t.count)
}

// MaxTime returns the longest duration among the completed tasks.
func (t *LatencyTracer) MaxTime() sim.VTimeInSec {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.maxTime
}

// InflightCount returns the number of tasks that started but not ended.
func (t *LatencyTracer) InflightCount() int {
	t.lock.Lock()
	defer t.lock.Unlock()

	return len(t.inflightTasks)
}
