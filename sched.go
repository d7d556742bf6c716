package wmedium

//
// Virtual-time job scheduler
//

import "container/heap"

// Job is a unit of work scheduled at an absolute virtual time. The
// zero value is valid; fill in Start and Callback before adding it
// to a [Scheduler].
type Job struct {
	// Start is the absolute virtual time, in microseconds, at which
	// the job should fire.
	Start uint64

	// Name labels the job in log messages.
	Name string

	// Callback runs when the job fires.
	Callback func(job *Job)

	// seq breaks ties between jobs with equal Start: jobs fire in
	// insertion order, which keeps the schedule stable.
	seq uint64

	// index is the heap index while the job is scheduled.
	index int

	// scheduled tells Remove whether the job is in the heap.
	scheduled bool
}

// Pending reports whether the job is currently scheduled.
func (job *Job) Pending() bool {
	return job.scheduled
}

// Scheduler orders jobs by absolute virtual time. The zero value is
// invalid; use [NewScheduler] to construct. The scheduler is not
// safe for concurrent use: the engine owns it and every mutation
// happens on the engine goroutine.
type Scheduler struct {
	// now is the current virtual time in microseconds.
	now uint64

	// jobs is the pending-job heap.
	jobs jobHeap

	// seq is the insertion counter for tie breaking.
	seq uint64
}

// NewScheduler creates a [Scheduler] with virtual time zero.
func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// Now returns the current virtual time in microseconds.
func (s *Scheduler) Now() uint64 {
	return s.now
}

// SetNow moves virtual time forward to the given instant. Moving
// backwards is ignored: virtual time is monotonic.
func (s *Scheduler) SetNow(now uint64) {
	if now > s.now {
		s.now = now
	}
}

// Add schedules a job. Jobs scheduled in the past fire without moving
// virtual time backwards. Jobs fire in start order; jobs with equal
// start fire in insertion order.
func (s *Scheduler) Add(job *Job) {
	s.seq++
	job.seq = s.seq
	heap.Push(&s.jobs, job)
}

// Remove deregisters a job that has not fired yet. Removing a job
// that is not scheduled is a no-op.
func (s *Scheduler) Remove(job *Job) {
	if job.scheduled {
		heap.Remove(&s.jobs, job.index)
	}
}

// Peek returns the next job to fire without running it, or nil when
// no job is pending.
func (s *Scheduler) Peek() *Job {
	if len(s.jobs) == 0 {
		return nil
	}
	return s.jobs[0]
}

// RunNext pops the earliest job, advances virtual time to its start,
// and runs its callback. It reports whether a job ran.
func (s *Scheduler) RunNext() bool {
	if len(s.jobs) == 0 {
		return false
	}
	job := heap.Pop(&s.jobs).(*Job)
	s.SetNow(job.Start)
	job.Callback(job)
	return true
}

// RunDue runs every job whose start time is not after the given
// instant, then advances virtual time to that instant. It returns
// the number of jobs that ran.
func (s *Scheduler) RunDue(now uint64) int {
	count := 0
	for len(s.jobs) > 0 && s.jobs[0].Start <= now {
		s.RunNext()
		count++
	}
	s.SetNow(now)
	return count
}

// jobHeap implements [heap.Interface] ordered by (Start, seq).
type jobHeap []*Job

func (h jobHeap) Len() int {
	return len(h)
}

func (h jobHeap) Less(i, j int) bool {
	if h[i].Start != h[j].Start {
		return h[i].Start < h[j].Start
	}
	return h[i].seq < h[j].seq
}

func (h jobHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *jobHeap) Push(x any) {
	job := x.(*Job)
	job.index = len(*h)
	job.scheduled = true
	*h = append(*h, job)
}

func (h *jobHeap) Pop() any {
	old := *h
	n := len(old)
	job := old[n-1]
	old[n-1] = nil
	job.scheduled = false
	*h = old[:n-1]
	return job
}
