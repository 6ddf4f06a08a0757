package sched

import (
	"fmt"

	"github.com/markphelps/optional"
)

// Process is a client workload: a name, a pid, an arrival tick, and an
// ordered sequence of events. The scheduler exclusively owns every
// Process it has admitted (spec §3 "Ownership"); there is no shared
// ownership here, unlike the teacher's reference-counted Proc.
type Process struct {
	Name    string
	Pid     PID
	Arrival Tick
	Events  []Event

	// StartTime is set at most once, the tick at which the process first
	// enters ready (from arrival, or from waiting when its first event is
	// Io). FinishTime is set at most once, the tick
	// at which its last event completes. Both model spec §3's "optional
	// tick" with an explicit Present()/Set() API instead of a sentinel.
	StartTime  optional.Int
	FinishTime optional.Int
}

func newProcess(name string, pid PID, arrival Tick, events []Event) *Process {
	return &Process{
		Name:    name,
		Pid:     pid,
		Arrival: arrival,
		Events:  events,
	}
}

func (p *Process) String() string {
	started := "-"
	if v, err := p.StartTime.Get(); err == nil {
		started = fmt.Sprintf("%d", v)
	}
	finished := "-"
	if v, err := p.FinishTime.Get(); err == nil {
		finished = fmt.Sprintf("%d", v)
	}
	return fmt.Sprintf("{%s pid=%d arrival=%d started=%s finished=%s events=%v}",
		p.Name, p.Pid, p.Arrival, started, finished, p.Events)
}

// IsEmpty reports whether the process has no more events, i.e. it has
// terminated and belongs only in the finished list (spec §3 invariant).
func (p *Process) IsEmpty() bool {
	return len(p.Events) == 0
}

// Head returns the process's current head event. It must not be called
// on an empty process.
func (p *Process) Head() *Event {
	return &p.Events[0]
}

// PopHead removes the head event, which must already be at duration 0.
func (p *Process) PopHead() {
	p.Events = p.Events[1:]
}

// markStartedAt sets StartTime the first time it is called; later calls
// are no-ops, matching spec §9's pinned "set once, never cleared" choice.
func (p *Process) markStartedAt(t Tick) {
	if !p.StartTime.Present() {
		p.StartTime.Set(int(t))
	}
}

// markFinishedAt sets FinishTime; callers only invoke this once, at
// termination, so no Present() guard is required here.
func (p *Process) markFinishedAt(t Tick) {
	p.FinishTime.Set(int(t))
}

// WaitingTime returns start_time - arrival, or 0 if the process never
// started (a process whose events are all Io never enters ready, so it
// finishes with no start_time).
func (p *Process) WaitingTime() int {
	start, err := p.StartTime.Get()
	if err != nil {
		return 0
	}
	return start - int(p.Arrival)
}

// TurnaroundTime returns finish_time - arrival.
func (p *Process) TurnaroundTime() int {
	finish, err := p.FinishTime.Get()
	if err != nil {
		return 0
	}
	return finish - int(p.Arrival)
}
