package sched

// Policy is the pluggable decision function invoked per tick for any core
// whose running slot is empty (spec §4.5). It may move processes between
// a core's ready queue and its running slot, and may split a head event
// into a preempted tail. This is the language-neutral version of the
// teacher's strategy-struct policies (HermodGS, EDFMachine, …) — a named
// struct with a single entry point, rather than a bare function value.
type Policy interface {
	Name() string
	Apply(core *Core)
}

// FCFS is a no-op: the scheduler's own per-tick default fallback (§4.4
// phase 4) already implements first-come-first-served by popping the
// ready queue's head when the policy leaves running empty.
type FCFS struct{}

func (FCFS) Name() string { return "First Come First Served" }

func (FCFS) Apply(core *Core) {}

// DefaultQuantum is Round Robin's quantum when none is supplied.
const DefaultQuantum = 5

// RoundRobin runs each ready process for at most Quantum ticks before
// preempting it. A head event longer than the quantum is split: the head
// keeps the quantum slice, and the remainder is pushed back onto the
// front of Events so it resumes after the slice completes.
type RoundRobin struct {
	Quantum int
}

// NewRoundRobin returns a RoundRobin policy with the given quantum,
// falling back to DefaultQuantum for quantum <= 0.
func NewRoundRobin(quantum int) RoundRobin {
	if quantum <= 0 {
		quantum = DefaultQuantum
	}
	return RoundRobin{Quantum: quantum}
}

func (rr RoundRobin) Name() string { return "Round Robin" }

func (rr RoundRobin) Apply(core *Core) {
	if core.ready.len() == 0 {
		return
	}

	p := core.ready.deq()
	core.running = p

	head := p.Events[0]
	if head.Kind != Cpu {
		panic("invariant violated: ready-queue head must be a Cpu event")
	}
	if head.Duration <= 0 {
		panic("invariant violated: ready-queue head must have positive duration")
	}

	if head.Duration > rr.Quantum {
		slice := Event{Kind: Cpu, Duration: rr.Quantum, ResourceUsage: head.ResourceUsage}
		remainder := Event{Kind: Cpu, Duration: head.Duration - rr.Quantum, ResourceUsage: head.ResourceUsage}
		p.Events = append([]Event{slice, remainder}, p.Events[1:]...)
	}
}
