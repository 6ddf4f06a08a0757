package sched

// Core owns one CPU's three queues and its single running slot, per
// spec §3 "Scheduler state".
type Core struct {
	arrival *queue
	ready   *queue
	waiting *queue
	running *Process

	// cpuUsage is the head event's ResourceUsage while running is
	// non-empty, sampled once per tick (spec §4.4 phase 5).
	cpuUsage float64
}

func newCore() *Core {
	return &Core{
		arrival: newQueue(),
		ready:   newQueue(),
		waiting: newQueue(),
	}
}

// pidInUse reports whether pid is present in running, ready, or waiting
// for this core (spec §3 "pid is unique among running ∪ ready ∪ waiting").
func (c *Core) pidInUse(pid PID) bool {
	if c.running != nil && c.running.Pid == pid {
		return true
	}
	return c.ready.find(pid) >= 0 || c.waiting.find(pid) >= 0
}

// idle reports whether this core holds no live process at all.
func (c *Core) idle() bool {
	return c.running == nil && c.arrival.len() == 0 && c.ready.len() == 0 && c.waiting.len() == 0
}

// CPUUsage returns the core's most recently sampled CPU usage.
func (c *Core) CPUUsage() float64 {
	return c.cpuUsage
}
