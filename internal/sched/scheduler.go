package sched

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// Knob names recognized by SetKnob (spec §4.3 "Constant").
const (
	KnobMaxProcesses           = "max_processes"
	KnobMaxEventsPerProcess    = "max_events_per_process"
	KnobMaxSingleEventDuration = "max_single_event_duration"
	KnobMaxArrivalTime         = "max_arrival_time"
)

// Scheduler owns every admitted Process across its cores and advances
// them one tick at a time under a pluggable Policy (spec §4.4).
//
// Verbose, when set, makes Step log Dump()'s queue snapshot after every
// tick.
type Scheduler struct {
	cores  []*Core
	timer  Tick
	policy Policy

	finished              []*Process
	previousFinishedCount int
	throughput            float64

	nextAdmitCore int
	knobs         map[string]int

	logger  *logrus.Logger
	Verbose bool
}

// New builds a Scheduler with numCores cores running the given policy;
// numCores outside [1, MaxCores] is rejected with an error. A nil logger falls back to the package's
// standard logrus logger.
func New(numCores int, policy Policy, logger *logrus.Logger) (*Scheduler, error) {
	if numCores < 1 || numCores > MaxCores {
		return nil, fmt.Errorf("sched: numCores must be in [1, %d], got %d", MaxCores, numCores)
	}
	if policy == nil {
		policy = FCFS{}
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	cores := make([]*Core, numCores)
	for i := range cores {
		cores[i] = newCore()
	}

	return &Scheduler{
		cores:  cores,
		policy: policy,
		knobs:  make(map[string]int),
		logger: logger,
	}, nil
}

// Cores exposes the underlying per-core state for read access by metrics
// and by the driver boundary's snapshotting.
func (s *Scheduler) Cores() []*Core { return s.cores }

// Timer is the current tick.
func (s *Scheduler) Timer() Tick { return s.timer }

// Finished returns the processes that have completed all of their events.
func (s *Scheduler) Finished() []*Process { return s.finished }

// Throughput is |finished| / timer at the last completed tick.
func (s *Scheduler) Throughput() float64 { return s.throughput }

// PreviousFinishedCount is |finished| as recorded at the end of the most
// recent Step, so between steps it equals len(Finished()) (spec §4.4
// "update previous_finished_count").
func (s *Scheduler) PreviousFinishedCount() int { return s.previousFinishedCount }

// Dump renders every core's queue state for debugging. Callers gate this
// behind Verbose themselves.
func (s *Scheduler) Dump() string {
	var b strings.Builder
	fmt.Fprintf(&b, "tick=%d policy=%s finished=%d\n", s.timer, s.policy.Name(), len(s.finished))
	for i, c := range s.cores {
		fmt.Fprintf(&b, "core %d: running=%v ready=%d waiting=%d arrival=%d cpu_usage=%.2f\n",
			i, c.running, c.ready.len(), c.waiting.len(), c.arrival.len(), c.cpuUsage)
	}
	return b.String()
}

// PolicyName exposes the active policy's name for metrics files (spec §6.3).
func (s *Scheduler) PolicyName() string { return s.policy.Name() }

// SwitchPolicy replaces the active policy without disturbing any queue.
func (s *Scheduler) SwitchPolicy(p Policy) {
	if p == nil {
		return
	}
	s.logger.WithFields(logrus.Fields{"from": s.policy.Name(), "to": p.Name()}).Info("switching scheduling policy")
	s.policy = p
}

// SetKnob implements the scheduler-handle contract (spec §6.1) consumed
// by the interpreter's Constant evaluation.
func (s *Scheduler) SetKnob(name string, value int) error {
	switch name {
	case KnobMaxProcesses, KnobMaxEventsPerProcess, KnobMaxSingleEventDuration, KnobMaxArrivalTime:
		s.knobs[name] = value
		return nil
	default:
		return fmt.Errorf(
			"[ERROR] (interpreter) unknown configuration knob %q (recognized: %s, %s, %s, %s)",
			name, KnobMaxProcesses, KnobMaxEventsPerProcess, KnobMaxSingleEventDuration, KnobMaxArrivalTime,
		)
	}
}

// Knob returns a previously configured knob value, and whether it was set.
func (s *Scheduler) Knob(name string) (int, bool) {
	v, ok := s.knobs[name]
	return v, ok
}

// EmplaceProcess admits name/pid/arrival/events into the scheduler,
// round-robining across cores (spec §3 "Admission round-robins across
// cores at emplace_process time"). The process sits in its core's
// arrival queue until Step reaches tick == arrival.
func (s *Scheduler) EmplaceProcess(name string, pid PID, arrival Tick, events []Event) {
	core := s.cores[s.nextAdmitCore]
	s.nextAdmitCore = (s.nextAdmitCore + 1) % len(s.cores)
	core.arrival.enq(newProcess(name, pid, arrival, events))
}

// Complete reports whether every queue and every running slot is empty.
func (s *Scheduler) Complete() bool {
	for _, c := range s.cores {
		if !c.idle() {
			return false
		}
	}
	return true
}

// Restart resets the timer, empties every queue, and clears metrics.
// Previously admitted processes are not replayed — the driver re-runs
// the workload script to repopulate the scheduler (spec §4.4 "restart").
func (s *Scheduler) Restart() {
	for i := range s.cores {
		s.cores[i] = newCore()
	}
	s.timer = 0
	s.finished = nil
	s.previousFinishedCount = 0
	s.throughput = 0
	s.nextAdmitCore = 0
	s.logger.Info("scheduler restarted")
}

// dispatchByFirstEvent routes p into core's ready or waiting queue based
// on the kind of its (new) head event, setting StartTime on first CPU
// entry. p.Events must be non-empty.
func (s *Scheduler) dispatchByFirstEvent(core *Core, p *Process, tick Tick) {
	switch p.Events[0].Kind {
	case Cpu:
		p.markStartedAt(tick)
		core.ready.enq(p)
	case Io:
		core.waiting.enq(p)
	default:
		panic("invariant violated: unreachable EventKind in dispatchByFirstEvent")
	}
}

// Step advances the simulation by one tick, running the five fixed-order
// phases (spec §4.4) across cores in ascending index order.
func (s *Scheduler) Step() {
	for _, core := range s.cores {
		s.admitArrivals(core)
		s.tickWaiting(core)
		s.tickRunning(core)
		s.runPolicy(core)
		s.sampleUsage(core)
	}

	if s.timer > 0 {
		s.throughput = float64(len(s.finished)) / float64(s.timer)
	} else {
		s.throughput = 0
	}
	s.previousFinishedCount = len(s.finished)
	s.timer++

	if s.Verbose {
		s.logger.Debug(s.Dump())
	}
}

// admitArrivals is phase 1: sidetrack_processes.
func (s *Scheduler) admitArrivals(core *Core) {
	remaining := make([]*Process, 0, core.arrival.len())
	for _, p := range core.arrival.procs {
		if p.Arrival != s.timer {
			remaining = append(remaining, p)
			continue
		}

		if core.pidInUse(p.Pid) {
			s.logger.WithFields(logrus.Fields{"pid": p.Pid, "name": p.Name}).
				Warn("[ERROR] (scheduler) duplicate pid at admission, dropping process")
			continue
		}
		if p.IsEmpty() {
			s.logger.WithFields(logrus.Fields{"pid": p.Pid, "name": p.Name}).
				Warn("[ERROR] (scheduler) process has no events, dropping process")
			continue
		}

		s.dispatchByFirstEvent(core, p, s.timer)
	}
	core.arrival.procs = remaining
}

// tickWaiting is phase 2: update_waiting_list. Promotions are staged into
// toReady and the surviving entries into stillWaiting, both applied after
// the scan (completions go straight to s.finished, a different slice), so
// surgery on the queue being iterated never happens mid-scan (spec §4.4 phase 2,
// §9 "Manual queue surgery during iteration").
func (s *Scheduler) tickWaiting(core *Core) {
	stillWaiting := make([]*Process, 0, core.waiting.len())
	var toReady []*Process

	for _, p := range core.waiting.procs {
		head := p.Head()
		if head.Kind != Io {
			panic("invariant violated: waiting-queue head must be an Io event")
		}
		head.Duration--

		if head.Duration > 0 {
			stillWaiting = append(stillWaiting, p)
			continue
		}

		p.PopHead()
		if p.IsEmpty() {
			p.markFinishedAt(s.timer)
			s.finished = append(s.finished, p)
			continue
		}

		if p.Events[0].Kind == Io {
			stillWaiting = append(stillWaiting, p)
		} else {
			toReady = append(toReady, p)
		}
	}

	core.waiting.procs = stillWaiting
	for _, p := range toReady {
		p.markStartedAt(s.timer)
		core.ready.enq(p)
	}
}

// tickRunning is phase 3: update_running.
func (s *Scheduler) tickRunning(core *Core) {
	p := core.running
	if p == nil {
		return
	}

	head := p.Head()
	if head.Kind != Cpu {
		panic("invariant violated: running process must be on a Cpu event")
	}
	head.Duration--

	if head.Duration == 0 {
		p.PopHead()
		if p.IsEmpty() {
			p.markFinishedAt(s.timer)
			s.finished = append(s.finished, p)
		} else {
			s.dispatchByFirstEvent(core, p, s.timer)
		}
		core.running = nil
	}
}

// runPolicy is phase 4: consult the policy, then fall back to FCFS.
func (s *Scheduler) runPolicy(core *Core) {
	if core.running != nil {
		return
	}
	s.policy.Apply(core)
	if core.running == nil && core.ready.len() > 0 {
		core.running = core.ready.deq()
	}
}

// sampleUsage is phase 5.
func (s *Scheduler) sampleUsage(core *Core) {
	if s.Complete() {
		core.cpuUsage = 0
		return
	}
	if core.running != nil && len(core.running.Events) > 0 {
		core.cpuUsage = core.running.Events[0].ResourceUsage
	}
}
