package interp

import (
	"math/rand"
	"testing"

	"tickbench/internal/ast"
	"tickbench/internal/lexer"
	"tickbench/internal/parser"
	"tickbench/internal/sched"
)

// fakeHandle records EmplaceProcess/SetKnob calls without running a real
// scheduler, so tests can assert on interpreter behavior in isolation.
type fakeHandle struct {
	emplaced []emplacedCall
	knobs    map[string]int
}

type emplacedCall struct {
	name    string
	pid     sched.PID
	arrival sched.Tick
	events  []sched.Event
}

func newFakeHandle() *fakeHandle {
	return &fakeHandle{knobs: make(map[string]int)}
}

func (f *fakeHandle) EmplaceProcess(name string, pid sched.PID, arrival sched.Tick, events []sched.Event) {
	f.emplaced = append(f.emplaced, emplacedCall{name, pid, arrival, events})
}

func (f *fakeHandle) SetKnob(name string, value int) error {
	f.knobs[name] = value
	return nil
}

func parseSource(t *testing.T, src string) *ast.Ast {
	t.Helper()
	toks, err := lexer.Lex(src)
	if err != nil {
		t.Fatalf("lex error: %v", err)
	}
	tree, err := parser.Parse(toks)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	return tree
}

func TestRunSpawnProcess(t *testing.T) {
	h := newFakeHandle()
	in := New(h, nil, rand.New(rand.NewSource(1)))

	tree := parseSource(t, `spawn_process("A", 1, 0, [(Cpu, 3), (Io, 2)])`)
	if err := in.Run(tree); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(h.emplaced) != 1 {
		t.Fatalf("len(emplaced) = %d, want 1", len(h.emplaced))
	}
	call := h.emplaced[0]
	if call.name != "A" || call.pid != 1 || call.arrival != 0 {
		t.Fatalf("unexpected call: %+v", call)
	}
	if len(call.events) != 2 {
		t.Fatalf("len(events) = %d, want 2", len(call.events))
	}
	if call.events[0].Kind != sched.Cpu || call.events[0].Duration != 3 {
		t.Fatalf("event 0 = %+v", call.events[0])
	}
	if call.events[1].Kind != sched.Io || call.events[1].Duration != 2 {
		t.Fatalf("event 1 = %+v", call.events[1])
	}
	for _, e := range call.events {
		if e.ResourceUsage < 0.01 || e.ResourceUsage > 1 {
			t.Fatalf("resource usage %v out of [0.01, 1]", e.ResourceUsage)
		}
	}
}

func TestSpawnProcessCaseInsensitiveKind(t *testing.T) {
	h := newFakeHandle()
	in := New(h, nil, rand.New(rand.NewSource(1)))

	tree := parseSource(t, `spawn_process("A", 1, 0, [(CPU, 3), (iO, 2)])`)
	if err := in.Run(tree); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if h.emplaced[0].events[0].Kind != sched.Cpu {
		t.Fatalf("expected CPU to match case-insensitively")
	}
	if h.emplaced[0].events[1].Kind != sched.Io {
		t.Fatalf("expected iO to match case-insensitively")
	}
}

func TestSpawnProcessArityMismatch(t *testing.T) {
	h := newFakeHandle()
	in := New(h, nil, rand.New(rand.NewSource(1)))

	tree := parseSource(t, `spawn_process("A", 1, 0)`)
	err := in.Run(tree)
	if err == nil {
		t.Fatalf("expected an arity error")
	}
}

func TestSpawnProcessTypeMismatch(t *testing.T) {
	h := newFakeHandle()
	in := New(h, nil, rand.New(rand.NewSource(1)))

	tree := parseSource(t, `spawn_process(1, "A", 0, [(Cpu, 3)])`)
	err := in.Run(tree)
	if err == nil {
		t.Fatalf("expected a type mismatch error for argument 0")
	}
}

func TestUnknownBuiltinIsError(t *testing.T) {
	h := newFakeHandle()
	in := New(h, nil, rand.New(rand.NewSource(1)))

	tree := parseSource(t, `does_not_exist()`)
	if err := in.Run(tree); err == nil {
		t.Fatalf("expected an error for an unrecognized builtin")
	}
}

func TestConstantSetsKnob(t *testing.T) {
	h := newFakeHandle()
	in := New(h, nil, rand.New(rand.NewSource(1)))

	tree := parseSource(t, "max_arrival_time :: 20")
	if err := in.Run(tree); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if h.knobs[sched.KnobMaxArrivalTime] != 20 {
		t.Fatalf("knob not forwarded to handle: %v", h.knobs)
	}
	if in.knobs[sched.KnobMaxArrivalTime] != 20 {
		t.Fatalf("interpreter-local knob not updated: %v", in.knobs)
	}
}

func TestUnknownKnobIsError(t *testing.T) {
	s, err := sched.New(1, sched.FCFS{}, nil)
	if err != nil {
		t.Fatalf("sched.New: %v", err)
	}
	in := New(s, nil, rand.New(rand.NewSource(1)))

	tree := parseSource(t, "not_a_real_knob :: 5")
	if err := in.Run(tree); err == nil {
		t.Fatalf("expected an unknown-knob error")
	}
}

func TestForLoopSpawnsRandomProcesses(t *testing.T) {
	s, err := sched.New(1, sched.FCFS{}, nil)
	if err != nil {
		t.Fatalf("sched.New: %v", err)
	}
	in := New(s, nil, rand.New(rand.NewSource(42)))

	tree := parseSource(t, `
max_processes :: 50
max_arrival_time :: 20
max_single_event_duration :: 8
max_events_per_process :: 6
for 0..5 {
    spawn_random_process()
}
`)
	if err := in.Run(tree); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if s.Complete() {
		t.Fatalf("scheduler should hold admitted processes right after Run")
	}
}

func TestSpawnRandomProcessAvoidsDuplicatePids(t *testing.T) {
	h := newFakeHandle()
	in := New(h, nil, rand.New(rand.NewSource(7)))
	in.knobs[sched.KnobMaxProcesses] = 2
	in.knobs[sched.KnobMaxArrivalTime] = 5
	in.knobs[sched.KnobMaxEventsPerProcess] = 2
	in.knobs[sched.KnobMaxSingleEventDuration] = 3

	tree := parseSource(t, `
for 0..3 {
    spawn_random_process()
}
`)
	if err := in.Run(tree); err != nil {
		t.Fatalf("Run: %v", err)
	}

	seen := map[sched.PID]bool{}
	for _, call := range h.emplaced {
		if seen[call.pid] {
			t.Fatalf("pid %d used more than once across spawn_random_process calls", call.pid)
		}
		seen[call.pid] = true
	}
}

func TestVariableEvaluatesToItsLexeme(t *testing.T) {
	h := newFakeHandle()
	in := New(h, nil, rand.New(rand.NewSource(1)))

	tree := parseSource(t, "some_bare_name")
	if err := in.Run(tree); err != nil {
		t.Fatalf("Run: %v", err)
	}
	v, err := in.eval(tree, tree.Statements[0].Expr)
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	if v.Kind != StringValue || v.Str != "some_bare_name" {
		t.Fatalf("variable evaluated to %v, want String(%q)", v, "some_bare_name")
	}
}
