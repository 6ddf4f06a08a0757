package interp

import (
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"tickbench/internal/ast"
	"tickbench/internal/sched"
)

// SchedulerHandle is the capability set the interpreter depends on (spec
// §6.1): emplace a process, or set a configuration knob. sched.Scheduler
// satisfies this directly.
type SchedulerHandle interface {
	EmplaceProcess(name string, pid sched.PID, arrival sched.Tick, events []sched.Event)
	SetKnob(name string, value int) error
}

// Error is an interpretation failure: a type mismatch inside a builtin, an
// arity mismatch, an unknown knob, or a number-parse failure (spec §7
// "InterpretError").
type Error struct {
	Msg  string
	Span ast.ExpressionID
}

func (e *Error) Error() string {
	return fmt.Sprintf("[ERROR] (interpreter) %s", e.Msg)
}

// Default knob values used when a script never sets one, chosen to match
// the teacher's own default constants (utils.go's PROC_TYPE ranges) rather
// than arbitrary numbers.
const (
	defaultMaxProcesses           = 20
	defaultMaxEventsPerProcess    = 4
	defaultMaxSingleEventDuration = 10
	defaultMaxArrivalTime         = 20
)

// Interpreter walks an Ast against a SchedulerHandle. It is single-use per
// evaluation: the pid-uniqueness tracking for spawn_random_process resets
// each time Run is called, mirroring the teacher's world.rand being owned
// for the duration of one simulation (main.go).
type Interpreter struct {
	handle SchedulerHandle
	logger *logrus.Logger
	rng    *rand.Rand

	knobs    map[string]int
	usedPids map[int]bool
}

// New builds an Interpreter targeting handle. A nil rng seeds its own from
// the wall clock, the same pattern as the teacher's world.rand
// (main.go: rand.New(rand.NewSource(time.Now().UnixNano()))); pass a
// seeded *rand.Rand for reproducible runs (spec §5 open question).
func New(handle SchedulerHandle, logger *logrus.Logger, rng *rand.Rand) *Interpreter {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Interpreter{
		handle: handle,
		logger: logger,
		rng:    rng,
		knobs: map[string]int{
			sched.KnobMaxProcesses:           defaultMaxProcesses,
			sched.KnobMaxEventsPerProcess:    defaultMaxEventsPerProcess,
			sched.KnobMaxSingleEventDuration: defaultMaxSingleEventDuration,
			sched.KnobMaxArrivalTime:         defaultMaxArrivalTime,
		},
	}
}

// Run evaluates every top-level statement of tree in order, discarding
// each statement's Value, and returns the first error encountered
// (spec §4.3 "returns a boolean success status").
func (in *Interpreter) Run(tree *ast.Ast) error {
	in.usedPids = make(map[int]bool)
	for _, stmt := range tree.Statements {
		if _, err := in.eval(tree, stmt.Expr); err != nil {
			return err
		}
	}
	return nil
}

func (in *Interpreter) eval(tree *ast.Ast, id ast.ExpressionID) (Value, error) {
	expr := tree.Expr(id)

	switch expr.Kind {
	case ast.Number:
		n, err := strconv.ParseFloat(expr.Token.Lexeme, 64)
		if err != nil {
			return Value{}, &Error{Msg: fmt.Sprintf("cannot parse %q as a number", expr.Token.Lexeme), Span: id}
		}
		return Number(n), nil

	case ast.StringLiteral:
		return String(expr.Token.Lexeme), nil

	case ast.Variable:
		return String(expr.Token.Lexeme), nil

	case ast.List, ast.Tuple:
		elems := make([]Value, len(expr.Elements))
		for i, elemID := range expr.Elements {
			v, err := in.eval(tree, elemID)
			if err != nil {
				return Value{}, err
			}
			elems[i] = v
		}
		return List(elems), nil

	case ast.Range:
		start, err := strconv.ParseFloat(expr.RangeStart.Lexeme, 64)
		if err != nil {
			return Value{}, &Error{Msg: fmt.Sprintf("cannot parse range start %q", expr.RangeStart.Lexeme), Span: id}
		}
		end, err := strconv.ParseFloat(expr.RangeEnd.Lexeme, 64)
		if err != nil {
			return Value{}, &Error{Msg: fmt.Sprintf("cannot parse range end %q", expr.RangeEnd.Lexeme), Span: id}
		}
		return List([]Value{Number(start), Number(end)}), nil

	case ast.For:
		rangeVal, err := in.eval(tree, expr.RangeExpr)
		if err != nil {
			return Value{}, err
		}
		start := int(rangeVal.List[0].Num)
		end := int(rangeVal.List[1].Num)
		for i := start; i < end; i++ {
			for _, bodyID := range expr.Body {
				if _, err := in.eval(tree, bodyID); err != nil {
					return Value{}, err
				}
			}
		}
		return Unit(), nil

	case ast.Constant:
		val, err := in.eval(tree, expr.Value)
		if err != nil {
			return Value{}, err
		}
		if val.Kind != NumberValue {
			return Value{}, &Error{Msg: fmt.Sprintf("configuration knob %q requires a Number value, got %s", expr.Name.Lexeme, val.Kind), Span: id}
		}
		if err := in.handle.SetKnob(expr.Name.Lexeme, int(val.Num)); err != nil {
			return Value{}, &Error{Msg: err.Error(), Span: id}
		}
		in.knobs[expr.Name.Lexeme] = int(val.Num)
		return Unit(), nil

	case ast.Call:
		return in.call(tree, expr)

	default:
		return Value{}, &Error{Msg: fmt.Sprintf("unhandled expression kind %s", expr.Kind), Span: id}
	}
}

func (in *Interpreter) call(tree *ast.Ast, expr ast.Expression) (Value, error) {
	name := expr.Identifier.Lexeme
	switch name {
	case "spawn_process":
		return in.spawnProcess(tree, expr)
	case "spawn_random_process":
		return in.spawnRandomProcess(expr)
	default:
		return Value{}, &Error{Msg: fmt.Sprintf("unknown builtin %q (no user-defined functions)", name)}
	}
}

// spawnProcess implements spec §4.3's `spawn_process(name, pid, arrival,
// events)`.
func (in *Interpreter) spawnProcess(tree *ast.Ast, expr ast.Expression) (Value, error) {
	const arity = 4
	if len(expr.Arguments) != arity {
		return Value{}, &Error{Msg: fmt.Sprintf("spawn_process expects %d arguments, got %d", arity, len(expr.Arguments))}
	}

	args := make([]Value, arity)
	for i, argID := range expr.Arguments {
		v, err := in.eval(tree, argID)
		if err != nil {
			return Value{}, err
		}
		args[i] = v
	}

	name, err := expectString(args, 0, "spawn_process")
	if err != nil {
		return Value{}, err
	}
	pid, err := expectNumber(args, 1, "spawn_process")
	if err != nil {
		return Value{}, err
	}
	arrival, err := expectNumber(args, 2, "spawn_process")
	if err != nil {
		return Value{}, err
	}
	if args[3].Kind != ListValue {
		return Value{}, &Error{Msg: fmt.Sprintf("spawn_process argument 3 must be a List, got %s", args[3].Kind)}
	}

	events, err := in.eventsFromTuples(args[3].List, "spawn_process")
	if err != nil {
		return Value{}, err
	}

	in.handle.EmplaceProcess(name, sched.PID(int(pid)), sched.Tick(int(arrival)), events)
	return Unit(), nil
}

// spawnRandomProcess implements spec §4.3's zero-arity random-workload
// builtin, drawing from the four configured knobs.
func (in *Interpreter) spawnRandomProcess(expr ast.Expression) (Value, error) {
	if len(expr.Arguments) != 0 {
		return Value{}, &Error{Msg: fmt.Sprintf("spawn_random_process expects 0 arguments, got %d", len(expr.Arguments))}
	}

	maxProcesses := in.knobs[sched.KnobMaxProcesses]
	maxArrival := in.knobs[sched.KnobMaxArrivalTime]
	maxEvents := in.knobs[sched.KnobMaxEventsPerProcess]
	maxDuration := in.knobs[sched.KnobMaxSingleEventDuration]

	pid := in.nextUnusedPid(maxProcesses)
	arrival := in.rng.Intn(maxArrival + 1)

	eventsCount := 1 + in.rng.Intn(max(1, maxEvents))
	events := make([]sched.Event, eventsCount)
	for i := range events {
		kind := sched.Cpu
		if in.rng.Intn(2) == 1 {
			kind = sched.Io
		}
		duration := 1 + in.rng.Intn(max(1, maxDuration))
		events[i] = sched.Event{Kind: kind, Duration: duration, ResourceUsage: in.resourceUsage()}
	}

	in.handle.EmplaceProcess("Process", sched.PID(pid), sched.Tick(arrival), events)
	return Unit(), nil
}

// nextUnusedPid draws uniformly in [0, ceiling] avoiding pids already
// chosen during this Run (spec §4.3 "avoiding pids already chosen in this
// script"). If every pid in range is exhausted, it gives up and returns
// ceiling + 1 + len(usedPids) so the run can still make progress rather
// than looping forever.
func (in *Interpreter) nextUnusedPid(ceiling int) int {
	if ceiling < 0 {
		ceiling = 0
	}
	for attempt := 0; attempt <= ceiling; attempt++ {
		candidate := in.rng.Intn(ceiling + 1)
		if !in.usedPids[candidate] {
			in.usedPids[candidate] = true
			return candidate
		}
	}
	for candidate := 0; candidate <= ceiling; candidate++ {
		if !in.usedPids[candidate] {
			in.usedPids[candidate] = true
			return candidate
		}
	}
	fallback := ceiling + 1 + len(in.usedPids)
	in.usedPids[fallback] = true
	return fallback
}

// resourceUsage draws max(0.01, uniform(0,1)) per spec §4.3.
func (in *Interpreter) resourceUsage() float64 {
	return math.Max(0.01, in.rng.Float64())
}

// eventsFromTuples validates that raw is a list of (String, Number) tuples
// and converts each into a sched.Event, matching kind case-insensitively
// against "cpu"/"io" (spec §4.3).
func (in *Interpreter) eventsFromTuples(raw []Value, builtin string) ([]sched.Event, error) {
	events := make([]sched.Event, len(raw))
	for i, tup := range raw {
		if tup.Kind != ListValue || len(tup.List) != 2 {
			return nil, &Error{Msg: fmt.Sprintf("%s argument 3 element %d must be a (String, Number) tuple", builtin, i)}
		}
		kindVal, durVal := tup.List[0], tup.List[1]
		if kindVal.Kind != StringValue {
			return nil, &Error{Msg: fmt.Sprintf("%s argument 3 element %d position 0 must be a String, got %s", builtin, i, kindVal.Kind)}
		}
		if durVal.Kind != NumberValue {
			return nil, &Error{Msg: fmt.Sprintf("%s argument 3 element %d position 1 must be a Number, got %s", builtin, i, durVal.Kind)}
		}

		var kind sched.EventKind
		switch strings.ToLower(kindVal.Str) {
		case "cpu":
			kind = sched.Cpu
		case "io":
			kind = sched.Io
		default:
			return nil, &Error{Msg: fmt.Sprintf("%s argument 3 element %d has unrecognized event kind %q (want cpu or io)", builtin, i, kindVal.Str)}
		}

		events[i] = sched.Event{Kind: kind, Duration: int(durVal.Num), ResourceUsage: in.resourceUsage()}
	}
	return events, nil
}

func expectString(args []Value, idx int, builtin string) (string, error) {
	if args[idx].Kind != StringValue {
		return "", &Error{Msg: fmt.Sprintf("%s argument %d must be a String, got %s", builtin, idx, args[idx].Kind)}
	}
	return args[idx].Str, nil
}

func expectNumber(args []Value, idx int, builtin string) (float64, error) {
	if args[idx].Kind != NumberValue {
		return 0, &Error{Msg: fmt.Sprintf("%s argument %d must be a Number, got %s", builtin, idx, args[idx].Kind)}
	}
	return args[idx].Num, nil
}
