// Package driver implements the headless event loop and metrics-file
// writer that sit outside the core (spec §1 "Out of scope", §6.4). A GUI
// driver would satisfy the same contract against the same sched.Scheduler;
// this package only supplies the non-graphical one.
package driver

import (
	"bufio"
	"fmt"
	"math/rand"
	"os"

	"github.com/sirupsen/logrus"

	"tickbench/internal/ast"
	"tickbench/internal/interp"
	"tickbench/internal/lexer"
	"tickbench/internal/parser"
	"tickbench/internal/sched"
)

// Headless owns a scheduler and drives it to completion, sampling
// throughput every tick so a final metrics snapshot can report a
// high-water mark (spec §6.3 "max_throughput").
type Headless struct {
	Scheduler  *sched.Scheduler
	Throughput sched.ThroughputTracker
	logger     *logrus.Logger
}

// NewHeadless wraps an already-configured scheduler.
func NewHeadless(s *sched.Scheduler, logger *logrus.Logger) *Headless {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Headless{Scheduler: s, logger: logger}
}

// LoadScript lexes, parses, and interprets source against h.Scheduler,
// returning the first error from any stage (spec §6.4 "lex error, parse
// error, interpret error"). A nil rng lets the interpreter seed its own
// from the wall clock; pass a seeded one for reproducible runs.
func (h *Headless) LoadScript(source string, rng *rand.Rand) (*ast.Ast, error) {
	tokens, err := lexer.Lex(source)
	if err != nil {
		return nil, err
	}
	tree, err := parser.Parse(tokens)
	if err != nil {
		return nil, err
	}

	in := interp.New(h.Scheduler, h.logger, rng)
	if err := in.Run(tree); err != nil {
		return nil, err
	}
	return tree, nil
}

// Run advances step() until complete(), sampling throughput after every
// tick (spec §6.4 "advances step until complete").
func (h *Headless) Run() {
	for !h.Scheduler.Complete() {
		h.Scheduler.Step()
		h.Throughput.Observe(h.Scheduler.Throughput())
	}
	h.logger.WithFields(logrus.Fields{
		"ticks":    h.Scheduler.Timer(),
		"finished": len(h.Scheduler.Finished()),
	}).Info("simulation complete")
}

// WriteMetrics writes the §6.3 snapshot format to w: two header keys, a
// separator line, then six body keys. avg_throughput and max_throughput
// are formatted with 2 fractional digits; the rest as integers.
func (h *Headless) WriteMetrics(w *bufio.Writer) error {
	s := h.Scheduler
	lines := []string{
		fmt.Sprintf("timer = %d", int(s.Timer())),
		fmt.Sprintf("schedule_policy = %s", s.PolicyName()),
		"separator",
		fmt.Sprintf("avg_waiting_time = %d", s.AverageWaitingTime()),
		fmt.Sprintf("max_waiting_time = %d", s.MaxWaitingTime()),
		fmt.Sprintf("avg_turnaround_time = %d", s.AverageTurnaroundTime()),
		fmt.Sprintf("max_turnaround_time = %d", s.MaxTurnaroundTime()),
		fmt.Sprintf("avg_throughput = %.2f", s.Throughput()),
		fmt.Sprintf("max_throughput = %.2f", h.Throughput.Max()),
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return w.Flush()
}

// WriteMetricsFile is WriteMetrics against a freshly created/truncated
// file at path.
func (h *Headless) WriteMetricsFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("driver: creating metrics file: %w", err)
	}
	defer f.Close()
	return h.WriteMetrics(bufio.NewWriter(f))
}
