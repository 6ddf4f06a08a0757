package sched

import (
	"gonum.org/v1/gonum/stat"

	"golang.org/x/exp/constraints"
)

// number constrains avg to the types a mean makes sense over.
type number interface {
	constraints.Integer | constraints.Float
}

// avg is the mean of a slice, or 0 for an empty one.
func avg[T number](xs []T) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum T
	for _, v := range xs {
		sum += v
	}
	return float64(sum) / float64(len(xs))
}

// AverageWaitingTime returns sum(start_time - arrival) / |finished| over
// finished processes with a start_time, truncated to a natural (spec §4.4
// "average_waiting_time"). 0 if no process has finished.
func (s *Scheduler) AverageWaitingTime() int {
	waits := make([]int, 0, len(s.finished))
	for _, p := range s.finished {
		if _, err := p.StartTime.Get(); err == nil {
			waits = append(waits, p.WaitingTime())
		}
	}
	if len(waits) == 0 {
		return 0
	}
	return int(avg(waits))
}

// AverageTurnaroundTime returns sum(finish_time - arrival) / |finished|,
// truncated to a natural.
func (s *Scheduler) AverageTurnaroundTime() int {
	if len(s.finished) == 0 {
		return 0
	}
	turnarounds := make([]int, 0, len(s.finished))
	for _, p := range s.finished {
		turnarounds = append(turnarounds, p.TurnaroundTime())
	}
	return int(avg(turnarounds))
}

// AverageCPUUsage is the mean of per-core cpu_usage over active cores,
// computed with gonum's stat.Mean instead of a hand-rolled loop.
func (s *Scheduler) AverageCPUUsage() float64 {
	usages := make([]float64, len(s.cores))
	for i, c := range s.cores {
		usages[i] = c.cpuUsage
	}
	if len(usages) == 0 {
		return 0
	}
	return stat.Mean(usages, nil)
}

// MaxWaitingTime and MaxTurnaroundTime back the metrics snapshot's
// max_waiting_time/max_turnaround_time fields (spec §6.3).
func (s *Scheduler) MaxWaitingTime() int {
	max := 0
	for _, p := range s.finished {
		if v := p.WaitingTime(); v > max {
			max = v
		}
	}
	return max
}

func (s *Scheduler) MaxTurnaroundTime() int {
	max := 0
	for _, p := range s.finished {
		if v := p.TurnaroundTime(); v > max {
			max = v
		}
	}
	return max
}

// ThroughputTracker tracks the highest throughput value observed; the driver
// samples Throughput() after every Step and feeds it in here so the
// metrics file (spec §6.3 "max_throughput") can report a high-water mark
// without the scheduler itself needing a history buffer.
type ThroughputTracker struct {
	max float64
}

func (t *ThroughputTracker) Observe(v float64) {
	if v > t.max {
		t.max = v
	}
}

func (t *ThroughputTracker) Max() float64 { return t.max }
