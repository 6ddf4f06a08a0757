// Command scheduler runs a workload script headlessly to completion and
// writes its metrics snapshot to a .met file (spec §6.4 "CLI contract").
package main

import (
	"flag"
	"os"

	"github.com/sirupsen/logrus"

	"tickbench/internal/driver"
	"tickbench/internal/sched"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	logger := logrus.StandardLogger()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	fs := flag.NewFlagSet("scheduler", flag.ContinueOnError)
	quantum := fs.Int("quantum", sched.DefaultQuantum, "Round Robin quantum, in ticks")
	cores := fs.Int("cores", 1, "number of cores")
	metricsPath := fs.String("metrics", "", "path to write the .met metrics snapshot (default: <script>.met)")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() != 1 {
		logger.Error("usage: scheduler <script.sl>")
		return 1
	}
	scriptPath := fs.Arg(0)

	source, err := os.ReadFile(scriptPath)
	if err != nil {
		logger.WithError(err).WithField("path", scriptPath).Error("could not read script")
		return 1
	}

	s, err := sched.New(*cores, sched.NewRoundRobin(*quantum), logger)
	if err != nil {
		logger.WithError(err).Error("could not construct scheduler")
		return 1
	}

	h := driver.NewHeadless(s, logger)
	if _, err := h.LoadScript(string(source), nil); err != nil {
		logger.WithError(err).Error("failed to load script")
		return 1
	}

	logger.WithFields(logrus.Fields{
		"script":  scriptPath,
		"cores":   *cores,
		"quantum": *quantum,
	}).Info("running simulation")
	h.Run()

	out := *metricsPath
	if out == "" {
		out = scriptPath + ".met"
	}
	if err := h.WriteMetricsFile(out); err != nil {
		logger.WithError(err).Error("failed to write metrics file")
		return 1
	}

	logger.WithField("metrics", out).Info("done")
	return 0
}
