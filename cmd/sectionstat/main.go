// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

// Sectionstat measures a few small workloads as sections of one counter
// engine and prints cycles, selected hardware events, and derived ratios for
// each.
//
// Usage:
//
//	sectionstat [flags]
//
// With --metrics-addr, sectionstat keeps measuring and serves the latest
// results as Prometheus metrics until interrupted.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/aclements/go-perfsection/report"
	"github.com/aclements/go-perfsection/section"
)

const (
	flagConfigName      = "config"
	flagKindsName       = "kinds"
	flagWorkloadsName   = "workloads"
	flagTrialsName      = "trials"
	flagIterationsName  = "iterations"
	flagSerializeName   = "serialize"
	flagFormatName      = "format"
	flagMetricsAddrName = "metrics-addr"
	flagIntervalName    = "interval"
	flagDebugName       = "debug"
)

type flags struct {
	config string
	debug  bool
	file   fileConfig // values of the flags shared with the config file
}

func newRootCmd() *cobra.Command {
	var f flags
	cmd := &cobra.Command{
		Use:   "sectionstat",
		Short: "Count hardware events across sections of code",
		Long: `sectionstat runs each workload as one section of a counter engine and
reports cycles, the selected kinds, and ratios per trial.

Kinds: ` + kindNames() + `
Workloads: ` + workloadNames(),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, &f)
		},
	}
	addFlags(cmd.Flags(), &f)
	return cmd
}

func addFlags(fs *pflag.FlagSet, f *flags) {
	d := defaultConfig()
	fs.StringVar(&f.config, flagConfigName, "", "read settings from this YAML `file`; flags override it")
	fs.StringSliceVar(&f.file.Kinds, flagKindsName, d.Kinds, "kinds to report, measured kinds before ratios")
	fs.StringSliceVar(&f.file.Workloads, flagWorkloadsName, d.Workloads, "workloads to measure, one section each")
	fs.IntVar(&f.file.Trials, flagTrialsName, d.Trials, "number of trials per workload")
	fs.IntVar(&f.file.Iterations, flagIterationsName, d.Iterations, "loop iterations per trial")
	fs.BoolVar(&f.file.Serialize, flagSerializeName, d.Serialize, "serialize execution around each measurement")
	fs.StringVar(&f.file.Format, flagFormatName, d.Format, "output format: text, json, or csv")
	fs.StringVar(&f.file.MetricsAddr, flagMetricsAddrName, d.MetricsAddr, "serve Prometheus metrics on this `address` and keep measuring")
	fs.DurationVar(&f.file.Interval, flagIntervalName, d.Interval, "time between measurement rounds with --metrics-addr")
	fs.BoolVar(&f.debug, flagDebugName, false, "enable debug logging")
}

// mergeFlags returns file with the explicitly set flags applied.
func mergeFlags(fs *pflag.FlagSet, file *fileConfig, f *flags) {
	fs.Visit(func(fl *pflag.Flag) {
		switch fl.Name {
		case flagKindsName:
			file.Kinds = f.file.Kinds
		case flagWorkloadsName:
			file.Workloads = f.file.Workloads
		case flagTrialsName:
			file.Trials = f.file.Trials
		case flagIterationsName:
			file.Iterations = f.file.Iterations
		case flagSerializeName:
			file.Serialize = f.file.Serialize
		case flagFormatName:
			file.Format = f.file.Format
		case flagMetricsAddrName:
			file.MetricsAddr = f.file.MetricsAddr
		case flagIntervalName:
			file.Interval = f.file.Interval
		}
	})
}

func kindNames() string {
	var names []string
	for _, k := range section.AllKinds() {
		names = append(names, k.String())
	}
	return strings.Join(names, ", ")
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.DisableStacktrace = true
	return cfg.Build()
}

func run(cmd *cobra.Command, f *flags) error {
	log, err := newLogger(f.debug)
	if err != nil {
		return err
	}
	defer log.Sync()

	file, err := loadConfig(f.config)
	if err != nil {
		return err
	}
	mergeFlags(cmd.Flags(), file, f)
	rc, err := file.check()
	if err != nil {
		return err
	}
	rc.engine.Logger = log

	out := cmd.OutOrStdout()
	isTTY := out == os.Stdout && term.IsTerminal(int(os.Stdout.Fd()))
	opts := report.TextOptions{
		Color: isTTY && os.Getenv("NO_COLOR") == "",
		Group: isTTY,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	secs, err := measure(ctx, rc, log)
	if err != nil {
		return err
	}
	return report.Write(out, rc.format, secs, opts)
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "sectionstat: %v\n", err)
		os.Exit(1)
	}
}
