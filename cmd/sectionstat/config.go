// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

package main

import (
	"os"
	"time"

	"github.com/creasty/defaults"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/aclements/go-perfsection/report"
	"github.com/aclements/go-perfsection/section"
)

// fileConfig is the YAML configuration file. Command line flags override it.
type fileConfig struct {
	Kinds       []string      `yaml:"kinds" default:"[\"instructions\",\"branch_miss\",\"L1D_miss\",\"IPC\"]"`
	Workloads   []string      `yaml:"workloads" default:"[\"sum\",\"branchy\",\"stride\"]"`
	Trials      int           `yaml:"trials" default:"10"`
	Iterations  int           `yaml:"iterations" default:"1000000"`
	Serialize   bool          `yaml:"serialize" default:"false"`
	Format      string        `yaml:"format" default:"text"`
	MetricsAddr string        `yaml:"metrics_addr"`
	Interval    time.Duration `yaml:"interval" default:"10s"`
}

func (c *fileConfig) UnmarshalYAML(unmarshal func(interface{}) error) error {
	defaults.Set(c)
	type plain fileConfig
	if err := unmarshal((*plain)(c)); err != nil {
		return err
	}
	return nil
}

func defaultConfig() *fileConfig {
	c := &fileConfig{}
	defaults.Set(c)
	return c
}

func loadConfig(path string) (*fileConfig, error) {
	if path == "" {
		return defaultConfig(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading config")
	}
	c := defaultConfig()
	if err := yaml.UnmarshalStrict(data, c); err != nil {
		return nil, errors.Wrapf(err, "parsing %s", path)
	}
	return c, nil
}

// runConfig is a checked fileConfig.
type runConfig struct {
	engine      section.Config
	workloads   []workload
	trials      int
	iterations  int
	format      report.Format
	metricsAddr string
	interval    time.Duration
}

func (c *fileConfig) check() (*runConfig, error) {
	rc := &runConfig{
		trials:      c.Trials,
		iterations:  c.Iterations,
		metricsAddr: c.MetricsAddr,
		interval:    c.Interval,
	}
	if c.Trials < 1 {
		return nil, errors.Errorf("trials must be at least 1, got %d", c.Trials)
	}
	if c.Iterations < 1 {
		return nil, errors.Errorf("iterations must be at least 1, got %d", c.Iterations)
	}
	if c.MetricsAddr != "" && c.Interval <= 0 {
		return nil, errors.Errorf("interval must be positive, got %v", c.Interval)
	}

	var err error
	if rc.format, err = report.ParseFormat(c.Format); err != nil {
		return nil, err
	}
	for _, name := range c.Workloads {
		w, ok := lookupWorkload(name)
		if !ok {
			return nil, errors.Errorf("unknown workload %q (have %s)", name, workloadNames())
		}
		rc.workloads = append(rc.workloads, w)
	}
	if len(rc.workloads) == 0 {
		return nil, errors.New("no workloads")
	}

	rc.engine = section.Config{Sections: len(rc.workloads), Serialize: c.Serialize}
	for _, name := range c.Kinds {
		k, err := section.ParseKind(name)
		if err != nil {
			return nil, err
		}
		rc.engine.Kinds = append(rc.engine.Kinds, k)
	}
	if err := rc.engine.Validate(); err != nil {
		return nil, err
	}
	return rc, nil
}
