// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

package perf

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strconv"
	"syscall"

	"golang.org/x/sys/unix"
)

// kernel is the set of system calls a Group makes. It is a variable so tests
// can count resources without touching real counters.
type kernel interface {
	perfEventOpen(attr *unix.PerfEventAttr, pid, cpu, groupFd, flags int) (int, error)
	ioctl(fd int, req uint, arg int) error
	mmap(fd int, length int) ([]byte, error)
	munmap(b []byte) error
	read(fd int, p []byte) (int, error)
	close(fd int) error
}

var sys kernel = unixKernel{}

type unixKernel struct{}

func (unixKernel) perfEventOpen(attr *unix.PerfEventAttr, pid, cpu, groupFd, flags int) (int, error) {
	fd, err := unix.PerfEventOpen(attr, pid, cpu, groupFd, flags)
	if err != nil && errors.Is(err, syscall.EACCES) {
		const path = "/proc/sys/kernel/perf_event_paranoid"
		data, err2 := os.ReadFile(path)
		data = bytes.TrimSpace(data)
		if val, err3 := strconv.Atoi(string(data)); err2 != nil || err3 != nil || val > 0 {
			// We can't read it, or it's set to > 0.
			err = fmt.Errorf("%w (consider: echo 0 | sudo tee %s)", err, path)
		}
	}
	return fd, err
}

func (unixKernel) ioctl(fd int, req uint, arg int) error {
	return unix.IoctlSetInt(fd, req, arg)
}

func (unixKernel) mmap(fd int, length int) ([]byte, error) {
	return unix.Mmap(fd, 0, length, unix.PROT_READ, unix.MAP_SHARED)
}

func (unixKernel) munmap(b []byte) error {
	return unix.Munmap(b)
}

func (unixKernel) read(fd int, p []byte) (int, error) {
	for {
		n, err := unix.Read(fd, p)
		if err == unix.EINTR {
			continue
		}
		return n, err
	}
}

func (unixKernel) close(fd int) error {
	return unix.Close(fd)
}
