// FILE: cmd/reversi-server/pid.go
package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
)

var errInstanceRunning = errors.New("another instance is running")

// managePIDFile writes the current PID to path, optionally holding an exclusive
// flock for the life of the process. The returned cleanup removes the file.
func managePIDFile(path string, lock bool) (func(), error) {
	flags := os.O_CREATE | os.O_WRONLY
	file, err := os.OpenFile(path, flags|os.O_EXCL, 0644)
	if os.IsExist(err) {
		if lock {
			if err := checkRunning(path); err != nil {
				return nil, err
			}
		}
		file, err = os.OpenFile(path, flags, 0644)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot open PID file: %w", err)
	}

	fail := func(err error) (func(), error) {
		file.Close()
		return nil, err
	}

	if lock {
		if err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
			if errors.Is(err, syscall.EWOULDBLOCK) {
				return fail(errInstanceRunning)
			}
			return fail(fmt.Errorf("lock failed: %w", err))
		}
	}

	// Truncate only once the lock is held so a running instance keeps its PID
	if err := file.Truncate(0); err != nil {
		return fail(fmt.Errorf("cannot truncate PID file: %w", err))
	}
	if _, err := fmt.Fprintf(file, "%d\n", os.Getpid()); err != nil {
		os.Remove(path)
		return fail(fmt.Errorf("cannot write PID: %w", err))
	}
	if err := file.Sync(); err != nil {
		os.Remove(path)
		return fail(fmt.Errorf("cannot sync PID file: %w", err))
	}

	return func() {
		if lock {
			syscall.Flock(int(file.Fd()), syscall.LOCK_UN)
		}
		file.Close()
		os.Remove(path)
	}, nil
}

// checkRunning rejects a PID file whose process is still alive. A dead or
// unparsable PID is treated as stale and the file is reused.
func checkRunning(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("cannot read existing PID file: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return nil
	}

	proc, _ := os.FindProcess(pid)
	switch err := proc.Signal(syscall.Signal(0)); {
	case err == nil:
		if pid == os.Getpid() {
			return nil
		}
		return fmt.Errorf("%w (pid %d)", errInstanceRunning, pid)
	case errors.Is(err, os.ErrProcessDone), errors.Is(err, syscall.ESRCH):
		return nil
	default:
		return fmt.Errorf("process %d exists but cannot be signalled: %w", pid, err)
	}
}
