// FILE: internal/engine/process.go
package engine

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Process runs the scorer as a subprocess speaking the line protocol on stdin/stdout
type Process struct {
	path string
	args []string
	log  *zap.SugaredLogger

	cmd     *exec.Cmd
	stdin   io.WriteCloser
	stdout  *bufio.Scanner
	mu      sync.Mutex
	answers chan Answer
	closed  chan struct{}
	once    sync.Once
}

func NewProcess(path string, args []string, log *zap.SugaredLogger) *Process {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Process{
		path:    path,
		args:    args,
		log:     log,
		answers: make(chan Answer, 4),
		closed:  make(chan struct{}),
	}
}

// ProcessFactory returns a Factory spawning one subprocess per game
func ProcessFactory(path string, args []string, log *zap.SugaredLogger) Factory {
	return func() Collaborator {
		return NewProcess(path, args, log)
	}
}

func (p *Process) Start(ctx context.Context) error {
	cmd := exec.Command(p.path, p.args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return err
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}

	if err = cmd.Start(); err != nil {
		return fmt.Errorf("failed to start scorer: %w", err)
	}

	p.cmd = cmd
	p.stdin = stdin
	p.stdout = bufio.NewScanner(stdout)

	// Wait for ready with the caller's deadline
	done := make(chan error, 1)
	go func() {
		for p.stdout.Scan() {
			if p.stdout.Text() == cmdReady {
				done <- nil
				return
			}
		}
		done <- fmt.Errorf("scorer closed before ready")
	}()

	select {
	case err := <-done:
		if err != nil {
			p.kill()
			return err
		}
	case <-ctx.Done():
		p.kill()
		return fmt.Errorf("timeout waiting for ready: %w", ctx.Err())
	}

	go p.readLoop()
	return nil
}

func (p *Process) readLoop() {
	defer close(p.answers)

	for p.stdout.Scan() {
		line := p.stdout.Text()
		a, err := ParseAnswer(line)
		if err != nil {
			p.log.Debugw("ignoring scorer output", "line", line, "error", err)
			continue
		}
		select {
		case p.answers <- a:
		case <-p.closed:
			return
		}
	}
}

func (p *Process) Send(q Query) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stdin == nil {
		return fmt.Errorf("scorer not started")
	}
	_, err := fmt.Fprintln(p.stdin, q.Line())
	return err
}

func (p *Process) Answers() <-chan Answer {
	return p.answers
}

func (p *Process) Close() error {
	var err error
	p.once.Do(func() {
		close(p.closed)
		if p.cmd == nil {
			return
		}

		p.mu.Lock()
		fmt.Fprintln(p.stdin, cmdQuit)
		p.stdin.Close()
		p.mu.Unlock()

		// Try graceful shutdown first
		done := make(chan error, 1)
		go func() {
			done <- p.cmd.Wait()
		}()

		select {
		case <-done:
		case <-time.After(1 * time.Second):
			err = p.cmd.Process.Kill()
		}
	})
	return err
}

func (p *Process) kill() {
	if p.cmd != nil && p.cmd.Process != nil {
		p.cmd.Process.Kill()
		p.cmd.Wait()
	}
}
