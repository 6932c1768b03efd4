package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"slices"
	"sync"
	"syscall"
	"time"
)

// ============================================================================
// Process Supervisor
// ============================================================================
// Owns at most one externally-spawned "blocking" command at a time. New
// requests with an identical command are no-ops; a different command
// terminates the old process (best-effort) before starting the new one.
// Supervised commands that exit suspiciously fast are relaunched a bounded
// number of times.
//
// Spawn failures (missing executable, OS error) are logged and resolve to
// "no process" — they never crash the dispatch loop.
// ============================================================================

// Process is a handle to a started external process.
type Process interface {
	// Done is closed once the process has exited.
	Done() <-chan struct{}
	// Terminate asks the process to stop (best-effort).
	Terminate() error
}

// ProcessRunner starts external processes. The daemon uses os/exec; tests
// inject fakes with controllable exit timing.
type ProcessRunner interface {
	Start(argv []string) (Process, error)
}

// execRunner runs real commands via os/exec.
type execRunner struct{}

// NewExecRunner returns a ProcessRunner backed by os/exec.
func NewExecRunner() ProcessRunner { return execRunner{} }

type execProcess struct {
	cmd  *exec.Cmd
	done chan struct{}
}

func (r execRunner) Start(argv []string) (Process, error) {
	if len(argv) == 0 {
		return nil, fmt.Errorf("empty command")
	}
	cmd := exec.Command(argv[0], argv[1:]...)
	if err := cmd.Start(); err != nil {
		return nil, err
	}

	p := &execProcess{cmd: cmd, done: make(chan struct{})}
	go func() {
		// Exit status is irrelevant; only liveness matters.
		_ = cmd.Wait()
		close(p.done)
	}()
	return p, nil
}

func (p *execProcess) Done() <-chan struct{} { return p.done }

func (p *execProcess) Terminate() error {
	if p.cmd.Process == nil {
		return fmt.Errorf("process not started")
	}
	return p.cmd.Process.Signal(syscall.SIGTERM)
}

// Supervisor tracks the single supervised process slot.
//
// The dispatch goroutine is the only caller of the Run methods, but the
// current-command field is also read by the status publisher, so it is
// guarded by a mutex.
type Supervisor struct {
	runner  ProcessRunner
	logger  *slog.Logger
	metrics *Metrics

	mu          sync.Mutex
	current     Process
	currentArgv []string
}

// NewSupervisor returns a supervisor with an empty slot.
func NewSupervisor(runner ProcessRunner, logger *slog.Logger, metrics *Metrics) *Supervisor {
	return &Supervisor{runner: runner, logger: logger, metrics: metrics}
}

// RunAsync spawns argv fire-and-forget and returns the handle immediately.
// Returns nil on spawn failure.
func (s *Supervisor) RunAsync(argv []string) Process {
	p, err := s.runner.Start(argv)
	if err != nil {
		s.logger.Error("failed to run command", "command", argv, "error", err)
		s.metrics.IncSpawnErrors()
		return nil
	}
	s.logger.Debug("spawned", "command", argv)
	return p
}

// RunBlocking spawns argv and waits up to minExecTime for it to exit.
//
// Still running when the timeout elapses is the success case (long-playing
// media); the still-running handle is returned. An exit before the timeout is
// a false start (e.g. the playback device rejected the file): the same
// command is re-issued, up to maxAttempts total attempts. After exhausting
// attempts it gives up and returns nil — an error log, not a daemon failure.
func (s *Supervisor) RunBlocking(ctx context.Context, argv []string, minExecTime time.Duration, maxAttempts int) Process {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	// The supervised slot holds one process; whatever is playing gets replaced.
	s.vacateSlot()

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		p, err := s.runner.Start(argv)
		if err != nil {
			s.logger.Error("failed to run command", "command", argv, "error", err)
			s.metrics.IncSpawnErrors()
			return nil
		}

		timer := time.NewTimer(minExecTime)
		select {
		case <-timer.C:
			s.setCurrent(p, argv)
			return p

		case <-ctx.Done():
			// Shutdown: hand back whatever is running; the child outlives us.
			timer.Stop()
			s.setCurrent(p, argv)
			return p

		case <-p.Done():
			timer.Stop()
			if attempt < maxAttempts {
				s.logger.Info("process exited before minimum duration, relaunching",
					"command", argv, "attempt", attempt, "max_attempts", maxAttempts)
				s.metrics.IncEarlyExitRetries()
			}
		}
	}

	s.logger.Error("giving up after repeated early exits", "command", argv, "attempts", maxAttempts)
	return nil
}

// RunExclusive starts argv in the single supervised slot.
//
// If argv equals the currently tracked command the call is a no-op and the
// existing handle is returned (duplicate triggers must not relaunch).
// Otherwise the tracked process is terminated (errors swallowed) and the new
// one recorded as current. Returns nil on spawn failure; the slot is left
// empty in that case.
func (s *Supervisor) RunExclusive(argv []string) Process {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil && slices.Equal(s.currentArgv, argv) {
		s.logger.Debug("ignoring repeated command", "command", argv)
		return s.current
	}

	if s.current != nil {
		if err := s.current.Terminate(); err != nil {
			s.logger.Debug("terminate failed", "command", s.currentArgv, "error", err)
		}
		s.current = nil
		s.currentArgv = nil
	}

	p, err := s.runner.Start(argv)
	if err != nil {
		s.logger.Error("failed to run command", "command", argv, "error", err)
		s.metrics.IncSpawnErrors()
		return nil
	}

	s.current = p
	s.currentArgv = slices.Clone(argv)
	s.logger.Debug("spawned", "command", argv)
	return p
}

// CurrentCommand returns a copy of the tracked command, or nil if the slot is
// empty. Used by the status publisher.
func (s *Supervisor) CurrentCommand() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.currentArgv)
}

func (s *Supervisor) setCurrent(p Process, argv []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = p
	s.currentArgv = slices.Clone(argv)
}

// vacateSlot terminates and forgets the tracked process, if any.
// Termination failures are swallowed.
func (s *Supervisor) vacateSlot() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return
	}
	if err := s.current.Terminate(); err != nil {
		s.logger.Debug("terminate failed", "command", s.currentArgv, "error", err)
	}
	s.current = nil
	s.currentArgv = nil
}
