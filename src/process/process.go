// Package process implements subprocess execution for command substitutions.
package process

import (
	"bytes"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/please-build/descgen/src/cli"
	"github.com/please-build/descgen/src/cli/logging"
)

var log = logging.Log

// An Executor handles starting and running a set of subprocesses.
// It registers as a signal handler to attempt to terminate them all at process exit.
type Executor struct {
	processes map[*exec.Cmd]struct{}
	mutex     sync.Mutex
}

var defaultExecutor *Executor
var defaultExecutorOnce sync.Once

// Default returns the process-wide Executor, creating it on first use.
func Default() *Executor {
	defaultExecutorOnce.Do(func() {
		defaultExecutor = &Executor{
			processes: map[*exec.Cmd]struct{}{},
		}
		cli.AtExit(defaultExecutor.killAll) // Kill any subprocess if we are ourselves killed
	})
	return defaultExecutor
}

// Exec runs an external command in the given directory, waiting for it to complete.
// It returns its stdout and stderr separately, and any error from running it.
func (e *Executor) Exec(dir string, argv []string) ([]byte, []byte, error) {
	cmd := e.ExecCommand(argv[0], argv[1:]...)
	defer e.removeProcess(cmd)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	start := time.Now()
	err := cmd.Run()
	log.Debug("Ran %s in %s in %s", argv, dir, time.Since(start).Round(time.Millisecond))
	return stdout.Bytes(), stderr.Bytes(), err
}

// ExecShell runs a command string through /bin/sh.
// Note that the command is deliberately a single string.
func (e *Executor) ExecShell(dir, command string) ([]byte, []byte, error) {
	return e.Exec(dir, []string{"/bin/sh", "-c", command})
}

// KillProcess kills a process, attempting to send it a SIGTERM first followed by a SIGKILL
// shortly after if it hasn't exited.
func (e *Executor) KillProcess(cmd *exec.Cmd) {
	success := killProcess(cmd, syscall.SIGTERM, 30*time.Millisecond)
	if !killProcess(cmd, syscall.SIGKILL, time.Second) && !success {
		log.Error("Failed to kill inferior process")
	}
	e.removeProcess(cmd)
}

func (e *Executor) registerProcess(cmd *exec.Cmd) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.processes[cmd] = struct{}{}
}

func (e *Executor) removeProcess(cmd *exec.Cmd) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	delete(e.processes, cmd)
}

// killProcess implements the two-step killing of processes with a SIGTERM and a SIGKILL if
// that's unsuccessful. It returns true if the process exited within the timeout.
func killProcess(cmd *exec.Cmd, sig syscall.Signal, timeout time.Duration) bool {
	if cmd.Process == nil {
		log.Debug("Not terminating process, it seems to have not started yet")
		return false
	}
	log.Debug("Sending signal %s to -%d", sig, cmd.Process.Pid)
	syscall.Kill(-cmd.Process.Pid, sig) // Kill the group - we always set one in ExecCommand.
	ch := make(chan error, 1)
	go func() {
		ch <- cmd.Wait()
	}()
	select {
	case <-ch:
		return true
	case <-time.After(timeout):
		return false
	}
}

// killAll kills all subprocesses of this executor.
func (e *Executor) killAll() {
	e.mutex.Lock()
	processes := make([]*exec.Cmd, 0, len(e.processes))
	for proc := range e.processes {
		processes = append(processes, proc)
	}
	e.mutex.Unlock()

	var wg sync.WaitGroup
	wg.Add(len(processes))
	for _, proc := range processes {
		go func(proc *exec.Cmd) {
			e.KillProcess(proc)
			wg.Done()
		}(proc)
	}
	wg.Wait()
}
