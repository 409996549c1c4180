package resources

import (
	"fmt"
	"io"
	"os/exec"
	"syscall"
	"time"
)

// InstanceKind distinguishes the two teardown paths for loaded engines
type InstanceKind int

const (
	// KindProcess is an engine running as an external native process
	KindProcess InstanceKind = iota
	// KindEngine is an in-process engine handle released via Close
	KindEngine
)

// Instance is the opaque handle for one loaded engine. It is owned exclusively
// by the Manager while loaded; callers interact with it only through the
// service handle returned by Manager accessors.
type Instance struct {
	Kind   InstanceKind
	Cmd    *exec.Cmd // set when Kind == KindProcess
	Engine io.Closer // set when Kind == KindEngine

	// Handle is the service-level client object (e.g. an HTTP client bound to
	// the process's port). The Manager never inspects it.
	Handle interface{}
}

// NewProcessInstance wraps a started native process
func NewProcessInstance(cmd *exec.Cmd, handle interface{}) Instance {
	return Instance{Kind: KindProcess, Cmd: cmd, Handle: handle}
}

// NewEngineInstance wraps an in-process engine
func NewEngineInstance(engine io.Closer, handle interface{}) Instance {
	return Instance{Kind: KindEngine, Engine: engine, Handle: handle}
}

// PID returns the native process ID, if the instance is a process
func (i Instance) PID() (int, bool) {
	if i.Kind == KindProcess && i.Cmd != nil && i.Cmd.Process != nil {
		return i.Cmd.Process.Pid, true
	}
	return 0, false
}

// shutdown tears the instance down. Processes get SIGTERM, a bounded wait, and
// a SIGKILL fallback; in-process engines are closed directly.
func (i Instance) shutdown(grace time.Duration) error {
	switch i.Kind {
	case KindProcess:
		return i.terminateProcess(grace)
	case KindEngine:
		if i.Engine == nil {
			return nil
		}
		if err := i.Engine.Close(); err != nil {
			return fmt.Errorf("failed to close engine: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unknown instance kind: %d", i.Kind)
	}
}

func (i Instance) terminateProcess(grace time.Duration) error {
	if i.Cmd == nil || i.Cmd.Process == nil {
		return nil
	}

	if err := i.Cmd.Process.Signal(syscall.SIGTERM); err != nil {
		// Already gone; nothing left to tear down
		return nil
	}

	waited := make(chan error, 1)
	go func() {
		waited <- i.Cmd.Wait()
	}()

	select {
	case <-waited:
		return nil
	case <-time.After(grace):
		if err := i.Cmd.Process.Kill(); err != nil {
			return fmt.Errorf("failed to kill process after grace period: %w", err)
		}
		<-waited
		return nil
	}
}
