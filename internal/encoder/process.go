package encoder

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/bryanchriswhite/CaptureDeck/internal/logger"
)

// Process is one running ffmpeg recording
type Process struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser

	done    chan struct{}
	waitErr error

	stopOnce sync.Once
}

// Start spawns path with args. stdin stays open for the stop signal, stdout is
// discarded and stderr is forwarded to the debug log.
func Start(path string, args []string, output string) (*Process, error) {
	log := logger.WithComponent("encoder")

	cmd := exec.Command(path, args...)
	hideWindow(cmd)
	cmd.Stdout = nil
	cmd.Stderr = &lineLogger{}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to get stdin pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	p := &Process{
		cmd:   cmd,
		stdin: stdin,
		done:  make(chan struct{}),
	}

	// Wait exactly once; everyone else observes done
	go func() {
		p.waitErr = cmd.Wait()
		close(p.done)
	}()

	log.Info().
		Int("pid", cmd.Process.Pid).
		Str("output", output).
		Msg("ffmpeg started")

	return p, nil
}

// SignalStop writes the graceful stop byte to ffmpeg's stdin and closes it.
// Errors are returned for logging only; the process may already have exited.
func (p *Process) SignalStop() error {
	var err error
	p.stopOnce.Do(func() {
		_, err = io.WriteString(p.stdin, StopSignal)
		if cerr := p.stdin.Close(); err == nil {
			err = cerr
		}
	})
	return err
}

// Wait blocks until the process exits and returns its exit error as reported
// by exec, so a non-zero status comes back as *exec.ExitError. A timeout <= 0
// waits forever; otherwise ErrStopTimeout is returned once it expires.
func (p *Process) Wait(timeout time.Duration) error {
	if timeout <= 0 {
		<-p.done
		return p.waitErr
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-p.done:
		return p.waitErr
	case <-timer.C:
		return ErrStopTimeout
	}
}

// Kill forcibly terminates the process and reaps it
func (p *Process) Kill() error {
	select {
	case <-p.done:
		return nil
	default:
	}

	if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	<-p.done
	return nil
}

// Exited reports whether the process has terminated, including an early
// exit nobody asked for
func (p *Process) Exited() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// Pid returns the process id
func (p *Process) Pid() int {
	return p.cmd.Process.Pid
}

// lineLogger forwards ffmpeg's stderr to the debug log one line at a time
type lineLogger struct {
	buf []byte
}

func (l *lineLogger) Write(b []byte) (int, error) {
	l.buf = append(l.buf, b...)
	for {
		// ffmpeg redraws its progress line with \r
		i := bytes.IndexAny(l.buf, "\r\n")
		if i < 0 {
			break
		}
		if line := bytes.TrimSpace(l.buf[:i]); len(line) > 0 {
			logger.WithComponent("encoder").Debug().Str("ffmpeg", string(line)).Msg("ffmpeg output")
		}
		l.buf = l.buf[i+1:]
	}
	return len(b), nil
}
