package encoder

import (
	"errors"
	"io"
	"os"
	"os/exec"
	"testing"
	"time"
)

// TestHelperProcess stands in for ffmpeg. It is not a real test.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}

	args := os.Args
	for len(args) > 0 {
		if args[0] == "--" {
			args = args[1:]
			break
		}
		args = args[1:]
	}
	if len(args) == 0 {
		os.Exit(2)
	}

	switch args[0] {
	case "quit-on-q", "fail-on-q":
		buf := make([]byte, 1)
		for {
			n, err := os.Stdin.Read(buf)
			if n == 1 && buf[0] == 'q' {
				break
			}
			if err == io.EOF {
				break
			}
			if err != nil {
				os.Exit(4)
			}
		}
		if args[0] == "fail-on-q" {
			os.Exit(3)
		}
		os.Exit(0)
	case "hang":
		time.Sleep(time.Minute)
		os.Exit(0)
	case "crash":
		os.Exit(1)
	}
	os.Exit(2)
}

func startHelper(t *testing.T, mode string) *Process {
	t.Helper()
	t.Setenv("GO_WANT_HELPER_PROCESS", "1")

	p, err := Start(os.Args[0], []string{"-test.run=TestHelperProcess", "--", mode}, "out.mp4")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { p.Kill() })
	return p
}

func TestProcessGracefulStop(t *testing.T) {
	p := startHelper(t, "quit-on-q")

	if p.Pid() <= 0 {
		t.Errorf("Pid() = %d", p.Pid())
	}
	if p.Exited() {
		t.Fatal("process exited before stop signal")
	}

	if err := p.SignalStop(); err != nil {
		t.Fatalf("SignalStop() error = %v", err)
	}
	if err := p.Wait(10 * time.Second); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if !p.Exited() {
		t.Error("Exited() = false after Wait")
	}
}

func TestProcessExitedWithoutStop(t *testing.T) {
	p := startHelper(t, "crash")

	deadline := time.Now().Add(10 * time.Second)
	for !p.Exited() {
		if time.Now().After(deadline) {
			t.Fatal("Exited() never reported the early exit")
		}
		time.Sleep(10 * time.Millisecond)
	}

	var exitErr *exec.ExitError
	if err := p.Wait(time.Second); !errors.As(err, &exitErr) {
		t.Errorf("Wait() error = %v, want *exec.ExitError", err)
	}
}

func TestProcessNonZeroExitIsExitError(t *testing.T) {
	p := startHelper(t, "fail-on-q")

	p.SignalStop()
	err := p.Wait(10 * time.Second)

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("Wait() error = %v, want *exec.ExitError", err)
	}
	if exitErr.ExitCode() != 3 {
		t.Errorf("exit code = %d, want 3", exitErr.ExitCode())
	}
}

func TestProcessWaitTimeoutThenKill(t *testing.T) {
	p := startHelper(t, "hang")

	p.SignalStop()
	if err := p.Wait(50 * time.Millisecond); !errors.Is(err, ErrStopTimeout) {
		t.Fatalf("Wait() error = %v, want ErrStopTimeout", err)
	}
	if err := p.Kill(); err != nil {
		t.Fatalf("Kill() error = %v", err)
	}
	if !p.Exited() {
		t.Error("process should be reaped after Kill")
	}
	// Killing twice is harmless
	if err := p.Kill(); err != nil {
		t.Errorf("second Kill() error = %v", err)
	}
}

func TestSignalStopAfterExitIsBestEffort(t *testing.T) {
	p := startHelper(t, "quit-on-q")

	p.SignalStop()
	p.Wait(10 * time.Second)

	// Second call is a no-op
	if err := p.SignalStop(); err != nil {
		t.Errorf("second SignalStop() error = %v", err)
	}
}

func TestStartMissingBinary(t *testing.T) {
	if _, err := Start("/nonexistent/ffmpeg", nil, "x.mp4"); err == nil {
		t.Error("Start() with missing binary should fail")
	}
}

func TestLineLogger(t *testing.T) {
	l := &lineLogger{}
	n, err := l.Write([]byte("frame=1\rframe=2\npartial"))
	if err != nil || n != 23 {
		t.Fatalf("Write() = %d, %v", n, err)
	}
	if string(l.buf) != "partial" {
		t.Errorf("buffered = %q, want partial", l.buf)
	}
}
