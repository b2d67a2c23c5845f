package cmdutil

import (
	"bytes"
	"context"
	"os"
	"testing"
)

func TestRunCapturesOutput(t *testing.T) {
	var buf bytes.Buffer
	err := Run(context.Background(), &buf, "echo", "hello")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if buf.String() != "hello\n" {
		t.Errorf("output = %q, want %q", buf.String(), "hello\n")
	}
}

func TestRunAndLog(t *testing.T) {
	if err := RunAndLog(context.Background(), "true"); err != nil {
		t.Fatalf("RunAndLog: %v", err)
	}
}

func TestPipeRunAndLog(t *testing.T) {
	if err := PipeRunAndLog(context.Background(), "some input\n", "cat"); err != nil {
		t.Fatalf("PipeRunAndLog: %v", err)
	}
}

type collectOutput struct {
	lines []string
}

func (c *collectOutput) Process(line string) {
	c.lines = append(c.lines, line)
}

func TestRunAndProcessOutput(t *testing.T) {
	out := &collectOutput{}
	err := RunAndProcessOutput(context.Background(), out, "printf", "a\\nb\\n")
	if err != nil {
		t.Fatalf("RunAndProcessOutput: %v", err)
	}
	if len(out.lines) != 2 || out.lines[0] != "a" || out.lines[1] != "b" {
		t.Errorf("lines = %v", out.lines)
	}
}

func TestRealExecEnabled(t *testing.T) {
	_ = os.Unsetenv("DDM_REAL_EXEC")
	if RealExecEnabled() {
		t.Error("expected RealExecEnabled() false by default")
	}

	_ = os.Setenv("DDM_REAL_EXEC", "1")
	defer func() { _ = os.Unsetenv("DDM_REAL_EXEC") }()
	if !RealExecEnabled() {
		t.Error("expected RealExecEnabled() true when DDM_REAL_EXEC=1")
	}
}
