// Package cmdutil wraps external command execution for disk-system
// plugins: every partitioning and filesystem tool a plugin shells out
// to (parted, mkfs.*, cryptsetup, ...) goes through here so invocations
// are logged uniformly and can be short-circuited in tests.
package cmdutil

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/diskdevmgr/ddm/ddmlog"
)

// Output lets a caller process a running command's stdout line by line.
type Output interface {
	Process(line string)
}

type runLogger struct{}

func (rl runLogger) Write(p []byte) (n int, err error) {
	for _, curr := range strings.Split(string(p), "\n") {
		if curr == "" {
			continue
		}
		ddmlog.Debug(curr)
	}
	return len(p), nil
}

// RealExecEnabled reports whether plugins should invoke the real
// system tools (parted, mkfs.*, ...) rather than their simulated
// counterparts. Set DDM_REAL_EXEC=1 to run against a real machine;
// the reference plugins default to a simulator so tests never touch
// host block devices.
func RealExecEnabled() bool {
	return os.Getenv("DDM_REAL_EXEC") == "1"
}

// RunAndLog executes a command, writing its combined output to the log.
func RunAndLog(ctx context.Context, args ...string) error {
	return Run(ctx, runLogger{}, args...)
}

// RunAndLogWithEnv is RunAndLog with additional environment variables.
func RunAndLogWithEnv(ctx context.Context, env map[string]string, args ...string) error {
	return run(ctx, nil, runLogger{}, env, args...)
}

// PipeRunAndLog runs a command, logs its output, and writes in to its
// stdin (used to feed cryptsetup passphrases and similar prompts).
func PipeRunAndLog(ctx context.Context, in string, args ...string) error {
	return run(ctx, func(cmd *exec.Cmd) error {
		stdin, err := cmd.StdinPipe()
		if err != nil {
			return err
		}

		go func() {
			defer func() { _ = stdin.Close() }()
			_, _ = io.WriteString(stdin, in)
		}()

		return nil
	}, runLogger{}, nil, args...)
}

func run(ctx context.Context, sw func(cmd *exec.Cmd) error, writer io.Writer, env map[string]string, args ...string) error {
	ddmlog.Debug("%s", strings.Join(args, " "))

	exe := args[0]
	cmdArgs := args[1:]

	cmd := exec.CommandContext(ctx, exe, cmdArgs...)

	if sw != nil {
		if err := sw(cmd); err != nil {
			return err
		}
	}

	cmd.Stdout = writer
	cmd.Stderr = writer

	if cmd.Stdin == nil {
		cmd.Stdin = os.Stdin
	}

	if len(env) > 0 {
		cmd.Env = os.Environ()
	}
	for k, v := range env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}

	return cmd.Run()
}

// Run executes a command, writing its combined stdout/stderr to writer.
func Run(ctx context.Context, writer io.Writer, args ...string) error {
	return run(ctx, nil, writer, nil, args...)
}

// RunAndProcessOutput executes a command and feeds each stdout line to
// output as it arrives.
func RunAndProcessOutput(ctx context.Context, output Output, args ...string) error {
	ddmlog.Debug("%s", strings.Join(args, " "))

	exe := args[0]
	cmdArgs := args[1:]

	cmd := exec.CommandContext(ctx, exe, cmdArgs...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		ddmlog.Error("could not connect a pipe to stdout")
		return err
	}

	if err := cmd.Start(); err != nil {
		ddmlog.Error("failed to start command execution")
		return err
	}

	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		output.Process(scanner.Text())
	}

	if err := scanner.Err(); err != nil {
		ddmlog.Error("an error occurred while reading stdout")
		return err
	}

	if err := cmd.Wait(); err != nil {
		ddmlog.Error("command failed: %q: %s", strings.Join(args, " "), err)
		return err
	}

	return nil
}
