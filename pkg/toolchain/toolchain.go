// Package toolchain drives the external assembler and linker.
package toolchain

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Result is what a finished command left behind.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Runner starts a command and waits for it. A non-zero exit status is a
// Result, not an error; the error is for commands that could not run.
type Runner interface {
	Run(ctx context.Context, path string, args []string) (Result, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, path string, args []string) (Result, error) {
	cmd := exec.CommandContext(ctx, path, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return res, fmt.Errorf("%s: %w", path, ctxErr)
	}
	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
	default:
		return res, err
	}
	return res, nil
}

// CommandError reports a command that ran and failed.
type CommandError struct {
	Path     string
	Args     []string
	ExitCode int
	Stderr   string
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("%s exited with status %d", e.Path, e.ExitCode)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ":\n" + s
	}
	return msg
}

// Toolchain builds the command lines for the host assembler and compiler
// driver.
type Toolchain struct {
	Runner Runner
	As     string
	CC     string
	// M32 asks a 64-bit host toolchain for i386 objects.
	M32 bool
}

func New(m32 bool) *Toolchain {
	return &Toolchain{Runner: ExecRunner{}, As: "as", CC: "cc", M32: m32}
}

func (t *Toolchain) run(ctx context.Context, path string, args []string) error {
	res, err := t.Runner.Run(ctx, path, args)
	if err != nil {
		return fmt.Errorf("running %s: %w", path, err)
	}
	if res.ExitCode != 0 {
		return &CommandError{Path: path, Args: args, ExitCode: res.ExitCode, Stderr: res.Stderr}
	}
	return nil
}

// AssembleArgs is the argument list Assemble passes to the assembler.
func (t *Toolchain) AssembleArgs(asmPath, objPath string) []string {
	var args []string
	if t.M32 {
		args = append(args, "--32")
	}
	return append(args, "-o", objPath, asmPath)
}

func (t *Toolchain) Assemble(ctx context.Context, asmPath, objPath string) error {
	return t.run(ctx, t.As, t.AssembleArgs(asmPath, objPath))
}

// LinkArgs is the argument list Link passes to the compiler driver.
func (t *Toolchain) LinkArgs(out string, objs, extra []string) []string {
	var args []string
	if t.M32 {
		args = append(args, "-m32")
	}
	args = append(args, "-no-pie", "-o", out)
	args = append(args, objs...)
	return append(args, extra...)
}

func (t *Toolchain) Link(ctx context.Context, out string, objs, extra []string) error {
	return t.run(ctx, t.CC, t.LinkArgs(out, objs, extra))
}
