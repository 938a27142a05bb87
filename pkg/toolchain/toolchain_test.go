package toolchain

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type call struct {
	Path string
	Args []string
}

type fakeRunner struct {
	calls  []call
	result Result
	err    error
}

func (f *fakeRunner) Run(_ context.Context, path string, args []string) (Result, error) {
	f.calls = append(f.calls, call{path, append([]string(nil), args...)})
	return f.result, f.err
}

func TestArguments(t *testing.T) {
	fake := &fakeRunner{}
	tc := New(true)
	tc.Runner = fake

	ctx := context.Background()
	if err := tc.Assemble(ctx, "main.s", "main.o"); err != nil {
		t.Fatal(err)
	}
	if err := tc.Link(ctx, "a.out", []string{"main.o", "lib.o"}, []string{"-lc"}); err != nil {
		t.Fatal(err)
	}
	want := []call{
		{"as", []string{"--32", "-o", "main.o", "main.s"}},
		{"cc", []string{"-m32", "-no-pie", "-o", "a.out", "main.o", "lib.o", "-lc"}},
	}
	if diff := cmp.Diff(want, fake.calls); diff != "" {
		t.Errorf("commands (-want +got):\n%s", diff)
	}

	tc.M32 = false
	if diff := cmp.Diff([]string{"-o", "x.o", "x.s"}, tc.AssembleArgs("x.s", "x.o")); diff != "" {
		t.Errorf("native assemble args (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"-no-pie", "-o", "x", "x.o"}, tc.LinkArgs("x", []string{"x.o"}, nil)); diff != "" {
		t.Errorf("native link args (-want +got):\n%s", diff)
	}
}

func TestFailureCarriesStderr(t *testing.T) {
	fake := &fakeRunner{result: Result{ExitCode: 1, Stderr: "main.s:3: Error: no such instruction\n"}}
	tc := &Toolchain{Runner: fake, As: "as", CC: "cc"}

	err := tc.Assemble(context.Background(), "main.s", "main.o")
	var ce *CommandError
	if !errors.As(err, &ce) {
		t.Fatalf("expected *CommandError, got %v", err)
	}
	if ce.ExitCode != 1 || ce.Path != "as" {
		t.Errorf("unexpected error %+v", ce)
	}
	if !strings.Contains(err.Error(), "no such instruction") {
		t.Errorf("error should carry stderr: %v", err)
	}
}

func TestRunnerError(t *testing.T) {
	boom := errors.New("not found")
	tc := &Toolchain{Runner: &fakeRunner{err: boom}, As: "as", CC: "cc"}
	err := tc.Link(context.Background(), "a.out", nil, nil)
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped runner error, got %v", err)
	}
	var ce *CommandError
	if errors.As(err, &ce) {
		t.Error("a command that never ran is not a *CommandError")
	}
}

func TestExecRunner(t *testing.T) {
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("no sh on PATH")
	}
	res, err := ExecRunner{}.Run(context.Background(), sh, []string{"-c", "echo out; echo err >&2; exit 3"})
	if err != nil {
		t.Fatal(err)
	}
	want := Result{ExitCode: 3, Stdout: "out\n", Stderr: "err\n"}
	if diff := cmp.Diff(want, res); diff != "" {
		t.Errorf("result (-want +got):\n%s", diff)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := (ExecRunner{}).Run(ctx, sh, []string{"-c", "exit 0"}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
