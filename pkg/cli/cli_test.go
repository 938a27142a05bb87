package cli

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParse(t *testing.T) {
	var (
		out      string
		asmOnly  bool
		linkArgs []string
	)
	fs := NewFlagSet("cbc")
	fs.String(&out, "output", "o", "a.out", "Place the output into <file>.", "file")
	fs.Bool(&asmOnly, "asm", "S", false, "Stop after generating assembly.")
	fs.List(&linkArgs, "linker-arg", "L", nil, "Pass an argument to the linker.", "arg")

	args := []string{"-S", "-o", "x.s", "--linker-arg=-lc", "-L-s", "a.json", "--", "-b.json"}
	if err := fs.Parse(args); err != nil {
		t.Fatal(err)
	}
	if out != "x.s" || !asmOnly {
		t.Errorf("out=%q asm=%v", out, asmOnly)
	}
	if diff := cmp.Diff([]string{"-lc", "-s"}, linkArgs); diff != "" {
		t.Errorf("linker args (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"a.json", "-b.json"}, fs.Args()); diff != "" {
		t.Errorf("positional args (-want +got):\n%s", diff)
	}
}

func TestParseErrors(t *testing.T) {
	var out string
	var b bool
	fs := NewFlagSet("cbc")
	fs.String(&out, "output", "o", "", "", "file")
	fs.Bool(&b, "verbose", "v", false, "")

	for _, args := range [][]string{
		{"--nope"},
		{"-q"},
		{"-o"},
		{"--output"},
		{"--verbose=maybe"},
	} {
		if err := fs.Parse(args); err == nil {
			t.Errorf("Parse(%v) should fail", args)
		}
	}
}

func TestFlagGroups(t *testing.T) {
	on, off := true, false
	on2, off2 := false, false
	fs := NewFlagSet("cbc")
	fs.AddFlagGroup("Warning Flags", "", "warning", "Available Warnings:", []FlagGroupEntry{
		{Name: "common", Prefix: "W", Usage: "common symbols", Enabled: &on, Disabled: &off},
		{Name: "extra", Prefix: "W", Usage: "extra", Enabled: &on2, Disabled: &off2},
	})
	if err := fs.Parse([]string{"-Wno-common", "-Wextra"}); err != nil {
		t.Fatal(err)
	}
	if !off || !on2 {
		t.Errorf("group flags not set: no-common=%v extra=%v", off, on2)
	}
}

func TestHelpPage(t *testing.T) {
	app := NewApp("cbc")
	app.Synopsis = "[options] <unit.json> ..."
	app.Description = "Emits i386 assembly for resolved C-flat translation units."
	var out string
	app.FlagSet.String(&out, "output", "o", "a.out", "Place the output into <file>.", "file")
	on, off := false, false
	app.FlagSet.AddFlagGroup("Feature Flags", "", "feature", "Available Features:", []FlagGroupEntry{
		{Name: "pic", Prefix: "F", Usage: "Emit the PC thunk.", Enabled: &on, Disabled: &off},
	})

	var sb strings.Builder
	app.WriteHelp(&sb, 100)
	help := sb.String()
	for _, want := range []string{"Synopsis", "cbc [options] <unit.json> ...", "-o <file>, --output <file>", "|a.out|", "Feature Flags", "-F<feature>", "Available Features:", "pic"} {
		if !strings.Contains(help, want) {
			t.Errorf("help page missing %q:\n%s", want, help)
		}
	}
	if strings.Contains(help, "--Fpic") {
		t.Error("group flags should not be listed as options")
	}

	sb.Reset()
	app.WriteUsage(&sb, 100)
	if !strings.HasPrefix(sb.String(), "Usage: cbc [options] <unit.json> ...") {
		t.Errorf("unexpected usage:\n%s", sb.String())
	}
}

func TestWrapText(t *testing.T) {
	got := wrapText("one two three four", 9)
	if diff := cmp.Diff([]string{"one two", "three", "four"}, got); diff != "" {
		t.Errorf("wrapText (-want +got):\n%s", diff)
	}
}
