package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/xplshn/cbc/pkg/cli"
	"github.com/xplshn/cbc/pkg/codegen"
	"github.com/xplshn/cbc/pkg/config"
	"github.com/xplshn/cbc/pkg/entity"
	"github.com/xplshn/cbc/pkg/toolchain"
	"github.com/xplshn/cbc/pkg/types"
	"github.com/xplshn/cbc/pkg/unit"
	"github.com/xplshn/cbc/pkg/util"
)

func main() {
	app := cli.NewApp("cbc")
	app.Synopsis = "[options] <unit.json> ..."
	app.Description = "The C-flat backend. Reads resolved translation units, lays out their global and static data as i386 assembly, and hands the result to the host assembler and linker."
	app.Authors = []string{"xplshn"}
	app.Repository = "<https://github.com/xplshn/cbc>"

	var (
		outFile      string
		target       string
		linkerArgs   []string
		asmOnly      bool
		objOnly      bool
		dumpEntities bool
		quiet        bool
		printFlags   bool
	)

	fs := app.FlagSet
	fs.String(&outFile, "output", "o", "", "Place the output into <file>.", "file")
	fs.String(&target, "target", "t", "", "Host toolchain target, in QBE's naming (e.g. amd64_sysv).", "target")
	fs.List(&linkerArgs, "linker-arg", "L", []string{}, "Pass an argument to the linker.", "arg")
	fs.Bool(&asmOnly, "asm", "S", false, "Stop after writing the assembly listing.")
	fs.Bool(&objOnly, "compile", "c", false, "Assemble, but do not link.")
	fs.Bool(&dumpEntities, "dump-entities", "d", false, "Print the classified globals and exit.")
	fs.Bool(&quiet, "quiet", "q", false, "Do not print progress.")
	fs.Bool(&printFlags, "print-flags", "", false, "Print the effective features and warnings and exit.")

	cfg := config.NewConfig()
	warningFlags, featureFlags := cfg.SetupFlagGroups(fs)

	app.Action = func(inputFiles []string) error {
		cfg.ApplyFlagGroups(warningFlags, featureFlags)
		cfg.SetTarget(runtime.GOOS, runtime.GOARCH, target)
		cfg.LinkerArgs = append(cfg.LinkerArgs, linkerArgs...)

		if printFlags {
			fmt.Println("Features:")
			util.PrintFeatures(os.Stdout, cfg)
			fmt.Println("Warnings:")
			util.PrintWarnings(os.Stdout, cfg)
			return nil
		}

		if len(inputFiles) == 0 {
			util.Error("no input files specified.")
		}
		if outFile != "" && len(inputFiles) > 1 && (asmOnly || objOnly) {
			util.Error("cannot specify -o with -S or -c and multiple input files")
		}

		progress := func(format string, args ...any) {
			if !quiet {
				fmt.Printf(format+"\n", args...)
			}
		}
		if !quiet {
			util.Info("host target '%s', emitting i386 code (m32: %v)", cfg.HostTarget, cfg.M32)
		}

		tempDir, err := os.MkdirTemp("", "cbc-*")
		if err != nil {
			util.Error("could not create a temporary directory: %v", err)
		}
		d := &driver{cfg: cfg, tc: toolchain.New(cfg.M32), tempDir: tempDir}
		defer d.cleanup()
		ctx := context.Background()

		progress("----------------------")
		var objects []string
		for _, in := range inputFiles {
			progress("Loading %s...", in)
			u, err := unit.LoadFile(in, types.NewTable(int64(cfg.WordSize)))
			if err != nil {
				d.fail("%v", err)
			}

			if dumpEntities {
				dump(os.Stdout, u.Scope)
				continue
			}

			progress("Generating assembly...")
			listing := d.generate(u)

			asmPath := filepath.Join(tempDir, stem(in)+".s")
			if asmOnly {
				asmPath = outputName(outFile, in, ".s")
			}
			if err := os.WriteFile(asmPath, []byte(listing), 0o644); err != nil {
				d.fail("could not write '%s': %v", asmPath, err)
			}
			if asmOnly {
				continue
			}

			objPath := filepath.Join(tempDir, stem(in)+".o")
			if objOnly {
				objPath = outputName(outFile, in, ".o")
			}
			progress("Assembling %s...", objPath)
			if err := d.tc.Assemble(ctx, asmPath, objPath); err != nil {
				d.fail("assembler failed: %v", err)
			}
			objects = append(objects, objPath)
		}

		if dumpEntities || asmOnly || objOnly {
			progress("Done!")
			return nil
		}

		if outFile == "" {
			outFile = "a.out"
		}
		progress("Linking to create '%s'...", outFile)
		if err := d.tc.Link(ctx, outFile, objects, cfg.LinkerArgs); err != nil {
			d.fail("linker failed: %v", err)
		}
		progress("----------------------")
		progress("Done!")
		return nil
	}

	if err := app.Run(os.Args[1:]); err != nil {
		os.Exit(util.ExitFailure)
	}
}

type driver struct {
	cfg     *config.Config
	tc      *toolchain.Toolchain
	tempDir string
}

func (d *driver) cleanup() {
	if d.tempDir != "" {
		os.RemoveAll(d.tempDir)
	}
}

// fail removes the scratch directory, then exits through util.Error.
func (d *driver) fail(format string, args ...any) {
	d.cleanup()
	util.Error(format, args...)
}

// generate returns the rendered listing for u, or exits: with an internal
// error status for a width the emitter cannot encode, and a plain error
// status for an initializer that does not fit its variable.
func (d *driver) generate(u *unit.Unit) string {
	a, err := codegen.Generate(u, d.cfg)
	if err != nil {
		if codegen.IsInternal(err) {
			d.cleanup()
			util.InternalError("%v", err)
		}
		d.fail("%v", err)
	}
	return a.String()
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// outputName is outFile when one was given, else the input's stem with ext.
func outputName(outFile, in, ext string) string {
	if outFile != "" {
		return outFile
	}
	return stem(in) + ext
}

func dump(w io.Writer, top *entity.ToplevelScope) {
	section := func(title string, es []*entity.Entity) {
		fmt.Fprintf(w, "%s:\n", title)
		for _, e := range es {
			fmt.Fprintf(w, "  %-20s %-8s size=%d align=%d\n", e.SymbolName(), e.Storage, e.AllocSize(), e.Alignment())
		}
	}
	section("initialized", top.InitializedGlobals())
	section("common", top.CommonSymbols())
	section("extern", top.ExternalVariables())
	fmt.Fprintf(w, "functions:\n")
	for _, f := range top.Functions() {
		fmt.Fprintf(w, "  %s\n", f)
	}
}
