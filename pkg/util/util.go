package util

import (
	"fmt"
	"io"
	"os"

	"github.com/xplshn/cbc/pkg/config"
)

// Exit statuses of the compiler driver.
const (
	ExitOK       = 0
	ExitFailure  = 1
	ExitInternal = 2
)

// Output is where diagnostics go; Exit ends the process. Both are
// variables so tests can observe them.
var (
	Output io.Writer = os.Stderr
	Exit             = os.Exit
)

// Error prints a formatted error message and exits with ExitFailure.
func Error(format string, args ...any) {
	fmt.Fprintf(Output, "cbc: \033[31merror:\033[0m ")
	fmt.Fprintf(Output, format, args...)
	fmt.Fprintln(Output)
	Exit(ExitFailure)
}

// InternalError reports a broken compiler invariant and exits with
// ExitInternal.
func InternalError(format string, args ...any) {
	fmt.Fprintf(Output, "cbc: \033[31minternal compiler error:\033[0m ")
	fmt.Fprintf(Output, format, args...)
	fmt.Fprintln(Output)
	Exit(ExitInternal)
}

// Warn prints a formatted warning if wt is enabled in cfg.
func Warn(cfg *config.Config, wt config.Warning, format string, args ...any) {
	if cfg == nil || !cfg.IsWarningEnabled(wt) {
		return
	}
	fmt.Fprintf(Output, "cbc: \033[33mwarning:\033[0m ")
	fmt.Fprintf(Output, format, args...)
	fmt.Fprintf(Output, " [-W%s]\n", cfg.Warnings[wt].Name)
}

// Info prints a progress note.
func Info(format string, args ...any) {
	fmt.Fprintf(Output, "cbc: info: ")
	fmt.Fprintf(Output, format, args...)
	fmt.Fprintln(Output)
}

// PrintFeatures lists every feature with its current state.
func PrintFeatures(w io.Writer, cfg *config.Config) {
	for i := config.Feature(0); i < config.FeatCount; i++ {
		info := cfg.Features[i]
		fmt.Fprintf(w, "  - %-20s: %v (%s)\n", info.Name, info.Enabled, info.Description)
	}
}

// PrintWarnings lists every warning with its current state.
func PrintWarnings(w io.Writer, cfg *config.Config) {
	for i := config.Warning(0); i < config.WarnCount; i++ {
		info := cfg.Warnings[i]
		fmt.Fprintf(w, "  - %-20s: %v (%s)\n", info.Name, info.Enabled, info.Description)
	}
}
