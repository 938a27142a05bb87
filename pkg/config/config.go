package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/xplshn/cbc/pkg/cli"
	"modernc.org/libqbe"
)

type Feature int

const (
	FeatPIC Feature = iota
	FeatGNUStack
	FeatVerboseAsm
	FeatCount
)

type Warning int

const (
	WarnCommon Warning = iota
	WarnExternUnused
	WarnExtra
	WarnCount
)

type Info struct {
	Name        string
	Enabled     bool
	Description string
}

type Config struct {
	Features   map[Feature]Info
	Warnings   map[Warning]Info
	FeatureMap map[string]Feature
	WarningMap map[string]Warning

	GOOS       string
	GOARCH     string
	HostTarget string
	// WordSize is the natural width of the generated code. C-flat always
	// targets i386, whatever the host is.
	WordSize       int
	StackAlignment int
	// M32 is set when the host toolchain defaults to 64-bit objects and
	// must be asked for i386 ones.
	M32 bool

	LinkerArgs []string
}

func NewConfig() *Config {
	cfg := &Config{
		Features:       make(map[Feature]Info),
		Warnings:       make(map[Warning]Info),
		FeatureMap:     make(map[string]Feature),
		WarningMap:     make(map[string]Warning),
		WordSize:       4,
		StackAlignment: 4,
	}

	features := map[Feature]Info{
		FeatPIC:        {"pic", false, "Emit the __x86.get_pc_thunk.bx helper for position-independent code."},
		FeatGNUStack:   {"gnu-stack", true, "Mark the object as not needing an executable stack."},
		FeatVerboseAsm: {"verbose-asm", false, "Annotate the generated listing with comments."},
	}

	warnings := map[Warning]Info{
		WarnCommon:       {"common", false, "Warn about variables left to the linker as common symbols."},
		WarnExternUnused: {"extern-unused", false, "Warn about extern variables no initializer takes the address of."},
		WarnExtra:        {"extra", true, "Enable extra miscellaneous warnings."},
	}

	cfg.Features, cfg.Warnings = features, warnings
	for ft, info := range features {
		cfg.FeatureMap[info.Name] = ft
	}
	for wt, info := range warnings {
		cfg.WarningMap[info.Name] = wt
	}

	return cfg
}

// SetTarget records the host the toolchain runs on. hostTarget names it in
// QBE's terms; when empty it is derived from goos/goarch.
func (c *Config) SetTarget(goos, goarch, hostTarget string) {
	c.GOOS, c.GOARCH = goos, goarch
	if hostTarget == "" {
		c.HostTarget = libqbe.DefaultTarget(goos, goarch)
	} else {
		c.HostTarget = hostTarget
	}

	switch c.HostTarget {
	case "amd64_sysv", "amd64_apple", "arm64", "arm64_apple", "rv64":
		c.M32 = true
	case "arm", "rv32", "i386":
		c.M32 = false
	default:
		fmt.Fprintf(os.Stderr, "cbc: warning: unrecognized host target '%s', assuming a 64-bit toolchain\n", c.HostTarget)
		c.M32 = true
	}
}

func (c *Config) SetFeature(ft Feature, enabled bool) {
	if info, ok := c.Features[ft]; ok {
		info.Enabled = enabled
		c.Features[ft] = info
	}
}

func (c *Config) IsFeatureEnabled(ft Feature) bool { return c.Features[ft].Enabled }

func (c *Config) SetWarning(wt Warning, enabled bool) {
	if info, ok := c.Warnings[wt]; ok {
		info.Enabled = enabled
		c.Warnings[wt] = info
	}
}

func (c *Config) IsWarningEnabled(wt Warning) bool { return c.Warnings[wt].Enabled }

// ApplyFlag applies a single -W/-F style flag such as -Wno-common or
// -Fpic. Unknown names are reported.
func (c *Config) ApplyFlag(flag string) error {
	trimmed := strings.TrimPrefix(flag, "-")
	var isWarning bool
	switch {
	case strings.HasPrefix(trimmed, "W"):
		isWarning = true
	case strings.HasPrefix(trimmed, "F"):
	default:
		return fmt.Errorf("unrecognized flag '%s'", flag)
	}
	name := trimmed[1:]
	enable := !strings.HasPrefix(name, "no-")
	name = strings.TrimPrefix(name, "no-")

	if isWarning && name == "all" {
		for i := Warning(0); i < WarnCount; i++ {
			c.SetWarning(i, enable)
		}
		return nil
	}
	if isWarning {
		w, ok := c.WarningMap[name]
		if !ok {
			return fmt.Errorf("unknown warning '%s'", name)
		}
		c.SetWarning(w, enable)
		return nil
	}
	f, ok := c.FeatureMap[name]
	if !ok {
		return fmt.Errorf("unknown feature '%s'", name)
	}
	c.SetFeature(f, enable)
	return nil
}

// SetupFlagGroups registers -W<warning>/-Wno-<warning> and
// -F<feature>/-Fno-<feature> on fs. The returned entries are indexed by
// Warning and Feature; pass them to ApplyFlagGroups after parsing.
func (c *Config) SetupFlagGroups(fs *cli.FlagSet) ([]cli.FlagGroupEntry, []cli.FlagGroupEntry) {
	warningFlags := make([]cli.FlagGroupEntry, WarnCount)
	for i := Warning(0); i < WarnCount; i++ {
		info := c.Warnings[i]
		enabled, disabled := info.Enabled, false
		warningFlags[i] = cli.FlagGroupEntry{Name: info.Name, Prefix: "W", Usage: info.Description, Enabled: &enabled, Disabled: &disabled}
	}
	featureFlags := make([]cli.FlagGroupEntry, FeatCount)
	for i := Feature(0); i < FeatCount; i++ {
		info := c.Features[i]
		enabled, disabled := info.Enabled, false
		featureFlags[i] = cli.FlagGroupEntry{Name: info.Name, Prefix: "F", Usage: info.Description, Enabled: &enabled, Disabled: &disabled}
	}
	fs.AddFlagGroup("Warning Flags", "Enable or disable specific warnings", "warning", "Available Warnings:", warningFlags)
	fs.AddFlagGroup("Feature Flags", "Enable or disable code generation features", "feature", "Available Features:", featureFlags)
	return warningFlags, featureFlags
}

// ApplyFlagGroups copies parsed flag group values back into c. A -Wno-
// or -Fno- flag wins over the positive form.
func (c *Config) ApplyFlagGroups(warningFlags, featureFlags []cli.FlagGroupEntry) {
	for i, entry := range warningFlags {
		if entry.Enabled != nil {
			c.SetWarning(Warning(i), *entry.Enabled)
		}
		if entry.Disabled != nil && *entry.Disabled {
			c.SetWarning(Warning(i), false)
		}
	}
	for i, entry := range featureFlags {
		if entry.Enabled != nil {
			c.SetFeature(Feature(i), *entry.Enabled)
		}
		if entry.Disabled != nil && *entry.Disabled {
			c.SetFeature(Feature(i), false)
		}
	}
}
