package cli

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/term"
)

const indentUnit = "    "

func indent(level int) string { return strings.Repeat(indentUnit, level) }

type Value interface {
	String() string
	Set(string) error
	Get() any
}

type stringValue struct{ p *string }

func (v *stringValue) Set(s string) error { *v.p = s; return nil }
func (v *stringValue) String() string     { return *v.p }
func (v *stringValue) Get() any           { return *v.p }

type boolValue struct{ p *bool }

func (v *boolValue) Set(s string) error {
	if s == "" {
		*v.p = true
		return nil
	}
	val, err := strconv.ParseBool(s)
	if err != nil {
		return fmt.Errorf("invalid boolean value '%s': %w", s, err)
	}
	*v.p = val
	return nil
}
func (v *boolValue) String() string { return strconv.FormatBool(*v.p) }
func (v *boolValue) Get() any       { return *v.p }

type listValue struct{ p *[]string }

func (v *listValue) Set(s string) error { *v.p = append(*v.p, s); return nil }
func (v *listValue) String() string     { return strings.Join(*v.p, ", ") }
func (v *listValue) Get() any           { return *v.p }

type Flag struct {
	Name         string
	Shorthand    string
	Usage        string
	Value        Value
	DefValue     string
	ExpectedType string
}

func (f *Flag) isBool() bool {
	_, ok := f.Value.(*boolValue)
	return ok
}

// FlagGroup is a family of on/off switches sharing a prefix, like -W<name>
// and -Wno-<name>.
type FlagGroup struct {
	Name                 string
	Description          string
	Flags                []FlagGroupEntry
	GroupType            string
	AvailableFlagsHeader string
}

type FlagGroupEntry struct {
	Name     string
	Prefix   string
	Usage    string
	Enabled  *bool
	Disabled *bool
}

type FlagSet struct {
	name       string
	flags      map[string]*Flag
	shorthands map[string]*Flag
	args       []string
	flagGroups []FlagGroup
}

func NewFlagSet(name string) *FlagSet {
	return &FlagSet{
		name:       name,
		flags:      make(map[string]*Flag),
		shorthands: make(map[string]*Flag),
	}
}

func (f *FlagSet) Args() []string          { return f.args }
func (f *FlagSet) Lookup(name string) *Flag { return f.flags[name] }

func (f *FlagSet) String(p *string, name, shorthand, value, usage, expectedType string) {
	*p = value
	f.Var(&stringValue{p}, name, shorthand, usage, value, expectedType)
}

func (f *FlagSet) Bool(p *bool, name, shorthand string, value bool, usage string) {
	*p = value
	f.Var(&boolValue{p}, name, shorthand, usage, strconv.FormatBool(value), "")
}

func (f *FlagSet) List(p *[]string, name, shorthand string, value []string, usage, expectedType string) {
	*p = value
	f.Var(&listValue{p}, name, shorthand, usage, fmt.Sprintf("%v", value), expectedType)
}

func (f *FlagSet) Var(value Value, name, shorthand, usage, defValue, expectedType string) {
	if name == "" {
		panic("flag name cannot be empty")
	}
	if _, ok := f.flags[name]; ok {
		panic(fmt.Sprintf("flag redefined: %s", name))
	}
	flag := &Flag{Name: name, Shorthand: shorthand, Usage: usage, Value: value, DefValue: defValue, ExpectedType: expectedType}
	f.flags[name] = flag
	if shorthand != "" {
		if _, ok := f.shorthands[shorthand]; ok {
			panic(fmt.Sprintf("shorthand flag redefined: %s", shorthand))
		}
		f.shorthands[shorthand] = flag
	}
}

// AddFlagGroup defines <prefix><name> and <prefix>no-<name> for every entry
// and lists the group separately in the help page.
func (f *FlagSet) AddFlagGroup(name, description, groupType, availableFlagsHeader string, entries []FlagGroupEntry) {
	for i := range entries {
		e := &entries[i]
		if e.Enabled != nil {
			f.Bool(e.Enabled, e.Prefix+e.Name, "", *e.Enabled, e.Usage)
		}
		if e.Disabled != nil {
			f.Bool(e.Disabled, e.Prefix+"no-"+e.Name, "", *e.Disabled, "Disable '"+e.Name+"'")
		}
	}
	f.flagGroups = append(f.flagGroups, FlagGroup{
		Name:                 name,
		Description:          description,
		Flags:                entries,
		GroupType:            groupType,
		AvailableFlagsHeader: availableFlagsHeader,
	})
}

// Parse accepts --name[=value], -name[=value] for multi-letter flags, and
// -x[value] for shorthands. Everything else is positional.
func (f *FlagSet) Parse(arguments []string) error {
	f.args = []string{}
	for i := 0; i < len(arguments); i++ {
		arg := arguments[i]
		if arg == "--" {
			f.args = append(f.args, arguments[i+1:]...)
			break
		}
		if len(arg) < 2 || arg[0] != '-' {
			f.args = append(f.args, arg)
			continue
		}

		body := strings.TrimPrefix(strings.TrimPrefix(arg, "-"), "-")
		name, value, hasValue := strings.Cut(body, "=")
		flag, ok := f.flags[name]
		if !ok && !strings.HasPrefix(arg, "--") {
			if err := f.parseShortFlag(arg, arguments, &i); err != nil {
				return err
			}
			continue
		}
		if !ok {
			return fmt.Errorf("unknown flag: --%s", name)
		}
		switch {
		case hasValue:
		case flag.isBool():
			value = ""
		case i+1 < len(arguments):
			i++
			value = arguments[i]
		default:
			return fmt.Errorf("flag needs an argument: %s", arg)
		}
		if err := flag.Value.Set(value); err != nil {
			return err
		}
	}
	return nil
}

func (f *FlagSet) parseShortFlag(arg string, arguments []string, i *int) error {
	shorthand := arg[1:2]
	flag, ok := f.shorthands[shorthand]
	if !ok {
		return fmt.Errorf("unknown flag: %s", arg)
	}
	if flag.isBool() {
		return flag.Value.Set("")
	}
	value := arg[2:]
	if value == "" {
		if *i+1 >= len(arguments) {
			return fmt.Errorf("flag needs an argument: -%s", shorthand)
		}
		*i++
		value = arguments[*i]
	}
	return flag.Value.Set(value)
}

type App struct {
	Name        string
	Synopsis    string
	Description string
	Authors     []string
	Repository  string
	FlagSet     *FlagSet
	Action      func(args []string) error
}

func NewApp(name string) *App {
	return &App{Name: name, FlagSet: NewFlagSet(name)}
}

func (a *App) Run(arguments []string) error {
	help := false
	a.FlagSet.Bool(&help, "help", "h", false, "Display this information")

	if err := a.FlagSet.Parse(arguments); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", a.Name, err)
		a.WriteUsage(os.Stderr, terminalWidth())
		return err
	}
	if help {
		a.WriteHelp(os.Stdout, terminalWidth())
		return nil
	}
	if a.Action != nil {
		return a.Action(a.FlagSet.Args())
	}
	return nil
}

// WriteUsage writes the short usage listing, wrapped to width columns.
func (a *App) WriteUsage(w io.Writer, width int) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Usage: %s %s\n", a.Name, a.Synopsis)
	l := a.newLayout(width)
	if opts := a.optionFlags(); len(opts) > 0 {
		fmt.Fprintf(&sb, "\n%sOptions\n", indent(1))
		for _, flag := range opts {
			l.entry(&sb, formatFlag(flag), flag.Usage, defaultOf(flag))
		}
	}
	fmt.Fprintf(&sb, "\nRun '%s --help' for all available options and flags.\n", a.Name)
	io.WriteString(w, sb.String())
}

// WriteHelp writes the full help page, flag groups included.
func (a *App) WriteHelp(w io.Writer, width int) {
	var sb strings.Builder
	l := a.newLayout(width)

	sb.WriteString("\n")
	if len(a.Authors) > 0 {
		fmt.Fprintf(&sb, "%sCopyright (c) %d: %s and contributors\n", indent(1), time.Now().Year(), strings.Join(a.Authors, ", "))
	}
	if a.Repository != "" {
		fmt.Fprintf(&sb, "%sFor more details refer to %s\n", indent(1), a.Repository)
	}
	if a.Synopsis != "" {
		fmt.Fprintf(&sb, "\n%sSynopsis\n%s%s %s\n", indent(1), indent(2), a.Name, a.Synopsis)
	}
	if a.Description != "" {
		fmt.Fprintf(&sb, "\n%sDescription\n", indent(1))
		for _, line := range wrapText(a.Description, width-len(indent(2))) {
			fmt.Fprintf(&sb, "%s%s\n", indent(2), line)
		}
	}
	if opts := a.optionFlags(); len(opts) > 0 {
		fmt.Fprintf(&sb, "\n%sOptions\n", indent(1))
		for _, flag := range opts {
			l.entry(&sb, formatFlag(flag), flag.Usage, defaultOf(flag))
		}
	}

	groups := append([]FlagGroup(nil), a.FlagSet.flagGroups...)
	sort.Slice(groups, func(i, j int) bool { return groups[i].Name < groups[j].Name })
	for _, g := range groups {
		if len(g.Flags) == 0 {
			continue
		}
		groupType := g.GroupType
		if groupType == "" {
			groupType = "flag"
		}
		prefix := g.Flags[0].Prefix
		fmt.Fprintf(&sb, "\n%s%s\n", indent(1), g.Name)
		l.entry(&sb, fmt.Sprintf("-%s<%s>", prefix, groupType), "Enable a specific "+groupType, "")
		l.entry(&sb, fmt.Sprintf("-%sno-<%s>", prefix, groupType), "Disable a specific "+groupType, "")
		if g.AvailableFlagsHeader != "" {
			fmt.Fprintf(&sb, "%s%s\n", indent(1), g.AvailableFlagsHeader)
		}
		entries := append([]FlagGroupEntry(nil), g.Flags...)
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
		for _, e := range entries {
			state := "|-|"
			if e.Enabled != nil && *e.Enabled && (e.Disabled == nil || !*e.Disabled) {
				state = "|x|"
			}
			l.entry(&sb, e.Name, e.Usage, state)
		}
	}
	io.WriteString(w, sb.String())
}

func (a *App) optionFlags() []*Flag {
	var out []*Flag
	for _, flag := range a.FlagSet.flags {
		if !a.isGroupFlag(flag.Name) {
			out = append(out, flag)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (a *App) isGroupFlag(name string) bool {
	for _, g := range a.FlagSet.flagGroups {
		for _, e := range g.Flags {
			if name == e.Prefix+e.Name || name == e.Prefix+"no-"+e.Name {
				return true
			}
		}
	}
	return false
}

func formatFlag(flag *Flag) string {
	var sb strings.Builder
	arg := ""
	if !flag.isBool() && flag.ExpectedType != "" {
		arg = " <" + flag.ExpectedType + ">"
	}
	if flag.Shorthand != "" {
		fmt.Fprintf(&sb, "-%s%s, ", flag.Shorthand, arg)
	}
	fmt.Fprintf(&sb, "--%s%s", flag.Name, arg)
	return sb.String()
}

func defaultOf(flag *Flag) string {
	if flag.isBool() || flag.DefValue == "" || flag.DefValue == "[]" {
		return ""
	}
	return "|" + flag.DefValue + "|"
}

// layout aligns help entries in three columns: flag, usage, annotation.
type layout struct {
	width      int
	leftWidth  int
	usageWidth int
}

func (a *App) newLayout(width int) *layout {
	l := &layout{width: width}
	grow := func(left, usage string) {
		l.leftWidth = max(l.leftWidth, len(left))
		l.usageWidth = max(l.usageWidth, len(usage))
	}
	for _, flag := range a.optionFlags() {
		grow(formatFlag(flag), flag.Usage)
	}
	for _, g := range a.FlagSet.flagGroups {
		for _, e := range g.Flags {
			grow(e.Name, e.Usage)
			grow(fmt.Sprintf("-%sno-<%s>", e.Prefix, g.GroupType), "")
		}
	}
	return l
}

func (l *layout) entry(sb *strings.Builder, left, usage, right string) {
	lead := indent(2)
	avail := max(l.width-len(lead)-l.leftWidth-3-len(right), 10)
	lines := wrapText(usage, avail)
	first := ""
	if len(lines) > 0 {
		first = lines[0]
	}
	if right != "" {
		fmt.Fprintf(sb, "%s%-*s %-*s  %s\n", lead, l.leftWidth, left, min(l.usageWidth, avail), first, right)
	} else {
		fmt.Fprintf(sb, "%s%-*s %s\n", lead, l.leftWidth, left, first)
	}
	pad := strings.Repeat(" ", l.leftWidth+1)
	for _, line := range lines[min(1, len(lines)):] {
		fmt.Fprintf(sb, "%s%s%s\n", lead, pad, line)
	}
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return 80
	}
	return max(width, 20)
}

func wrapText(text string, maxWidth int) []string {
	words := strings.Fields(text)
	if maxWidth <= 0 || len(words) == 0 {
		return words
	}
	var lines []string
	var line strings.Builder
	for _, word := range words {
		if line.Len() > 0 && line.Len()+1+len(word) > maxWidth {
			lines = append(lines, line.String())
			line.Reset()
		}
		if line.Len() > 0 {
			line.WriteByte(' ')
		}
		line.WriteString(word)
	}
	if line.Len() > 0 {
		lines = append(lines, line.String())
	}
	return lines
}
