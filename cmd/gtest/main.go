// gtest runs cbc over a set of resolved units and compares every listing
// against the golden .s file next to it.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/xplshn/cbc/pkg/toolchain"
)

type Status string

const (
	Pass  Status = "PASS"
	Fail  Status = "FAIL"
	Skip  Status = "SKIP"
	Error Status = "ERROR"
)

type FileTestResult struct {
	File     string        `json:"file"`
	Status   Status        `json:"status"`
	Message  string        `json:"message,omitempty"`
	Diff     string        `json:"diff,omitempty"`
	Stderr   string        `json:"stderr,omitempty"`
	ExitCode int           `json:"exitCode"`
	Duration time.Duration `json:"duration"`
	Key      string        `json:"key,omitempty"`
	Cached   bool          `json:"cached,omitempty"`
}

type TestSuiteResults map[string]*FileTestResult

var (
	compiler     = flag.String("compiler", "./cbc", "Path to the compiler under test.")
	compilerArgs = flag.String("args", "", "Extra arguments for the compiler (space-separated).")
	testFiles    = flag.String("test-files", "tests/*.json", "Glob pattern(s) for units to test (space-separated).")
	skipFiles    = flag.String("skip-files", "", "Files to skip (space-separated).")
	goldenDir    = flag.String("dir", "", "Directory holding the golden .s files (defaults to each unit's dir).")
	update       = flag.Bool("update", false, "Rewrite the golden files with the current output.")
	outputJSON   = flag.String("output", ".test_results.json", "Output file for the JSON test report.")
	timeout      = flag.Duration("timeout", 5*time.Second, "Timeout for each compiler run.")
	jobs         = flag.Int("j", 4, "Number of parallel test jobs.")
	useCache     = flag.Bool("cached", false, "Skip units whose inputs match a passing result in the previous report.")
	verbose      = flag.Bool("v", false, "Enable verbose logging.")
)

const (
	cRed    = "\x1b[91m"
	cYellow = "\x1b[93m"
	cGreen  = "\x1b[92m"
	cCyan   = "\x1b[96m"
	cNone   = "\x1b[0m"
)

func main() {
	flag.Parse()
	log.SetFlags(0)
	if *jobs < 1 {
		*jobs = 1
	}

	tempDir, err := os.MkdirTemp("", "gtest-*")
	if err != nil {
		log.Fatalf("%s[ERROR]%s Failed to create temp directory: %v\n", cRed, cNone, err)
	}
	defer os.RemoveAll(tempDir)
	setupInterruptHandler(tempDir)

	files, err := expandGlobPatterns(*testFiles, strings.Fields(*skipFiles))
	if err != nil {
		log.Fatalf("%s[ERROR]%s Invalid glob pattern(s): %v\n", cRed, cNone, err)
	}
	if len(files) == 0 {
		log.Println("No test files found matching the pattern(s).")
		return
	}

	previous := loadReport(reportPath())
	s := &suite{
		runner:   toolchain.ExecRunner{},
		compiler: *compiler,
		args:     strings.Fields(*compilerArgs),
		tempDir:  tempDir,
		previous: previous,
	}
	compilerHash, err := hashFiles(*compiler)
	if err != nil {
		log.Printf("%s[WARN]%s Could not hash compiler '%s': %v; caching disabled\n", cYellow, cNone, *compiler, err)
		*useCache = false
	}
	s.compilerHash = compilerHash

	results := s.runAll(files, *jobs)
	printSummary(results)
	report := writeJSONReport(results)
	if hasFailures(report) {
		os.Exit(1)
	}
}

func setupInterruptHandler(tempDir string) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	go func() {
		<-c
		os.RemoveAll(tempDir)
		fmt.Printf("\n%s[INTERRUPT]%s Test run cancelled. Cleaning up...\n", cYellow, cNone)
		os.Exit(1)
	}()
}

type suite struct {
	runner       toolchain.Runner
	compiler     string
	compilerHash string
	args         []string
	tempDir      string
	previous     TestSuiteResults
}

func (s *suite) runAll(files []string, jobs int) []*FileTestResult {
	results := make([]*FileTestResult, len(files))
	sem := make(chan struct{}, jobs)
	var wg sync.WaitGroup
	for i, file := range files {
		wg.Add(1)
		go func(i int, file string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i] = s.testFile(file)
			if *verbose {
				log.Printf("[%s] %s", results[i].Status, file)
			}
		}(i, file)
	}
	wg.Wait()
	sort.Slice(results, func(i, j int) bool { return results[i].File < results[j].File })
	return results
}

func goldenPath(unitFile string) string {
	name := strings.TrimSuffix(filepath.Base(unitFile), filepath.Ext(unitFile)) + ".s"
	if *goldenDir != "" {
		return filepath.Join(*goldenDir, name)
	}
	return filepath.Join(filepath.Dir(unitFile), name)
}

// hashFiles hashes the concatenated contents of paths.
func hashFiles(paths ...string) (string, error) {
	h := xxhash.New()
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return "", err
		}
		h.Write(data)
		h.WriteString("\x00")
	}
	return fmt.Sprintf("%016x", h.Sum64()), nil
}

// cacheKey identifies one test: the unit, its golden listing, the compiler
// binary and the arguments it is run with.
func cacheKey(unitHash, goldenHash, compilerHash string, args []string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(strings.Join(append([]string{unitHash, goldenHash, compilerHash}, args...), "\x00")))
}

func (s *suite) testFile(file string) *FileTestResult {
	golden := goldenPath(file)
	want, err := os.ReadFile(golden)
	if err != nil && !*update {
		return &FileTestResult{File: file, Status: Skip, Message: fmt.Sprintf("no golden listing at %s", golden)}
	}

	var key string
	if *useCache && !*update {
		if unitHash, err := hashFiles(file); err == nil {
			key = cacheKey(unitHash, fmt.Sprintf("%016x", xxhash.Sum64(want)), s.compilerHash, s.args)
			if prev, ok := s.previous[file]; ok && prev.Status == Pass && prev.Key == key {
				cached := *prev
				cached.Cached = true
				return &cached
			}
		}
	}

	got, res := s.compile(file)
	res.Key = key
	if res.Status == Error {
		return res
	}

	if *update {
		if err := os.WriteFile(golden, []byte(got), 0o644); err != nil {
			res.Status, res.Message = Error, fmt.Sprintf("could not write %s: %v", golden, err)
			return res
		}
		res.Status, res.Message = Pass, "golden listing updated"
		return res
	}

	if diff := cmp.Diff(string(want), got); diff != "" {
		res.Status, res.Message, res.Diff = Fail, "listing differs from "+golden, diff
		return res
	}
	res.Status, res.Message = Pass, "listing matches"
	return res
}

// compile runs the compiler with -S and returns the listing it wrote.
func (s *suite) compile(file string) (string, *FileTestResult) {
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	out := filepath.Join(s.tempDir, fmt.Sprintf("%016x.s", xxhash.Sum64String(file)))
	args := append([]string{"-S", "-q", "-o", out}, s.args...)
	args = append(args, file)

	start := time.Now()
	exec, err := s.runner.Run(ctx, s.compiler, args)
	res := &FileTestResult{File: file, Stderr: exec.Stderr, ExitCode: exec.ExitCode, Duration: time.Since(start)}
	switch {
	case err != nil:
		res.Status, res.Message = Error, err.Error()
		return "", res
	case exec.ExitCode != 0:
		res.Status, res.Message = Error, fmt.Sprintf("compiler exited with status %d", exec.ExitCode)
		return "", res
	}

	listing, err := os.ReadFile(out)
	if err != nil {
		res.Status, res.Message = Error, fmt.Sprintf("compiler wrote no listing: %v", err)
		return "", res
	}
	return string(listing), res
}

func printSummary(results []*FileTestResult) {
	counts := make(map[Status]int)
	var total time.Duration
	for _, r := range results {
		counts[r.Status]++
		total += r.Duration
		fmt.Println("----------------------------------------------------------------------")
		fmt.Printf("Testing %s%s%s...\n", cCyan, r.File, cNone)
		switch r.Status {
		case Pass:
			msg := r.Message
			if r.Cached {
				msg += " (cached)"
			}
			fmt.Printf("  [%sPASS%s] %s\n", cGreen, cNone, msg)
		case Fail:
			fmt.Printf("  [%sFAIL%s] %s\n", cRed, cNone, r.Message)
			fmt.Print(formatDiff(r.Diff))
		case Skip:
			fmt.Printf("  [%sSKIP%s] %s\n", cYellow, cNone, r.Message)
		case Error:
			fmt.Printf("  [%sERROR%s] %s\n", cRed, cNone, r.Message)
			if s := strings.TrimSpace(r.Stderr); s != "" {
				fmt.Printf("    %s\n", strings.ReplaceAll(s, "\n", "\n    "))
			}
		}
	}
	fmt.Println("----------------------------------------------------------------------")
	fmt.Printf("%d passed, %d failed, %d errored, %d skipped (compiler time %s)\n",
		counts[Pass], counts[Fail], counts[Error], counts[Skip], total.Round(time.Millisecond))
}

func formatDiff(diff string) string {
	if diff == "" {
		return ""
	}
	var b strings.Builder
	b.WriteString("    --- Diff ---\n")
	for _, line := range strings.Split(strings.TrimRight(diff, "\n"), "\n") {
		switch trimmed := strings.TrimSpace(line); {
		case strings.HasPrefix(trimmed, "-"):
			b.WriteString(cRed + "    " + line + cNone + "\n")
		case strings.HasPrefix(trimmed, "+"):
			b.WriteString(cGreen + "    " + line + cNone + "\n")
		default:
			b.WriteString("    " + line + "\n")
		}
	}
	return b.String()
}

func reportPath() string {
	if *goldenDir != "" {
		return filepath.Join(*goldenDir, *outputJSON)
	}
	return *outputJSON
}

func loadReport(path string) TestSuiteResults {
	results := make(TestSuiteResults)
	data, err := os.ReadFile(path)
	if err != nil {
		return results
	}
	if err := json.Unmarshal(data, &results); err != nil {
		log.Printf("%s[WARN]%s Ignoring unreadable report %s: %v\n", cYellow, cNone, path, err)
		return make(TestSuiteResults)
	}
	return results
}

func writeJSONReport(results []*FileTestResult) TestSuiteResults {
	report := make(TestSuiteResults, len(results))
	for _, r := range results {
		report[r.File] = r
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		log.Printf("%s[ERROR]%s Failed to marshal results to JSON: %v\n", cRed, cNone, err)
		return report
	}
	path := reportPath()
	if err := os.WriteFile(path, data, 0o644); err != nil {
		log.Printf("%s[ERROR]%s Failed to write JSON report to %s: %v\n", cRed, cNone, path, err)
	} else {
		fmt.Printf("Full test report saved to %s\n", path)
	}
	return report
}

func hasFailures(results TestSuiteResults) bool {
	for _, r := range results {
		if r.Status == Fail || r.Status == Error {
			return true
		}
	}
	return false
}

func expandGlobPatterns(patterns string, skip []string) ([]string, error) {
	skipped := make(map[string]bool)
	for _, s := range skip {
		if abs, err := filepath.Abs(s); err == nil {
			skipped[abs] = true
		}
	}
	var all []string
	seen := make(map[string]bool)
	for _, pattern := range strings.Fields(patterns) {
		files, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %s: %w", pattern, err)
		}
		for _, file := range files {
			abs, err := filepath.Abs(file)
			if err != nil || seen[abs] || skipped[abs] {
				continue
			}
			if info, err := os.Stat(abs); err == nil && info.Mode().IsRegular() {
				all = append(all, abs)
				seen[abs] = true
			}
		}
	}
	return all, nil
}
