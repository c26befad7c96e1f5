package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Jayem09/coduxa-sub000/internal/question"
)

// ErrUnsupportedLanguage is returned when no interpreter is configured for a language.
var ErrUnsupportedLanguage = errors.New("unsupported language")

const (
	defaultTimeout   = 5 * time.Second
	defaultMaxOutput = 64 * 1024
)

// Interpreter describes how to run one language: Command is executed with
// the path of the source file appended as the last argument.
type Interpreter struct {
	Command  []string
	FileName string
}

// DefaultInterpreters covers the languages exam questions are written in.
func DefaultInterpreters() map[string]Interpreter {
	return map[string]Interpreter{
		"javascript": {Command: []string{"node"}, FileName: "main.js"},
		"python":     {Command: []string{"python3", "-I"}, FileName: "main.py"},
		"go":         {Command: []string{"go", "run"}, FileName: "main.go"},
		"ruby":       {Command: []string{"ruby"}, FileName: "main.rb"},
	}
}

// RunAs is the unprivileged account child processes are started as.
type RunAs struct {
	UID uint32
	GID uint32
}

// RunAsFromIDs returns nil when uid is 0, meaning no credential change.
func RunAsFromIDs(uid, gid uint32) *RunAs {
	if uid == 0 {
		return nil
	}
	return &RunAs{UID: uid, GID: gid}
}

// ProcessConfig configures the local process runner.
type ProcessConfig struct {
	Interpreters map[string]Interpreter
	Timeout      time.Duration // per test case
	MaxOutput    int           // bytes of stdout kept per case
	RunAs        *RunAs
}

// ProcessRunner executes code as a local child process, one process per
// test case, inside a throwaway directory with a minimal environment. Each
// case runs in its own process group which is killed once the case ends.
// With RunAs set the child drops to that account and can only reach files
// the account may read. It is not a sandbox against a hostile host user.
type ProcessRunner struct {
	cfg    ProcessConfig
	logger zerolog.Logger
}

var _ question.CodeExecutor = (*ProcessRunner)(nil)

// NewProcessRunner creates a runner, filling unset config fields with defaults.
func NewProcessRunner(cfg ProcessConfig, logger zerolog.Logger) *ProcessRunner {
	if cfg.Interpreters == nil {
		cfg.Interpreters = DefaultInterpreters()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxOutput <= 0 {
		cfg.MaxOutput = defaultMaxOutput
	}
	return &ProcessRunner{
		cfg:    cfg,
		logger: logger.With().Str("component", "process_runner").Logger(),
	}
}

// RunTests implements question.CodeExecutor.
func (r *ProcessRunner) RunTests(ctx context.Context, language, source string, cases []question.TestCase) (question.TestReport, error) {
	interp, ok := r.cfg.Interpreters[strings.ToLower(language)]
	if !ok || len(interp.Command) == 0 {
		return question.TestReport{}, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, language)
	}

	dir, err := os.MkdirTemp("", "coderun-*")
	if err != nil {
		return question.TestReport{}, fmt.Errorf("create workdir: %w", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, interp.FileName)
	if err := os.WriteFile(path, []byte(source), 0o600); err != nil {
		return question.TestReport{}, fmt.Errorf("write source: %w", err)
	}
	if ra := r.cfg.RunAs; ra != nil {
		for _, p := range []string{dir, path} {
			if err := os.Chown(p, int(ra.UID), int(ra.GID)); err != nil {
				return question.TestReport{}, fmt.Errorf("hand workdir to uid %d: %w", ra.UID, err)
			}
		}
	}

	report := question.TestReport{Results: make([]question.TestResult, 0, len(cases))}
	for _, tc := range cases {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Results = append(report.Results, r.runCase(ctx, interp, dir, path, tc))
	}
	return report, nil
}

func (r *ProcessRunner) runCase(ctx context.Context, interp Interpreter, dir, path string, tc question.TestCase) question.TestResult {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	args := append(append([]string{}, interp.Command[1:]...), path)
	cmd := exec.CommandContext(ctx, interp.Command[0], args...)
	cmd.Dir = dir
	cmd.Env = []string{"PATH=" + os.Getenv("PATH"), "HOME=" + dir, "TMPDIR=" + dir}
	cmd.Stdin = strings.NewReader(tc.Input)
	cmd.WaitDelay = 500 * time.Millisecond
	confine(cmd, r.cfg.RunAs)

	stdout := &limitedBuffer{max: r.cfg.MaxOutput}
	stderr := &limitedBuffer{max: 4096}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)
	killGroup(cmd)

	res := question.TestResult{
		Actual:   stdout.String(),
		Duration: elapsed.Milliseconds(),
	}
	switch {
	case ctx.Err() == context.DeadlineExceeded:
		res.Error = "time limit exceeded"
	case err != nil:
		res.Error = err.Error()
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			res.Error += ": " + msg
		}
	default:
		res.Passed = OutputMatches(res.Actual, tc.ExpectedOutput)
	}

	r.logger.Debug().
		Bool("passed", res.Passed).
		Dur("elapsed", elapsed).
		Str("error", res.Error).
		Msg("test case finished")
	return res
}

// OutputMatches compares program output with the expected output, ignoring
// surrounding whitespace and line-ending style.
func OutputMatches(actual, expected string) bool {
	norm := func(s string) string {
		return strings.TrimSpace(strings.ReplaceAll(s, "\r\n", "\n"))
	}
	return norm(actual) == norm(expected)
}

// limitedBuffer keeps at most max bytes and silently drops the rest.
type limitedBuffer struct {
	buf bytes.Buffer
	max int
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	if room := b.max - b.buf.Len(); room > 0 {
		if len(p) > room {
			b.buf.Write(p[:room])
		} else {
			b.buf.Write(p)
		}
	}
	return len(p), nil
}

func (b *limitedBuffer) String() string {
	return b.buf.String()
}
