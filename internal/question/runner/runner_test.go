package runner

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jayem09/coduxa-sub000/internal/question"
)

func shellRunner(t *testing.T, timeout time.Duration) *ProcessRunner {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	return NewProcessRunner(ProcessConfig{
		Interpreters: map[string]Interpreter{
			"shell": {Command: []string{"sh"}, FileName: "main.sh"},
		},
		Timeout: timeout,
	}, zerolog.Nop())
}

func TestProcessRunner_PassesAndFails(t *testing.T) {
	r := shellRunner(t, 2*time.Second)
	cases := []question.TestCase{
		{Input: "2\n", ExpectedOutput: "4"},
		{Input: "5\n", ExpectedOutput: "10\n"},
		{Input: "3\n", ExpectedOutput: "7"},
	}

	report, err := r.RunTests(context.Background(), "shell", "read x\necho $((x*2))\n", cases)
	require.NoError(t, err)
	require.Len(t, report.Results, 3)
	assert.True(t, report.Results[0].Passed)
	assert.True(t, report.Results[1].Passed)
	assert.False(t, report.Results[2].Passed)
	assert.False(t, report.Passed(len(cases)))
}

func TestProcessRunner_Timeout(t *testing.T) {
	r := shellRunner(t, 100*time.Millisecond)

	report, err := r.RunTests(context.Background(), "shell", "sleep 2\necho done\n", []question.TestCase{{ExpectedOutput: "done"}})
	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	assert.False(t, report.Results[0].Passed)
	assert.Equal(t, "time limit exceeded", report.Results[0].Error)
}

func TestProcessRunner_UnsupportedLanguage(t *testing.T) {
	r := NewProcessRunner(ProcessConfig{Interpreters: map[string]Interpreter{}}, zerolog.Nop())
	_, err := r.RunTests(context.Background(), "cobol", "DISPLAY 'HI'.", []question.TestCase{{ExpectedOutput: "HI"}})
	assert.ErrorIs(t, err, ErrUnsupportedLanguage)
}

func TestRunAsFromIDs(t *testing.T) {
	assert.Nil(t, RunAsFromIDs(0, 0))
	assert.Equal(t, &RunAs{UID: 1000, GID: 100}, RunAsFromIDs(1000, 100))
}

func TestOutputMatches(t *testing.T) {
	assert.True(t, OutputMatches("hello\r\n", "hello"))
	assert.True(t, OutputMatches("  a\nb  ", "a\nb"))
	assert.False(t, OutputMatches("a b", "ab"))
}

func TestPistonClient_RunTests(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v2/execute", r.URL.Path)
		var req pistonRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "python", req.Language)
		assert.Equal(t, "3.10.0", req.Version)

		code := 0
		out := pistonResponse{Run: pistonStage{Stdout: req.Stdin + "\n", Code: &code}}
		if req.Stdin == "boom" {
			code = 1
			out.Run = pistonStage{Stderr: "Traceback", Code: &code}
		}
		_ = json.NewEncoder(w).Encode(out)
	}))
	defer srv.Close()

	c := NewPistonClient(PistonConfig{BaseURL: srv.URL, Versions: map[string]string{"python": "3.10.0"}}, srv.Client(), zerolog.Nop())
	cases := []question.TestCase{
		{Input: "echo", ExpectedOutput: "echo"},
		{Input: "boom", ExpectedOutput: "boom"},
	}

	report, err := c.RunTests(context.Background(), "python", "print(input())", cases)
	require.NoError(t, err)
	require.Len(t, report.Results, 2)
	assert.True(t, report.Results[0].Passed)
	assert.False(t, report.Results[1].Passed)
	assert.Contains(t, report.Results[1].Error, "exit code 1")
}

func TestPistonClient_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"runtime is unknown"}`))
	}))
	defer srv.Close()

	c := NewPistonClient(PistonConfig{BaseURL: srv.URL}, srv.Client(), zerolog.Nop())
	_, err := c.RunTests(context.Background(), "brainfuck", "+", []question.TestCase{{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "runtime is unknown")
}

func TestNew_SelectsExecutor(t *testing.T) {
	ex, err := New(Options{Kind: KindNone}, zerolog.Nop())
	require.NoError(t, err)
	assert.Nil(t, ex)

	_, err = New(Options{Kind: KindProcess}, zerolog.Nop())
	assert.ErrorIs(t, err, ErrUnsafeRunner)

	ex, err = New(Options{Kind: KindProcess, AllowUnsafeLocal: true, RunAs: RunAsFromIDs(65534, 65534)}, zerolog.Nop())
	require.NoError(t, err)
	require.IsType(t, &ProcessRunner{}, ex)
	assert.Equal(t, &RunAs{UID: 65534, GID: 65534}, ex.(*ProcessRunner).cfg.RunAs)

	ex, err = New(Options{Kind: KindPiston, PistonURL: "http://piston.local"}, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &PistonClient{}, ex)

	_, err = New(Options{Kind: "docker"}, zerolog.Nop())
	assert.Error(t, err)
}
