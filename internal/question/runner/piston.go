package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Jayem09/coduxa-sub000/internal/question"
)

// PistonClient runs code on a Piston-compatible sandbox service
// (POST /api/v2/execute).
type PistonClient struct {
	baseURL    string
	httpClient *http.Client
	versions   map[string]string
	logger     zerolog.Logger
}

var _ question.CodeExecutor = (*PistonClient)(nil)

// PistonConfig holds connection details for the sandbox service.
type PistonConfig struct {
	BaseURL string
	Timeout time.Duration
	// Versions pins a runtime version per language; "*" is used otherwise.
	Versions map[string]string
}

func NewPistonClient(cfg PistonConfig, httpClient *http.Client, logger zerolog.Logger) *PistonClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:2000"
	}
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &PistonClient{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient: httpClient,
		versions:   cfg.Versions,
		logger:     logger.With().Str("component", "piston_runner").Logger(),
	}
}

type pistonFile struct {
	Content string `json:"content"`
}

type pistonRequest struct {
	Language string       `json:"language"`
	Version  string       `json:"version"`
	Files    []pistonFile `json:"files"`
	Stdin    string       `json:"stdin"`
}

type pistonStage struct {
	Stdout string `json:"stdout"`
	Stderr string `json:"stderr"`
	Code   *int   `json:"code"`
	Signal string `json:"signal"`
}

type pistonResponse struct {
	Run     pistonStage  `json:"run"`
	Compile *pistonStage `json:"compile,omitempty"`
	Message string       `json:"message,omitempty"`
}

// RunTests implements question.CodeExecutor.
func (c *PistonClient) RunTests(ctx context.Context, language, source string, cases []question.TestCase) (question.TestReport, error) {
	report := question.TestReport{Results: make([]question.TestResult, 0, len(cases))}
	for _, tc := range cases {
		res, err := c.execute(ctx, language, source, tc)
		if err != nil {
			return report, err
		}
		report.Results = append(report.Results, res)
	}
	return report, nil
}

func (c *PistonClient) execute(ctx context.Context, language, source string, tc question.TestCase) (question.TestResult, error) {
	version := c.versions[language]
	if version == "" {
		version = "*"
	}
	body, err := json.Marshal(pistonRequest{
		Language: language,
		Version:  version,
		Files:    []pistonFile{{Content: source}},
		Stdin:    tc.Input,
	})
	if err != nil {
		return question.TestResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v2/execute", bytes.NewReader(body))
	if err != nil {
		return question.TestResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return question.TestResult{}, err
	}
	defer resp.Body.Close()

	var payload pistonResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return question.TestResult{}, fmt.Errorf("decode piston response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return question.TestResult{}, fmt.Errorf("piston non-200: %d %s", resp.StatusCode, payload.Message)
	}

	res := question.TestResult{
		Actual:   payload.Run.Stdout,
		Duration: time.Since(start).Milliseconds(),
	}
	switch {
	case payload.Compile != nil && payload.Compile.Code != nil && *payload.Compile.Code != 0:
		res.Error = "compile error: " + strings.TrimSpace(payload.Compile.Stderr)
	case payload.Run.Signal != "":
		res.Error = "killed by " + payload.Run.Signal
	case payload.Run.Code != nil && *payload.Run.Code != 0:
		res.Error = fmt.Sprintf("exit code %d: %s", *payload.Run.Code, strings.TrimSpace(payload.Run.Stderr))
	default:
		res.Passed = OutputMatches(payload.Run.Stdout, tc.ExpectedOutput)
	}
	return res, nil
}
