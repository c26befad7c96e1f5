// Package runner provides question.CodeExecutor implementations used to
// grade coding questions.
package runner

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/Jayem09/coduxa-sub000/internal/question"
)

// Kinds of executor selectable from configuration.
const (
	KindProcess = "process"
	KindPiston  = "piston"
	KindNone    = "none"
)

// ErrUnsafeRunner is returned when the local process runner is selected
// without AllowUnsafeLocal.
var ErrUnsafeRunner = errors.New("local process runner executes untrusted code on the host and must be enabled explicitly")

// Options selects and configures an executor.
type Options struct {
	Kind      string
	Timeout   time.Duration
	PistonURL string

	AllowUnsafeLocal bool
	RunAs            *RunAs
}

// New builds the executor named by opts.Kind. KindNone returns nil, which
// makes every coding answer incorrect.
func New(opts Options, logger zerolog.Logger) (question.CodeExecutor, error) {
	switch opts.Kind {
	case KindProcess:
		if !opts.AllowUnsafeLocal {
			return nil, ErrUnsafeRunner
		}
		l := logger.Warn()
		if opts.RunAs == nil {
			l = logger.Error()
		}
		l.Msg("local process runner enabled; candidate code runs on this host")
		return NewProcessRunner(ProcessConfig{Timeout: opts.Timeout, RunAs: opts.RunAs}, logger), nil
	case KindPiston:
		return NewPistonClient(PistonConfig{BaseURL: opts.PistonURL, Timeout: opts.Timeout}, &http.Client{Timeout: opts.Timeout + 5*time.Second}, logger), nil
	case KindNone, "":
		logger.Warn().Msg("code runner disabled; coding questions cannot be passed")
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown code runner %q", opts.Kind)
	}
}
