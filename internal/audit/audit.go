// Package audit runs a list of health checks over the workshop data and
// writes a plain text report.
package audit

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/edwinkarolczyk/Warsztat-Menager-sub000/internal/util"
)

// Check is one named audit step. Run returns a short result message.
type Check struct {
	Name string
	Run  func(ctx context.Context) (string, error)
}

// Step is the outcome of one check.
type Step struct {
	Name      string
	Succeeded bool
	Message   string
	Duration  time.Duration
}

// Report collects the steps of one audit run.
type Report struct {
	Started time.Time
	Steps   []Step
}

// Failed returns the number of failed steps.
func (r *Report) Failed() int {
	n := 0
	for _, s := range r.Steps {
		if !s.Succeeded {
			n++
		}
	}
	return n
}

// OK reports whether every step succeeded.
func (r *Report) OK() bool {
	return r.Failed() == 0
}

// Options configures Run.
type Options struct {
	Clock  util.Clock
	Logger zerolog.Logger
}

// Run executes checks in order. A failing check does not stop the run.
func Run(ctx context.Context, checks []Check, opts Options) *Report {
	clock := util.OrSystem(opts.Clock)
	log := opts.Logger.With().Str("component", "audit").Logger()

	report := &Report{Started: clock.Now()}
	for _, c := range checks {
		if ctx.Err() != nil {
			report.Steps = append(report.Steps, Step{Name: c.Name, Message: ctx.Err().Error()})
			continue
		}

		step := runStep(ctx, c)
		report.Steps = append(report.Steps, step)
		if step.Succeeded {
			log.Debug().Str("check", step.Name).Str("result", step.Message).Msg("audit check passed")
		} else {
			log.Warn().Str("check", step.Name).Str("error", step.Message).Msg("audit check failed")
		}
	}

	log.Info().Int("checks", len(report.Steps)).Int("failed", report.Failed()).Msg("audit finished")
	return report
}

func runStep(ctx context.Context, c Check) (step Step) {
	start := time.Now()
	step.Name = c.Name
	defer func() {
		if r := recover(); r != nil {
			step.Succeeded = false
			step.Message = fmt.Sprintf("panic: %v", r)
		}
		step.Duration = time.Since(start)
	}()

	msg, err := c.Run(ctx)
	if err != nil {
		step.Message = err.Error()
		return step
	}
	step.Succeeded = true
	step.Message = msg
	return step
}

// WriteTo renders the report as text.
func (r *Report) WriteTo(w io.Writer) (int64, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Audyt WM %s\n", util.FormatDateTime(r.Started))
	fmt.Fprintf(&b, "%s\n", strings.Repeat("=", 40))
	for _, s := range r.Steps {
		status := "OK"
		if !s.Succeeded {
			status = "FAIL"
		}
		fmt.Fprintf(&b, "[%-4s] %s: %s (%s)\n", status, s.Name, s.Message, s.Duration.Round(time.Millisecond))
	}
	fmt.Fprintf(&b, "%s\n", strings.Repeat("=", 40))
	fmt.Fprintf(&b, "checks: %d, failed: %d\n", len(r.Steps), r.Failed())

	n, err := io.WriteString(w, b.String())
	return int64(n), err
}

// ReportPath returns override when set, else <logsDir>/audyt_wm-<stamp>.txt.
func ReportPath(logsDir, override string, now time.Time) string {
	if override != "" {
		return override
	}
	return filepath.Join(logsDir, "audyt_wm-"+now.Format(util.StampFormat)+".txt")
}

// Save writes the report to path.
func (r *Report) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating report: %w", err)
	}
	if _, err := r.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("writing report: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing report: %w", err)
	}
	return nil
}
