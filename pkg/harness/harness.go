// Package harness runs a single generated problem stub and reports its result.
//
// Generated stubs import this package and pass the configuration value emitted
// into their root package; there is no process-wide configuration.
package harness

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// Problem is implemented by every generated stub.
type Problem interface {
	// Solve returns the answer; its fmt representation is reported.
	Solve() any
}

// Config controls how results are reported.
type Config struct {
	// CopyToClipboard asks Start to hand the result to Clipboard.
	CopyToClipboard bool
	// FinishTimeUnit is the unit the elapsed time is reported in.
	FinishTimeUnit time.Duration
	// Clipboard receives the result when CopyToClipboard is set.
	Clipboard func(text string) error
}

// Result is what Start observed.
type Result struct {
	Name    string
	Value   any
	Elapsed time.Duration
}

// Start solves p and writes progress to w.
// Parameters:
//   - p: problem to solve.
//   - cfg: reporting configuration.
//   - w: destination of the human-readable report.
//
// Returns:
//   - Result: problem name, answer and elapsed time.
//   - error: non-nil if the problem returned nil or the clipboard hook failed.
func Start(p Problem, cfg Config, w io.Writer) (Result, error) {
	res := Result{Name: problemName(p)}
	fmt.Fprintf(w, "Solving %s...\n", res.Name)

	begin := time.Now()
	res.Value = p.Solve()
	res.Elapsed = time.Since(begin)

	unit := cfg.FinishTimeUnit
	if unit <= 0 {
		unit = time.Millisecond
	}
	fmt.Fprintf(w, "Finished in %d %s\n", int64(res.Elapsed/unit), unitName(unit))

	if res.Value == nil {
		fmt.Fprintln(w, "The Result is nil! Please return a valid value.")
		return res, fmt.Errorf("%s returned no result", res.Name)
	}

	answer := fmt.Sprint(res.Value)
	fmt.Fprintf(w, "Result: %s\n", answer)

	if cfg.CopyToClipboard {
		if cfg.Clipboard == nil {
			fmt.Fprintln(w, "No clipboard configured, result not copied.")
			return res, nil
		}
		if err := cfg.Clipboard(answer); err != nil {
			return res, fmt.Errorf("copy result to clipboard: %w", err)
		}
	}
	return res, nil
}

func problemName(p Problem) string {
	name := fmt.Sprintf("%T", p)
	if idx := strings.LastIndex(name, "."); idx != -1 {
		name = name[idx+1:]
	}
	return strings.TrimPrefix(name, "*")
}

func unitName(unit time.Duration) string {
	switch unit {
	case time.Nanosecond:
		return "nanoseconds"
	case time.Microsecond:
		return "microseconds"
	case time.Millisecond:
		return "milliseconds"
	case time.Second:
		return "seconds"
	case time.Minute:
		return "minutes"
	case time.Hour:
		return "hours"
	default:
		return "x " + unit.String()
	}
}
