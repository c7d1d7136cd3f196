package harness

import (
	"fmt"
	"strings"
)

// TraceEvent records what one step did.
type TraceEvent struct {
	Step    int    `json:"step"`
	Op      string `json:"op"`
	Line    string `json:"line"`
	Outcome string `json:"outcome,omitempty"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Name is the scenario name.
	Name string `json:"name"`

	// Pass indicates overall test success.
	// True if all expect clauses match.
	Pass bool `json:"pass"`

	// Trace contains one event per step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// FinalCount is the number of records left in the store.
	FinalCount int64 `json:"final_count"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult(name string) *Result {
	return &Result{
		Name:   name,
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	r.Pass = false
}

// Transcript renders the trace as stable text for golden comparison.
func (r *Result) Transcript() []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n", r.Name)
	for _, ev := range r.Trace {
		fmt.Fprintf(&b, "%02d %s", ev.Step, ev.Line)
		if ev.Outcome != "" {
			fmt.Fprintf(&b, " -> %s", ev.Outcome)
		}
		b.WriteByte('\n')
	}
	return []byte(b.String())
}
