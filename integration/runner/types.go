package runner

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/npc-builder/pkg/edit"
)

// TestSuite defines a complete integration test scenario
// Can either be a regular test with Steps, or a suite that references other Cases
type TestSuite struct {
	Name  string          `json:"name"`
	NPC   string          `json:"npc,omitempty"`   // catalog id to start from, default template otherwise
	Seed  json.RawMessage `json:"seed,omitempty"`  // document imported before the first step
	Steps []TestStep      `json:"steps,omitempty"` // Used for regular tests
	Cases []string        `json:"cases,omitempty"` // Used for suite tests (list of case files)
}

// IsSequence returns true if this is a suite that sequences other cases
func (ts *TestSuite) IsSequence() bool {
	return len(ts.Cases) > 0
}

// TestStep defines a single interaction with the session and its expected
// outcomes. Exactly one of Edit, Rename, Import or Reset is set.
// Reset re-imports the suite's seed, or the default template without one.
type TestStep struct {
	Name         string          `json:"name,omitempty"`
	Edit         *edit.Command   `json:"edit,omitempty"`
	Rename       *RenameStep     `json:"rename,omitempty"`
	Import       json.RawMessage `json:"import,omitempty"`
	Reset        bool            `json:"reset,omitempty"`
	Expectations Expectations    `json:"expect"`
}

// RenameStep is a keystroke in a parameter name field. Without Blur the
// runner waits for the debounced rename to land before checking expectations.
type RenameStep struct {
	Key  string `json:"key"`
	Text string `json:"text"`
	Blur bool   `json:"blur,omitempty"`
}

// Expectations defines what to check after a test step executes
type Expectations struct {
	Status *int `json:"status,omitempty"` // HTTP status of the step request, any 2xx when unset

	Filename   *string `json:"filename,omitempty"`
	Type       *string `json:"type,omitempty"`
	Reference  *string `json:"reference,omitempty"`
	StartState *string `json:"start_state,omitempty"`

	Parameters        []string `json:"parameters,omitempty"`         // keys that must exist
	MissingParameters []string `json:"missing_parameters,omitempty"` // keys that must not exist
	ParameterOrder    []string `json:"parameter_order,omitempty"`    // exact key order

	StateTransitions *int `json:"state_transitions,omitempty"`
	Instructions     *int `json:"instructions,omitempty"` // top-level count

	Valid          *bool    `json:"valid,omitempty"`
	ExportContains []string `json:"export_contains,omitempty"`
}

// TestResult contains the outcome of running a test step
type TestResult struct {
	TestName string
	StepName string
	Success  bool
	Error    error
	Duration time.Duration
	IsReset  bool // True for reset steps (should not count toward pass/fail metrics)
}

// TestJob represents a test suite to be executed
type TestJob struct {
	Name     string
	Suite    TestSuite
	CaseFile string
}

// TestRunResult contains the results of running an entire test suite
type TestRunResult struct {
	Job      TestJob
	Results  []TestResult
	Error    error
	Duration time.Duration
	Session  uuid.UUID // ID of the editing session used for this test
}
