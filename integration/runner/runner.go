package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/npc-builder/internal/handlers"
	"github.com/jwebster45206/npc-builder/pkg/npc"
)

type ErrorHandlingMode string

const ErrorHandlingExit ErrorHandlingMode = "exit"
const ErrorHandlingContinue ErrorHandlingMode = "continue"

// Runner executes integration tests against a running npc-builder API
type Runner struct {
	BaseURL           string
	Client            *http.Client
	Timeout           time.Duration
	Logger            func(format string, args ...any)
	ErrorHandlingMode ErrorHandlingMode
}

// NewRunner creates a new test runner
func NewRunner(baseURL string) *Runner {
	return &Runner{
		BaseURL:           strings.TrimSuffix(baseURL, "/"),
		Client:            &http.Client{Timeout: 30 * time.Second},
		Timeout:           30 * time.Second,
		Logger:            func(string, ...any) {},
		ErrorHandlingMode: ErrorHandlingContinue,
	}
}

// LoadTestSuite loads a test suite from a JSON file
func LoadTestSuite(filename string) (TestSuite, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return TestSuite{}, fmt.Errorf("failed to read test file %s: %w", filename, err)
	}

	var suite TestSuite
	if err := json.Unmarshal(content, &suite); err != nil {
		return TestSuite{}, fmt.Errorf("failed to parse JSON in %s: %w", filename, err)
	}

	return suite, nil
}

// LoadTestSuiteWithExpansion loads a test suite and expands it if it's a sequence
// Returns a list of actual test suites (expanded from the sequence if needed)
func LoadTestSuiteWithExpansion(filename string, casesDir string) ([]TestJob, error) {
	suite, err := LoadTestSuite(filename)
	if err != nil {
		return nil, err
	}

	if !suite.IsSequence() {
		return []TestJob{{
			Name:     suite.Name,
			Suite:    suite,
			CaseFile: filename,
		}}, nil
	}

	var jobs []TestJob
	for _, caseFile := range suite.Cases {
		casePath := filepath.Join(casesDir, caseFile)

		// a sequence may reference another sequence
		subJobs, err := LoadTestSuiteWithExpansion(casePath, casesDir)
		if err != nil {
			return nil, fmt.Errorf("failed to load case '%s' referenced by sequence '%s': %w", caseFile, suite.Name, err)
		}

		jobs = append(jobs, subJobs...)
	}

	return jobs, nil
}

// RunSuite executes a complete test suite in a fresh editing session, which
// is deleted afterwards.
func (r *Runner) RunSuite(ctx context.Context, suite TestSuite) (TestRunResult, error) {
	start := time.Now()
	result := TestRunResult{
		Job: TestJob{
			Name:  suite.Name,
			Suite: suite,
		},
		Results: make([]TestResult, 0, len(suite.Steps)),
	}

	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	created, err := CreateSession(ctx, r.Client, r.BaseURL, suite.NPC)
	if err != nil {
		result.Error = fmt.Errorf("failed to create session: %w", err)
		result.Duration = time.Since(start)
		return result, result.Error
	}
	result.Session = created.ID
	defer func() {
		if err := DeleteSession(context.WithoutCancel(ctx), r.Client, r.BaseURL, created.ID); err != nil {
			r.Logger("    failed to delete session %s: %v", created.ID, err)
		}
	}()

	if len(suite.Seed) > 0 {
		if _, err := ImportDocument(ctx, r.Client, r.BaseURL, created.ID, suite.Seed); err != nil {
			result.Error = fmt.Errorf("failed to seed document: %w", err)
			result.Duration = time.Since(start)
			return result, result.Error
		}
	}

	for i, step := range suite.Steps {
		r.Logger("    [%d/%d] Running step: %s", i+1, len(suite.Steps), step.Name)
		stepResult := r.runStep(ctx, created.ID, step, suite.Seed)
		stepResult.TestName = suite.Name
		result.Results = append(result.Results, stepResult)

		if stepResult.Error != nil {
			r.Logger("    [%d/%d] ✗ %s: %v", i+1, len(suite.Steps), step.Name, stepResult.Error)
			if result.Error == nil {
				result.Error = fmt.Errorf("step %d (%s) failed: %w", i, step.Name, stepResult.Error)
			}
			if r.ErrorHandlingMode == ErrorHandlingExit {
				break
			}
			continue
		}

		r.Logger("    [%d/%d] ✓ %s (%v)", i+1, len(suite.Steps), step.Name, stepResult.Duration)
	}

	result.Duration = time.Since(start)
	return result, result.Error
}

// runStep performs one step and checks its expectations
func (r *Runner) runStep(ctx context.Context, id uuid.UUID, step TestStep, seed json.RawMessage) TestResult {
	start := time.Now()
	result := TestResult{
		StepName: step.Name,
	}
	fail := func(err error) TestResult {
		result.Error = err
		result.Duration = time.Since(start)
		return result
	}

	var (
		status int
		err    error
		wait   bool
	)
	switch {
	case step.Reset:
		result.IsReset = true
		doc := seed
		if len(doc) == 0 {
			doc, err = npc.Export(npc.Default())
			if err != nil {
				return fail(err)
			}
		}
		status, err = ImportDocument(ctx, r.Client, r.BaseURL, id, doc)
	case step.Edit != nil:
		status, err = PostEdit(ctx, r.Client, r.BaseURL, id, *step.Edit)
	case step.Rename != nil:
		status, err = PostRename(ctx, r.Client, r.BaseURL, id, *step.Rename)
		wait = !step.Rename.Blur
	case len(step.Import) > 0:
		status, err = ImportDocument(ctx, r.Client, r.BaseURL, id, step.Import)
	default:
		return fail(errors.New("step has no edit, rename, import or reset"))
	}

	if err := checkStatus(step.Expectations.Status, status, err); err != nil {
		return fail(err)
	}

	check := func() error {
		return r.checkExpectations(ctx, id, step.Expectations)
	}
	if wait {
		err = PollUntil(ctx, RenameTimeout, check)
	} else {
		err = check()
	}
	if err != nil {
		return fail(fmt.Errorf("expectation failed: %w", err))
	}

	result.Success = true
	result.Duration = time.Since(start)
	return result
}

func checkStatus(want *int, got int, err error) error {
	if want == nil {
		return err
	}
	if got != *want {
		if err != nil {
			return fmt.Errorf("expected status %d: %w", *want, err)
		}
		return fmt.Errorf("expected status %d, got %d", *want, got)
	}
	return nil
}

// checkExpectations validates the test expectations against the session's
// current document
func (r *Runner) checkExpectations(ctx context.Context, id uuid.UUID, exp Expectations) error {
	current, err := GetSession(ctx, r.Client, r.BaseURL, id)
	if err != nil {
		return fmt.Errorf("failed to get session: %w", err)
	}
	if err := checkDocument(exp, current); err != nil {
		return err
	}

	if exp.Valid != nil {
		validation, err := GetValidation(ctx, r.Client, r.BaseURL, id)
		if err != nil {
			return fmt.Errorf("failed to validate: %w", err)
		}
		if validation.Valid != *exp.Valid {
			return fmt.Errorf("expected valid to be %t, got %t (issues: %v)", *exp.Valid, validation.Valid, validation.Issues)
		}
	}

	if len(exp.ExportContains) > 0 {
		data, err := GetExport(ctx, r.Client, r.BaseURL, id)
		if err != nil {
			return fmt.Errorf("failed to export: %w", err)
		}
		for _, want := range exp.ExportContains {
			if !strings.Contains(string(data), want) {
				return fmt.Errorf("expected export to contain %q", want)
			}
		}
	}
	return nil
}

func checkDocument(exp Expectations, current *handlers.SessionResponse) error {
	doc := current.Document
	if doc == nil {
		return errors.New("session has no document")
	}

	if exp.Filename != nil && current.Filename != *exp.Filename {
		return fmt.Errorf("expected filename %s, got %s", *exp.Filename, current.Filename)
	}
	if exp.Type != nil && string(doc.Kind) != *exp.Type {
		return fmt.Errorf("expected Type %s, got %s", *exp.Type, doc.Kind)
	}
	if exp.Reference != nil && doc.Reference != *exp.Reference {
		return fmt.Errorf("expected Reference %s, got %s", *exp.Reference, doc.Reference)
	}
	if exp.StartState != nil && doc.StartState != *exp.StartState {
		return fmt.Errorf("expected StartState %s, got %s", *exp.StartState, doc.StartState)
	}

	for _, key := range exp.Parameters {
		if !doc.Parameters.Has(key) {
			return fmt.Errorf("expected parameter %s, have %v", key, doc.Parameters.Keys())
		}
	}
	for _, key := range exp.MissingParameters {
		if doc.Parameters.Has(key) {
			return fmt.Errorf("expected parameter %s to be gone", key)
		}
	}
	if len(exp.ParameterOrder) > 0 && !slices.Equal(exp.ParameterOrder, doc.Parameters.Keys()) {
		return fmt.Errorf("expected parameter order %v, got %v", exp.ParameterOrder, doc.Parameters.Keys())
	}

	if exp.StateTransitions != nil && len(doc.StateTransitions) != *exp.StateTransitions {
		return fmt.Errorf("expected %d state transitions, got %d", *exp.StateTransitions, len(doc.StateTransitions))
	}
	if exp.Instructions != nil && len(doc.Instructions) != *exp.Instructions {
		return fmt.Errorf("expected %d instructions, got %d", *exp.Instructions, len(doc.Instructions))
	}
	return nil
}
