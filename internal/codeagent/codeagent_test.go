package codeagent

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/presstab/jrdev/internal/fileops"
	"github.com/presstab/jrdev/internal/prompts"
	"github.com/presstab/jrdev/internal/providers"
	"github.com/presstab/jrdev/internal/usage"
)

func TestRequestedFilesParsesList(t *testing.T) {
	text := "Reasoning...\nget_files [\"a.go\", \"b.go\"]\n"
	got := requestedFiles(text)
	if len(got) != 2 || got[0] != "a.go" || got[1] != "b.go" {
		t.Fatalf("unexpected files: %+v", got)
	}
}

func TestRequestedFilesNoneWhenAbsent(t *testing.T) {
	if got := requestedFiles("just chat, no files needed"); got != nil {
		t.Fatalf("expected nil, got %+v", got)
	}
}

func TestCutoffStringExtractsFencedBlock(t *testing.T) {
	text := "intro\n```json\n{\"steps\": []}\n```\ntrailing"
	got := cutoffString(text, "```json", "```")
	if got != `{"steps": []}` {
		t.Fatalf("unexpected extraction: %q", got)
	}
}

func TestParsePlanFlagsMissingFiles(t *testing.T) {
	response := "```json\n" + `{"steps": [{"operation_type": "ADD", "filename": "missing.go", "target_location": "end", "description": "add a thing"}]}` + "\n```"
	plan, err := parsePlan(response, []string{"present.go"})
	if err != nil {
		t.Fatalf("parsePlan: %v", err)
	}
	if len(plan.MissingFiles) != 1 || plan.MissingFiles[0] != "missing.go" {
		t.Fatalf("expected missing.go flagged, got %+v", plan.MissingFiles)
	}
}

func TestParseValidationThreeWay(t *testing.T) {
	cases := []struct {
		in   string
		want ValidationVerdict
	}{
		{"VALID", ValidationVerdict{Valid: true}},
		{"INVALID: syntax error on line 4", ValidationVerdict{Reason: "syntax error on line 4"}},
		{"I'm not sure", ValidationVerdict{Indeterminate: true}},
	}
	for _, c := range cases {
		got := parseValidation(c.in)
		if got.Valid != c.want.Valid || got.Indeterminate != c.want.Indeterminate || got.Reason != c.want.Reason {
			t.Fatalf("parseValidation(%q) = %+v, want %+v", c.in, got, c.want)
		}
	}
}

func TestValidatePlanRejectsMissingRequiredField(t *testing.T) {
	plan := Plan{Steps: []PlanStep{{OperationType: "ADD"}}}
	if err := validatePlan(plan); err == nil {
		t.Fatal("expected schema validation error for incomplete step")
	}
}

func TestValidateChangesEnvelopeRejectsBadOperation(t *testing.T) {
	if err := validateChangesEnvelope([]byte(`{"changes": [{"operation": "FROBNICATE", "filename": "x.go"}]}`)); err == nil {
		t.Fatal("expected schema validation error for unknown operation")
	}
}

// scriptedStreamer returns canned responses in sequence, ignoring the
// actual request content (tests only need to drive the pipeline
// through its phases).
type scriptedStreamer struct {
	responses []string
	calls     int
}

func (s *scriptedStreamer) Stream(ctx context.Context, req providers.ChatRequest, onChunk providers.ChunkFunc, onProgress providers.ProgressFunc, opts providers.StreamOpts) (*providers.Usage, error) {
	if s.calls >= len(s.responses) {
		onChunk(providers.StreamChunk{Content: ""})
		return &providers.Usage{}, nil
	}
	resp := s.responses[s.calls]
	s.calls++
	onChunk(providers.StreamChunk{Content: resp})
	return &providers.Usage{InputTokens: 10, OutputTokens: 10}, nil
}
func (s *scriptedStreamer) Name() string         { return "scripted" }
func (s *scriptedStreamer) DefaultModel() string { return "scripted-model" }
func (s *scriptedStreamer) Shape() providers.Shape { return providers.ShapeOpenAI }

type autoYesConfirmer struct{}

func (autoYesConfirmer) ConfirmDiff(filepath, diff string) (fileops.ConfirmResult, string, error) {
	return fileops.ConfirmYes, "", nil
}

// scriptedPlanConfirmer returns canned plan decisions in sequence.
type scriptedPlanConfirmer struct {
	decisions []PlanConfirmation
	calls     int
}

func (s *scriptedPlanConfirmer) ConfirmPlan(plan Plan) (PlanConfirmation, error) {
	if s.calls >= len(s.decisions) {
		return PlanConfirmation{Decision: PlanAccept}, nil
	}
	d := s.decisions[s.calls]
	s.calls++
	return d, nil
}

func testDeps(t *testing.T, streamer providers.Streamer) (Deps, string) {
	t.Helper()
	promptDir := t.TempDir()
	if _, err := prompts.SeedDefaults(promptDir); err != nil {
		t.Fatalf("SeedDefaults: %v", err)
	}
	lib, err := prompts.NewLibrary(promptDir)
	if err != nil {
		t.Fatalf("NewLibrary: %v", err)
	}

	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "main.go"), []byte("package main\n\nfunc main() {}\n"), 0o644); err != nil {
		t.Fatalf("write main.go: %v", err)
	}

	return Deps{
		Root:      root,
		Streamer:  streamer,
		Model:     "scripted-model",
		Library:   lib,
		Confirmer: autoYesConfirmer{},
		Tracker:   usage.NewTracker(),
	}, root
}

func TestRunChatOnlyWhenNoFilesRequested(t *testing.T) {
	streamer := &scriptedStreamer{responses: []string{"No file changes needed, just answer directly."}}
	deps, _ := testDeps(t, streamer)

	result, err := Run(context.Background(), deps, Request{UserTask: "what does this repo do?"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Chat == "" {
		t.Fatal("expected chat-only result")
	}
	if len(result.ChangedFiles) != 0 {
		t.Fatalf("expected no changed files, got %+v", result.ChangedFiles)
	}
}

func TestRunAppliesStepsAndValidates(t *testing.T) {
	steps := "```json\n" + `{"steps": [{"operation_type": "ADD", "filename": "main.go", "target_location": "end of file", "description": "add a comment"}]}` + "\n```"
	change := "```json\n" + `{"changes": [{"operation": "ADD", "filename": "main.go", "start_line": 3, "new_content": "// added\n"}]}` + "\n```"

	streamer := &scriptedStreamer{responses: []string{
		"get_files [\"main.go\"]",
		steps,
		change,
		"VALID",
	}}
	deps, root := testDeps(t, streamer)

	result, err := Run(context.Background(), deps, Request{UserTask: "add a comment to main.go"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.ChangedFiles) != 1 {
		t.Fatalf("expected one changed file, got %+v", result.ChangedFiles)
	}
	if result.Validation == nil || !result.Validation.Valid {
		t.Fatalf("expected a VALID verdict, got %+v", result.Validation)
	}
	if !result.EmbeddedFiles["main.go"] {
		t.Fatalf("expected main.go recorded as embedded, got %+v", result.EmbeddedFiles)
	}

	raw, err := os.ReadFile(filepath.Join(root, "main.go"))
	if err != nil {
		t.Fatalf("read main.go: %v", err)
	}
	if !strings.Contains(string(raw), "added") {
		t.Fatalf("expected applied change in file, got: %q", raw)
	}
}

func TestRunCancelledPlanAppliesNoChangesAndMakesNoStepCall(t *testing.T) {
	steps := "```json\n" + `{"steps": [{"operation_type": "ADD", "filename": "main.go", "target_location": "end of file", "description": "add a comment"}]}` + "\n```"

	streamer := &scriptedStreamer{responses: []string{
		"get_files [\"main.go\"]",
		steps,
		// no further responses: a step-execution call here would exhaust
		// the script and return an empty chunk, which completeStep would
		// mark StepFailed rather than StepApplied, catching a regression.
	}}
	deps, root := testDeps(t, streamer)
	deps.PlanConfirmer = &scriptedPlanConfirmer{decisions: []PlanConfirmation{{Decision: PlanCancel}}}

	result, err := Run(context.Background(), deps, Request{UserTask: "add a comment to main.go"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !result.Cancelled {
		t.Fatal("expected Cancelled to be set")
	}
	if len(result.ChangedFiles) != 0 || len(result.StepResults) != 0 {
		t.Fatalf("expected no step execution, got changed=%+v results=%+v", result.ChangedFiles, result.StepResults)
	}

	raw, err := os.ReadFile(filepath.Join(root, "main.go"))
	if err != nil {
		t.Fatalf("read main.go: %v", err)
	}
	if strings.Contains(string(raw), "added") {
		t.Fatalf("expected main.go untouched, got: %q", raw)
	}
}

func TestRunRepromptedPlanUsesRevisedSteps(t *testing.T) {
	firstSteps := "```json\n" + `{"steps": [{"operation_type": "ADD", "filename": "main.go", "target_location": "end of file", "description": "add a comment"}]}` + "\n```"
	revisedSteps := "```json\n" + `{"steps": [{"operation_type": "ADD", "filename": "main.go", "target_location": "top of file", "description": "add a different comment"}]}` + "\n```"
	change := "```json\n" + `{"changes": [{"operation": "ADD", "filename": "main.go", "start_line": 1, "new_content": "// revised\n"}]}` + "\n```"

	streamer := &scriptedStreamer{responses: []string{
		"get_files [\"main.go\"]",
		firstSteps,
		revisedSteps,
		change,
		"VALID",
	}}
	deps, _ := testDeps(t, streamer)
	deps.PlanConfirmer = &scriptedPlanConfirmer{decisions: []PlanConfirmation{
		{Decision: PlanReprompt, RepromptText: "put it at the top instead"},
		{Decision: PlanAccept},
	}}

	result, err := Run(context.Background(), deps, Request{UserTask: "add a comment to main.go"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Plan.Steps[0].TargetLocation != "top of file" {
		t.Fatalf("expected the reprompted plan to be used, got %+v", result.Plan.Steps)
	}
	if len(result.ChangedFiles) != 1 {
		t.Fatalf("expected one changed file, got %+v", result.ChangedFiles)
	}
}

func TestRunRetriesFailedStepOnSecondPass(t *testing.T) {
	steps := "```json\n" + `{"steps": [{"operation_type": "ADD", "filename": "main.go", "target_location": "end of file", "description": "add a comment"}]}` + "\n```"
	badChange := "not valid json at all"
	goodChange := "```json\n" + `{"changes": [{"operation": "ADD", "filename": "main.go", "start_line": 3, "new_content": "// added\n"}]}` + "\n```"

	streamer := &scriptedStreamer{responses: []string{
		"get_files [\"main.go\"]",
		steps,
		badChange,
		goodChange,
	}}
	deps, _ := testDeps(t, streamer)

	result, err := Run(context.Background(), deps, Request{UserTask: "add a comment to main.go"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.ChangedFiles) != 1 {
		t.Fatalf("expected the retry pass to succeed, got %+v changed files", result.ChangedFiles)
	}
}
