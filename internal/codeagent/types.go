// Package codeagent implements the code-generation agent (C12): the
// intent -> file-request -> plan -> confirm -> per-step-execute ->
// retry -> validate pipeline that turns a natural-language task into
// applied file changes. Phase ordering is grounded directly on
// original_source/src/jrdev/code_processor.py's CodeProcessor.
package codeagent

import (
	"context"

	"github.com/presstab/jrdev/internal/fileops"
	"github.com/presstab/jrdev/internal/prompts"
	"github.com/presstab/jrdev/internal/providers"
	"github.com/presstab/jrdev/internal/usage"
)

// ContextFile is one piece of ad hoc context the user staged (§4.3
// USER CONTEXT block), distinct from project-wide files.
type ContextFile struct {
	Name    string
	Content string
}

// Request is the input to a single /code invocation.
type Request struct {
	UserTask string

	// ProjectFiles mirrors terminal.project_files: named markdown
	// artifacts (overview, conventions, tree) read from disk and
	// embedded verbatim into the initial request, keyed by an
	// upper-cased label.
	ProjectFiles map[string]string // label -> file path
	Context      []ContextFile
	History      []providers.Message
}

// StepStatus is the per-step state machine (§ step lifecycle):
// pending -> sent -> parsed -> applied | needs_feedback -> sent -> ... | failed.
type StepStatus string

const (
	StepPending       StepStatus = "pending"
	StepSent          StepStatus = "sent"
	StepParsed        StepStatus = "parsed"
	StepApplied       StepStatus = "applied"
	StepNeedsFeedback StepStatus = "needs_feedback"
	StepFailed        StepStatus = "failed"
)

// PlanStep is one entry of the steps plan the LLM returns.
type PlanStep struct {
	OperationType  string `json:"operation_type"`
	Filename       string `json:"filename"`
	TargetLocation string `json:"target_location"`
	Description    string `json:"description"`
}

// Plan is the top-level `{"steps": [...]}` LLM output, plus any files
// referenced by a step but absent from the requested file list.
type Plan struct {
	Steps        []PlanStep `json:"steps"`
	MissingFiles []string   `json:"-"`
}

// PlanDecision is the confirm_plan choice vocabulary (§4.12, spec.md
// §175): confirm_plan(steps) -> {choice ∈ {accept, edit, reprompt, cancel}}.
type PlanDecision string

const (
	PlanAccept   PlanDecision = "accept"
	PlanEdit     PlanDecision = "edit"
	PlanReprompt PlanDecision = "reprompt"
	PlanCancel   PlanDecision = "cancel"
)

// PlanConfirmation is the confirmer's response to a proposed Plan.
// EditedSteps carries the user's hand-edited steps for PlanEdit.
// RepromptText carries the additional instruction for PlanReprompt,
// which loops back to phase 3 (send_file_request) for a revised plan.
type PlanConfirmation struct {
	Decision     PlanDecision
	EditedSteps  []PlanStep
	RepromptText string
}

// PlanConfirmer is the plan-confirmation capability (C12 phase 4):
// present the proposed plan and let the human accept it, edit its
// steps directly, ask for a revised plan, or cancel the whole task
// before any step-execution LLM call is made.
type PlanConfirmer interface {
	ConfirmPlan(plan Plan) (PlanConfirmation, error)
}

// StepResult records the outcome of executing one PlanStep.
type StepResult struct {
	Index        int
	Step         PlanStep
	Status       StepStatus
	FilesChanged []string
	// Warnings carries non-fatal anchor-resolution failures reported by
	// fileops.Apply: the named change was skipped but the rest of the
	// step's batch still applied.
	Warnings []string
	Err      error
}

// ValidationVerdict is the three-way outcome of the validation phase
// (§ code_processor.validate_changed_files): VALID, INVALID: <reason>,
// or indeterminate when the model's response matches neither.
type ValidationVerdict struct {
	Valid         bool
	Indeterminate bool
	Reason        string
}

// Result is the outcome of a full Run.
type Result struct {
	// Chat is the initial response text when no files were requested
	// (pure chat turn, no code changes attempted).
	Chat string

	Plan          Plan
	StepResults   []StepResult
	ChangedFiles  []string
	Validation    *ValidationVerdict
	EmbeddedFiles map[string]bool // for the caller to merge into thread.embedded_files

	// Cancelled is set when the plan confirmer returned PlanCancel: no
	// step-execution LLM call was made and no files were modified.
	Cancelled bool
}

// Deps bundles the collaborators the agent needs. ValidationModel
// lets the validation phase use a cheaper/faster model than the main
// conversation, matching the original's hardcoded model swap.
// PlanConfirmer is optional; a nil PlanConfirmer accepts every plan as
// proposed, matching non-interactive (--accept-all) use.
type Deps struct {
	Root            string
	Streamer        providers.Streamer
	Model           string
	ValidationModel string
	Library         *prompts.Library
	Confirmer       fileops.Confirmer
	PlanConfirmer   PlanConfirmer
	Tracker         *usage.Tracker
}

// Run executes the full pipeline for one user task.
func Run(ctx context.Context, deps Deps, req Request) (*Result, error) {
	return run(ctx, deps, req)
}
