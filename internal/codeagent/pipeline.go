package codeagent

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/presstab/jrdev/internal/fileops"
	"github.com/presstab/jrdev/internal/providers"
)

// run is CodeProcessor.process: send the initial request, then
// process_code_response decides whether it's a pure chat turn or a
// file-change task.
func run(ctx context.Context, deps Deps, req Request) (*Result, error) {
	initial, err := sendInitialRequest(ctx, deps, req)
	if err != nil {
		return nil, fmt.Errorf("codeagent: initial request: %w", err)
	}

	files := requestedFiles(initial)
	if len(files) == 0 {
		return &Result{Chat: initial, EmbeddedFiles: map[string]bool{}}, nil
	}

	return processCodeResponse(ctx, deps, req, initial, files)
}

// sendInitialRequest builds the user message (task + project files +
// staged context), loads the "analyze_task" system prompt, and streams
// the response. Grounded on CodeProcessor.send_initial_request.
func sendInitialRequest(ctx context.Context, deps Deps, req Request) (string, error) {
	var sb strings.Builder
	sb.WriteString("Here is the task to complete: ")
	sb.WriteString(req.UserTask)

	for label, path := range req.ProjectFiles {
		content, err := os.ReadFile(path)
		if err != nil {
			continue // matches the original's "warn and skip unreadable project file"
		}
		fmt.Fprintf(&sb, "\n\n%s:\n%s", strings.ToUpper(label), content)
	}

	if len(req.Context) > 0 {
		sb.WriteString("\n\nUSER CONTEXT:\n")
		for i, c := range req.Context {
			fmt.Fprintf(&sb, "\n--- Context File %d: %s ---\n%s\n", i+1, c.Name, c.Content)
		}
	}

	systemPrompt, err := deps.Library.Load("analyze_task")
	if err != nil {
		return "", err
	}

	msgs := []providers.Message{
		{Role: providers.RoleSystem, Content: systemPrompt},
		{Role: providers.RoleUser, Content: sb.String()},
	}
	return streamText(ctx, deps, deps.Model, msgs, "code:initial")
}

// processCodeResponse is CodeProcessor.process_code_response: request
// the content of the files the model asked for, plan steps, execute
// each step (with one retry pass for failures), and validate.
func processCodeResponse(ctx context.Context, deps Deps, req Request, initialResponse string, files []string) (*Result, error) {
	fileResponse, err := sendFileRequest(ctx, deps, req, initialResponse, files)
	if err != nil {
		return nil, fmt.Errorf("codeagent: file request: %w", err)
	}

	plan, err := parsePlan(fileResponse, files)
	if err != nil {
		return nil, err
	}
	if len(plan.Steps) == 0 {
		return nil, fmt.Errorf("codeagent: no valid steps found in response")
	}
	if err := validatePlan(plan); err != nil {
		return nil, err
	}

	plan, cancelled, err := confirmPlan(ctx, deps, req, initialResponse, files, plan)
	if err != nil {
		return nil, err
	}
	if cancelled {
		return &Result{Plan: plan, Cancelled: true, EmbeddedFiles: map[string]bool{}}, nil
	}

	contents := getFileContents(deps.Root, files)

	results := make([]StepResult, len(plan.Steps))
	var failed []int
	embedded := make(map[string]bool)
	changedSet := make(map[string]bool)

	for i, step := range plan.Steps {
		result := completeStep(ctx, deps, step, files, contents, "")
		result.Index = i
		results[i] = result
		if result.Status == StepApplied {
			for _, f := range result.FilesChanged {
				changedSet[f] = true
			}
		} else {
			failed = append(failed, i)
		}
	}

	// Second pass: retry steps that didn't succeed on the first try.
	for _, idx := range failed {
		result := completeStep(ctx, deps, plan.Steps[idx], files, contents, "")
		result.Index = idx
		results[idx] = result
		if result.Status == StepApplied {
			for _, f := range result.FilesChanged {
				changedSet[f] = true
			}
		}
	}

	for _, f := range files {
		embedded[f] = true
	}

	var changedFiles []string
	for f := range changedSet {
		changedFiles = append(changedFiles, f)
	}

	out := &Result{
		Plan:          plan,
		StepResults:   results,
		ChangedFiles:  changedFiles,
		EmbeddedFiles: embedded,
	}

	if len(changedFiles) > 0 {
		verdict, err := validateChangedFiles(ctx, deps, changedFiles)
		if err != nil {
			return out, err
		}
		out.Validation = &verdict
	}

	return out, nil
}

// confirmPlan is CodeProcessor's confirm_plan checkpoint (§4.12): show
// the proposed plan and act on the human's decision before any
// step-execution LLM call is made. A nil PlanConfirmer accepts the
// plan unchanged, matching non-interactive (--accept-all) use.
// PlanReprompt loops back to phase 3 (send_file_request) with the
// user's additional instructions and re-validates the revised plan.
func confirmPlan(ctx context.Context, deps Deps, req Request, initialResponse string, files []string, plan Plan) (Plan, bool, error) {
	if deps.PlanConfirmer == nil {
		return plan, false, nil
	}

	for {
		confirmation, err := deps.PlanConfirmer.ConfirmPlan(plan)
		if err != nil {
			return plan, false, fmt.Errorf("codeagent: confirm plan: %w", err)
		}

		switch confirmation.Decision {
		case PlanAccept:
			return plan, false, nil
		case PlanEdit:
			if confirmation.EditedSteps != nil {
				plan.Steps = confirmation.EditedSteps
			}
			return plan, false, nil
		case PlanCancel:
			return plan, true, nil
		case PlanReprompt:
			fileResponse, err := sendFileRequest(ctx, deps, req, initialResponse+"\n\nAdditional instructions: "+confirmation.RepromptText, files)
			if err != nil {
				return plan, false, fmt.Errorf("codeagent: file request: %w", err)
			}
			revised, err := parsePlan(fileResponse, files)
			if err != nil {
				return plan, false, err
			}
			if len(revised.Steps) == 0 {
				return plan, false, fmt.Errorf("codeagent: no valid steps found in response")
			}
			if err := validatePlan(revised); err != nil {
				return plan, false, err
			}
			plan = revised
		default:
			return plan, false, fmt.Errorf("codeagent: unknown plan decision %q", confirmation.Decision)
		}
	}
}

// sendFileRequest is CodeProcessor.send_file_request.
func sendFileRequest(ctx context.Context, deps Deps, req Request, initialResponse string, files []string) (string, error) {
	systemPrompt, err := deps.Library.Load("create_steps")
	if err != nil {
		return "", err
	}
	filesContent := getFileContents(deps.Root, files)

	msgs := []providers.Message{
		{Role: providers.RoleSystem, Content: systemPrompt},
		{Role: providers.RoleUser, Content: "Task To Accomplish: " + req.UserTask},
		{Role: providers.RoleAssistant, Content: initialResponse},
		{Role: providers.RoleUser, Content: filesContent},
	}
	return streamText(ctx, deps, deps.Model, msgs, "code:plan")
}

// completeStep is CodeProcessor.complete_step: request a code change,
// attempt to apply it, and recurse once more with feedback if the
// confirmer returned request_change (bounded by the single recursive
// call the original makes — a step either succeeds on this extra pass
// or is left failed for the caller's own first/second-pass retry).
func completeStep(ctx context.Context, deps Deps, step PlanStep, files []string, filesContent string, retryMessage string) StepResult {
	result := StepResult{Step: step, Status: StepSent}

	codeResponse, err := requestCode(ctx, deps, step, filesContent, retryMessage)
	if err != nil {
		result.Status = StepFailed
		result.Err = err
		return result
	}
	result.Status = StepParsed

	applied, err := checkAndApplyCodeChanges(deps, codeResponse)
	if err != nil {
		result.Status = StepFailed
		result.Err = err
		return result
	}

	if applied.Success {
		result.Status = StepApplied
		result.FilesChanged = applied.FilesChanged
		result.Warnings = applied.Warnings
		return result
	}
	if applied.ChangeRequested != "" && retryMessage == "" {
		result.Status = StepNeedsFeedback
		return completeStep(ctx, deps, step, files, filesContent, applied.ChangeRequested)
	}

	result.Status = StepFailed
	result.Err = fmt.Errorf("codeagent: failed to apply code changes in step")
	return result
}

// requestCode is CodeProcessor.request_code: build the operation
// prompt wrapped by "implement_step", then the file content and the
// task-specific instruction, and stream a response.
func requestCode(ctx context.Context, deps Deps, step PlanStep, filesContent, additionalPrompt string) (string, error) {
	operationPrompt, err := deps.Library.Load("operations/" + strings.ToLower(step.OperationType))
	if err != nil {
		return "", err
	}
	devMsg, err := deps.Library.Render("implement_step", map[string]string{"operation_prompt": operationPrompt})
	if err != nil {
		devMsg = operationPrompt
	}

	if step.Description == "" || step.Filename == "" || step.TargetLocation == "" {
		return "", fmt.Errorf("codeagent: step missing required fields")
	}

	prompt := fmt.Sprintf(
		"You have been tasked with using the %s operation to %s. This should be applied to the supplied file "+
			"%s and you will need to locate the proper location in the code to apply this change. The target "+
			"location is %s. Operations should only be applied to this location, or else the task will fail.",
		step.OperationType, step.Description, step.Filename, step.TargetLocation,
	)
	if additionalPrompt != "" {
		prompt = prompt + " " + additionalPrompt
	}

	msgs := []providers.Message{
		{Role: providers.RoleSystem, Content: devMsg},
		{Role: providers.RoleUser, Content: filesContent},
		{Role: providers.RoleUser, Content: prompt},
	}
	return streamText(ctx, deps, deps.Model, msgs, "code:step:"+step.Filename)
}

// checkAndApplyCodeChanges is CodeProcessor.check_and_apply_code_changes:
// extract+validate the changes envelope and apply it via fileops.
func checkAndApplyCodeChanges(deps Deps, response string) (fileops.Result, error) {
	block := cutoffString(response, "```json", "```")
	if err := validateChangesEnvelope([]byte(block)); err != nil {
		return fileops.Result{}, err
	}

	var env fileops.Envelope
	if err := extractJSONBlock(response, &env); err != nil {
		return fileops.Result{}, err
	}
	return fileops.Apply(deps.Root, env, deps.Confirmer)
}

// validateChangedFiles is CodeProcessor.validate_changed_files: send
// the modified files' content to (optionally) a cheaper model and
// classify its verdict.
func validateChangedFiles(ctx context.Context, deps Deps, changedFiles []string) (ValidationVerdict, error) {
	model := deps.ValidationModel
	if model == "" {
		model = deps.Model
	}

	content := getFileContents(deps.Root, changedFiles)
	systemPrompt, err := deps.Library.Load("validation")
	if err != nil {
		return ValidationVerdict{}, err
	}

	msgs := []providers.Message{
		{Role: providers.RoleSystem, Content: systemPrompt},
		{Role: providers.RoleUser, Content: "Please validate these files:\n" + content},
	}
	response, err := streamText(ctx, deps, model, msgs, "code:validate")
	if err != nil {
		return ValidationVerdict{}, err
	}
	return parseValidation(response), nil
}

// getFileContents reads every path (resolving fuzzy matches via
// fileops.ResolveFile) and formats them the way
// file_utils.get_file_contents does: concatenated BEGIN/END blocks.
func getFileContents(root string, paths []string) string {
	var sb strings.Builder
	for _, p := range paths {
		resolved, ok := fileops.ResolveFile(root, p)
		var content string
		if !ok {
			content = fmt.Sprintf("Error: File not found: %s", p)
		} else {
			raw, err := os.ReadFile(resolved)
			if err != nil {
				content = fmt.Sprintf("Error reading file %s: %s", p, err)
			} else {
				content = string(raw)
			}
		}
		fmt.Fprintf(&sb, "\n\n--- BEGIN FILE: %s ---\n%s\n--- END FILE: %s ---\n", p, content, p)
	}
	return sb.String()
}
