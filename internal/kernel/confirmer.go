package kernel

import (
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/huh"

	"github.com/presstab/jrdev/internal/codeagent"
	"github.com/presstab/jrdev/internal/fileops"
)

// TerminalConfirmer is the default huh-based realization of
// fileops.Confirmer (§4.12), the teacher's previously-unwired huh
// dependency repurposed here as the interactive confirm/diff prompt.
type TerminalConfirmer struct {
	AcceptAll bool
}

// ConfirmDiff shows a unified diff and asks the user how to proceed.
// When AcceptAll is set (--accept-all), every diff is auto-approved
// without prompting, matching spec.md §6's CLI flag.
func (c *TerminalConfirmer) ConfirmDiff(filepath, diff string) (fileops.ConfirmResult, string, error) {
	if c.AcceptAll {
		return fileops.ConfirmAcceptAll, "", nil
	}

	fmt.Printf("\n--- %s ---\n%s\n", filepath, diff)

	var choice string
	options := []huh.Option[string]{
		huh.NewOption("Apply this change", string(fileops.ConfirmYes)),
		huh.NewOption("Skip this change", string(fileops.ConfirmNo)),
		huh.NewOption("Request a different change", string(fileops.ConfirmRequestChange)),
		huh.NewOption("Edit the change myself", string(fileops.ConfirmEdit)),
		huh.NewOption("Apply this and every remaining change", string(fileops.ConfirmAcceptAll)),
	}

	err := huh.NewSelect[string]().
		Title(fmt.Sprintf("Apply change to %s?", filepath)).
		Options(options...).
		Value(&choice).
		Run()
	if err != nil {
		return "", "", fmt.Errorf("kernel: confirm prompt: %w", err)
	}

	result := fileops.ConfirmResult(choice)
	if result != fileops.ConfirmRequestChange {
		return result, "", nil
	}

	var feedback string
	if err := huh.NewText().Title("What should change instead?").Value(&feedback).Run(); err != nil {
		return "", "", fmt.Errorf("kernel: feedback prompt: %w", err)
	}
	return result, feedback, nil
}

// TerminalPlanConfirmer is the default huh-based realization of
// codeagent.PlanConfirmer (§4.12 confirm_plan), mirrored on the
// original's steps_screen.py modal: accept, edit the steps JSON
// directly, reprompt with additional instructions, or cancel.
type TerminalPlanConfirmer struct {
	AcceptAll bool
}

// ConfirmPlan shows the proposed plan and asks the user how to proceed.
// When AcceptAll is set (--accept-all), the plan is accepted as-is
// without prompting, matching ConfirmDiff's behavior.
func (c *TerminalPlanConfirmer) ConfirmPlan(plan codeagent.Plan) (codeagent.PlanConfirmation, error) {
	if c.AcceptAll {
		return codeagent.PlanConfirmation{Decision: codeagent.PlanAccept}, nil
	}

	planJSON, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return codeagent.PlanConfirmation{}, fmt.Errorf("kernel: marshal plan: %w", err)
	}
	fmt.Printf("\n--- proposed plan ---\n%s\n", planJSON)

	var choice string
	options := []huh.Option[string]{
		huh.NewOption("Accept this plan", string(codeagent.PlanAccept)),
		huh.NewOption("Edit the steps myself", string(codeagent.PlanEdit)),
		huh.NewOption("Ask for a revised plan", string(codeagent.PlanReprompt)),
		huh.NewOption("Cancel this task", string(codeagent.PlanCancel)),
	}
	if err := huh.NewSelect[string]().
		Title("Proceed with this plan?").
		Options(options...).
		Value(&choice).
		Run(); err != nil {
		return codeagent.PlanConfirmation{}, fmt.Errorf("kernel: confirm plan prompt: %w", err)
	}

	decision := codeagent.PlanDecision(choice)
	switch decision {
	case codeagent.PlanEdit:
		edited := string(planJSON)
		if err := huh.NewText().Title("Edit the steps JSON").Value(&edited).Run(); err != nil {
			return codeagent.PlanConfirmation{}, fmt.Errorf("kernel: edit plan prompt: %w", err)
		}
		var editedPlan codeagent.Plan
		if err := json.Unmarshal([]byte(edited), &editedPlan); err != nil {
			return codeagent.PlanConfirmation{}, fmt.Errorf("kernel: parse edited steps: %w", err)
		}
		return codeagent.PlanConfirmation{Decision: decision, EditedSteps: editedPlan.Steps}, nil
	case codeagent.PlanReprompt:
		var instructions string
		if err := huh.NewText().Title("Additional instructions").Value(&instructions).Run(); err != nil {
			return codeagent.PlanConfirmation{}, fmt.Errorf("kernel: reprompt prompt: %w", err)
		}
		return codeagent.PlanConfirmation{Decision: decision, RepromptText: instructions}, nil
	default:
		return codeagent.PlanConfirmation{Decision: decision}, nil
	}
}
