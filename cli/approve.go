package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/byteness/hrflow/approval"
	"github.com/byteness/hrflow/request"
	"github.com/byteness/hrflow/workflow"
	"github.com/charmbracelet/huh"
)

// ActCommandInput contains the input for the approve and reject commands.
type ActCommandInput struct {
	Type        string
	RequestID   string
	Approver    string
	Remarks     string
	Interactive bool

	// Service is an optional Service for testing.
	// If nil, one is built from the global configuration.
	Service *workflow.Service

	// PromptRemarks asks for remarks when Interactive is set.
	// If nil, a huh form is shown.
	PromptRemarks func(action approval.Action) (string, error)

	// Stdout receives the output. If nil, os.Stdout is used.
	Stdout io.Writer
}

// ActCommandOutput represents the JSON output from the approve and reject commands.
type ActCommandOutput struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	Status     string    `json:"status"`
	Previous   string    `json:"previous_status"`
	Summary    string    `json:"summary"`
	Approver   string    `json:"approver"`
	Remarks    string    `json:"remarks,omitempty"`
	FastPath   bool      `json:"fast_path,omitempty"`
	LogUpdated bool      `json:"log_updated"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ConfigureApproveCommand sets up the approve command with kingpin.
func ConfigureApproveCommand(app *kingpin.Application, h *HRFlow) {
	configureActCommand(app, h, approval.ActionApprove, "Approve a pending leave or gate pass request")
}

// ConfigureRejectCommand sets up the reject command with kingpin.
func ConfigureRejectCommand(app *kingpin.Application, h *HRFlow) {
	configureActCommand(app, h, approval.ActionReject, "Reject a pending leave or gate pass request")
}

func configureActCommand(app *kingpin.Application, h *HRFlow, action approval.Action, help string) {
	input := ActCommandInput{}

	cmd := app.Command(string(action), help)

	cmd.Arg("type", "Request type: leave, gate-pass").
		Required().
		StringVar(&input.Type)

	cmd.Arg("request-id", fmt.Sprintf("The request ID to %s", action)).
		Required().
		StringVar(&input.RequestID)

	cmd.Flag("approver", "Approver identifier (name, employee code or id)").
		Required().
		StringVar(&input.Approver)

	cmd.Flag("remarks", "Remarks recorded with the decision").
		StringVar(&input.Remarks)

	cmd.Flag("interactive", "Prompt for remarks").
		Short('i').
		BoolVar(&input.Interactive)

	cmd.Action(func(c *kingpin.ParseContext) error {
		_, err := ActCommand(context.Background(), h, action, input)
		exitOnError(err)
		return nil
	})
}

// ActCommand applies an approve or reject action to a request.
// On success, outputs JSON to stdout.
func ActCommand(ctx context.Context, h *HRFlow, action approval.Action, input ActCommandInput) (*ActCommandOutput, error) {
	// 1. Parse request type
	reqType, err := request.ParseRequestType(input.Type)
	if err != nil {
		return nil, err
	}

	// 2. Collect remarks
	remarks := input.Remarks
	if input.Interactive && remarks == "" {
		prompt := input.PromptRemarks
		if prompt == nil {
			prompt = promptRemarks
		}
		remarks, err = prompt(action)
		if err != nil {
			return nil, fmt.Errorf("failed to read remarks: %w", err)
		}
	}

	// 3. Get or build service
	svc, err := serviceFor(ctx, h, input.Service)
	if err != nil {
		return nil, err
	}

	// 4. Act
	outcome, err := svc.Act(ctx, workflow.ActInput{
		Type:       reqType,
		RequestID:  input.RequestID,
		ApproverID: input.Approver,
		Action:     action,
		Remarks:    remarks,
	})
	if err != nil {
		return nil, err
	}

	// 5. Output
	output := newActOutput(outcome, remarks)
	jsonBytes, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to format output: %w", err)
	}
	fmt.Fprintln(stdoutOr(input.Stdout), string(jsonBytes))

	return output, nil
}

func newActOutput(o *workflow.Outcome, remarks string) *ActCommandOutput {
	d := o.Transition.Request.HOD
	if o.Transition.Stage == approval.StageHR {
		d = o.Transition.Request.HR
	}
	approver := ""
	if d != nil {
		approver = d.ApproverName
	}
	return &ActCommandOutput{
		ID:         o.Request.ID,
		Type:       string(o.Request.Type),
		Status:     string(o.Request.Status),
		Previous:   string(o.Transition.From),
		Summary:    o.Summary,
		Approver:   approver,
		Remarks:    remarks,
		FastPath:   o.Transition.FastPath,
		LogUpdated: o.LogUpdated,
		UpdatedAt:  o.Request.UpdatedAt,
	}
}

// promptRemarks asks for remarks with a huh form.
func promptRemarks(action approval.Action) (string, error) {
	var remarks string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewText().
				Title(fmt.Sprintf("Remarks (%s):", action)).
				CharLimit(request.MaxRemarksLength).
				Value(&remarks)))

	if err := form.Run(); err != nil {
		return "", err
	}
	return remarks, nil
}
