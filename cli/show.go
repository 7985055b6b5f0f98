package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/kingpin/v2"
	"github.com/byteness/hrflow/request"
	"github.com/byteness/hrflow/workflow"
	"github.com/charmbracelet/lipgloss"
)

// ShowCommandInput contains the input for the show command.
type ShowCommandInput struct {
	Type      string
	RequestID string
	Approver  string
	Output    string // auto, human, json

	// Service is an optional Service for testing.
	// If nil, one is built from the global configuration.
	Service *workflow.Service

	// Stdout receives the output. If nil, os.Stdout is used.
	Stdout io.Writer
}

// ShowCommandOutput represents the JSON output from the show command.
type ShowCommandOutput struct {
	Request    *request.WorkflowRequest `json:"request"`
	Approver   string                   `json:"approver,omitempty"`
	Actionable bool                     `json:"actionable"`
	Reason     string                   `json:"reason,omitempty"`
	Policy     string                   `json:"policy"`
	HRContact  string                   `json:"hr_contact,omitempty"`
	HRPhone    string                   `json:"hr_phone,omitempty"`
}

// ConfigureShowCommand sets up the show command with kingpin.
func ConfigureShowCommand(app *kingpin.Application, h *HRFlow) {
	input := ShowCommandInput{}

	cmd := app.Command("show", "Show a request as the approval page presents it")

	cmd.Arg("type", "Request type: leave, gate-pass").
		Required().
		StringVar(&input.Type)

	cmd.Arg("request-id", "The request ID").
		Required().
		StringVar(&input.RequestID)

	cmd.Flag("approver", "Approver identifier from the approval link (name, employee code or id)").
		StringVar(&input.Approver)

	cmd.Flag("output", "Output format: auto (default), human, json").
		Default("auto").
		EnumVar(&input.Output, "auto", "human", "json")

	cmd.Action(func(c *kingpin.ParseContext) error {
		exitOnError(ShowCommand(context.Background(), h, input))
		return nil
	})
}

// ShowCommand loads a request and reports whether the approver may act on it.
func ShowCommand(ctx context.Context, h *HRFlow, input ShowCommandInput) error {
	reqType, err := request.ParseRequestType(input.Type)
	if err != nil {
		return err
	}

	svc, err := serviceFor(ctx, h, input.Service)
	if err != nil {
		return err
	}

	v, err := svc.View(ctx, reqType, input.RequestID, input.Approver)
	if err != nil {
		return err
	}

	out := newShowOutput(v)
	stdout := stdoutOr(input.Stdout)

	human := input.Output == "human" || (input.Output == "auto" && input.Stdout == nil && isATerminal())
	if human {
		fmt.Fprint(stdout, renderView(out))
		return nil
	}

	jsonBytes, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	fmt.Fprintln(stdout, string(jsonBytes))
	return nil
}

func newShowOutput(v *workflow.View) ShowCommandOutput {
	out := ShowCommandOutput{
		Request:    v.Request,
		Actionable: v.Actionable,
		Reason:     v.Reason,
		Policy:     v.Policy,
	}
	if v.Principal != nil {
		out.Approver = v.Principal.Name()
	}
	if v.HRContact != nil {
		out.HRContact = v.HRContact.Name()
		out.HRPhone = v.HRContact.Phone
	}
	return out
}

// renderView formats a request for a terminal.
func renderView(out ShowCommandOutput) string {
	title := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	label := lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	ok := lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	blocked := lipgloss.NewStyle().Foreground(lipgloss.Color("1"))

	req := out.Request
	var b strings.Builder
	row := func(name, value string) {
		if value == "" {
			return
		}
		fmt.Fprintf(&b, "%s %s\n", label.Render(fmt.Sprintf("%-12s", name+":")), value)
	}

	fmt.Fprintf(&b, "%s\n\n", title.Render(fmt.Sprintf("%s request %s", req.Type, req.ID)))
	row("Requester", req.RequesterName)
	row("Department", req.Department)
	row("Status", string(req.Status))
	row("Leave type", req.Payload.LeaveType)
	if req.Payload.StartDate != "" {
		row("Dates", fmt.Sprintf("%s to %s (%d days)", req.Payload.StartDate, req.Payload.EndDate, req.Payload.Days()))
	}
	row("Departure", req.Payload.Departure)
	row("Arrival", req.Payload.Arrival)
	row("Reason", req.Payload.Reason)
	row("Contact", req.Payload.ContactNumber)
	row("Attachment", req.Payload.AttachmentRef)
	if req.HOD != nil {
		row("HOD", decisionLine(req.HOD))
	}
	if req.HR != nil {
		row("HR", decisionLine(req.HR))
	}
	b.WriteString("\n")

	if out.Actionable {
		fmt.Fprintf(&b, "%s\n", ok.Render(fmt.Sprintf("%s may approve or reject this request.", out.Approver)))
	} else {
		fmt.Fprintf(&b, "%s\n", blocked.Render(out.Reason))
	}
	if out.HRContact != "" {
		contact := out.HRContact
		if out.HRPhone != "" {
			contact += " (" + out.HRPhone + ")"
		}
		row("HR contact", contact)
	}
	return b.String()
}

func decisionLine(d *request.Decision) string {
	name := d.ApproverName
	if name == "" {
		name = d.ApproverID
	}
	line := fmt.Sprintf("%s at %s", name, d.DecidedAt.Format("2006-01-02 15:04"))
	if d.Remarks != "" {
		line += ": " + d.Remarks
	}
	return line
}
