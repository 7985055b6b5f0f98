package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/byteness/hrflow/request"
	"github.com/byteness/hrflow/workflow"
)

// PendingCommandInput contains the input for the pending command.
type PendingCommandInput struct {
	Type  string
	Stage string // hod, hr
	Limit int

	// Service is an optional Service for testing.
	// If nil, one is built from the global configuration.
	Service *workflow.Service

	// Stdout receives the output. If nil, os.Stdout is used.
	Stdout io.Writer
}

// PendingRequestSummary represents a request in pending output.
type PendingRequestSummary struct {
	ID            string    `json:"id"`
	RequesterName string    `json:"requester_name"`
	Department    string    `json:"department,omitempty"`
	Status        string    `json:"status"`
	Reason        string    `json:"reason,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// PendingCommandOutput represents the JSON output from the pending command.
type PendingCommandOutput struct {
	Type     string                  `json:"type"`
	Status   string                  `json:"status"`
	Requests []PendingRequestSummary `json:"requests"`
}

// ConfigurePendingCommand sets up the pending command with kingpin.
func ConfigurePendingCommand(app *kingpin.Application, h *HRFlow) {
	input := PendingCommandInput{}

	cmd := app.Command("pending", "List requests waiting for a decision")

	cmd.Arg("type", "Request type: leave, gate-pass").
		Required().
		StringVar(&input.Type)

	cmd.Flag("stage", "Approval stage: hod (default), hr").
		Default("hod").
		EnumVar(&input.Stage, "hod", "hr")

	cmd.Flag("limit", "Maximum number of requests to return").
		Default("50").
		IntVar(&input.Limit)

	cmd.Action(func(c *kingpin.ParseContext) error {
		_, err := PendingCommand(context.Background(), h, input)
		exitOnError(err)
		return nil
	})
}

// PendingCommand lists pending requests newest first.
func PendingCommand(ctx context.Context, h *HRFlow, input PendingCommandInput) (*PendingCommandOutput, error) {
	reqType, err := request.ParseRequestType(input.Type)
	if err != nil {
		return nil, err
	}

	status := request.StatusPendingHOD
	if input.Stage == "hr" {
		status = request.StatusPendingHR
	}

	svc, err := serviceFor(ctx, h, input.Service)
	if err != nil {
		return nil, err
	}

	reqs, err := svc.Pending(ctx, reqType, status, input.Limit)
	if err != nil {
		return nil, err
	}

	output := &PendingCommandOutput{
		Type:     string(reqType),
		Status:   string(status),
		Requests: make([]PendingRequestSummary, 0, len(reqs)),
	}
	for _, req := range reqs {
		output.Requests = append(output.Requests, PendingRequestSummary{
			ID:            req.ID,
			RequesterName: req.RequesterName,
			Department:    req.Department,
			Status:        string(req.Status),
			Reason:        req.Payload.Reason,
			CreatedAt:     req.CreatedAt,
		})
	}

	jsonBytes, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to format output: %w", err)
	}
	fmt.Fprintln(stdoutOr(input.Stdout), string(jsonBytes))

	return output, nil
}
