package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/alecthomas/kingpin/v2"
	"github.com/byteness/hrflow/request"
	"github.com/byteness/hrflow/workflow"
)

// JoiningCommandInput contains the input for the joining command.
type JoiningCommandInput struct {
	ID string

	// Service is an optional Service for testing.
	// If nil, one is built from the global configuration.
	Service *workflow.Service

	// Stdout receives the output. If nil, os.Stdout is used.
	Stdout io.Writer
}

// ConfigureJoiningCommand sets up the joining command with kingpin.
func ConfigureJoiningCommand(app *kingpin.Application, h *HRFlow) {
	input := JoiningCommandInput{}

	cmd := app.Command("joining", "Print a submitted joining form")

	cmd.Arg("id", "The joining form ID").
		Required().
		StringVar(&input.ID)

	cmd.Action(func(c *kingpin.ParseContext) error {
		_, err := JoiningCommand(context.Background(), h, input)
		exitOnError(err)
		return nil
	})
}

// JoiningCommand fetches a joining form and prints it as JSON.
func JoiningCommand(ctx context.Context, h *HRFlow, input JoiningCommandInput) (*request.JoiningRecord, error) {
	svc, err := serviceFor(ctx, h, input.Service)
	if err != nil {
		return nil, err
	}

	rec, err := svc.Joining(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	jsonBytes, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to format output: %w", err)
	}
	fmt.Fprintln(stdoutOr(input.Stdout), string(jsonBytes))
	return rec, nil
}
