package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/alecthomas/kingpin/v2"
	"github.com/byteness/hrflow/directory"
	"github.com/byteness/hrflow/workflow"
)

// ResolveCommandInput contains the input for the resolve command.
type ResolveCommandInput struct {
	Identifier string

	// Service is an optional Service for testing.
	// If nil, one is built from the global configuration.
	Service *workflow.Service

	// Stdout receives the output. If nil, os.Stdout is used.
	Stdout io.Writer
}

// ConfigureResolveCommand sets up the resolve command with kingpin.
func ConfigureResolveCommand(app *kingpin.Application, h *HRFlow) {
	input := ResolveCommandInput{}

	cmd := app.Command("resolve", "Show which principal an approver identifier resolves to")

	cmd.Arg("identifier", "Display name, employee code or id").
		Required().
		StringVar(&input.Identifier)

	cmd.Action(func(c *kingpin.ParseContext) error {
		_, err := ResolveCommand(context.Background(), h, input)
		exitOnError(err)
		return nil
	})
}

// ResolveCommand resolves an approver identifier and prints the principal as JSON.
func ResolveCommand(ctx context.Context, h *HRFlow, input ResolveCommandInput) (*directory.Principal, error) {
	svc, err := serviceFor(ctx, h, input.Service)
	if err != nil {
		return nil, err
	}

	p, err := svc.Resolve(ctx, input.Identifier)
	if err != nil {
		return nil, err
	}

	jsonBytes, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to format output: %w", err)
	}
	fmt.Fprintln(stdoutOr(input.Stdout), string(jsonBytes))
	return p, nil
}
