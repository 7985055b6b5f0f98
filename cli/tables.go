package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/alecthomas/kingpin/v2"
	"github.com/byteness/hrflow/config"
	"github.com/byteness/hrflow/infrastructure"
)

// TableProvisioner plans and creates DynamoDB tables.
type TableProvisioner interface {
	Plan(schema infrastructure.TableSchema) (*infrastructure.ProvisionPlan, error)
	Create(ctx context.Context, schema infrastructure.TableSchema) (*infrastructure.ProvisionResult, error)
}

// TablesCommandInput contains the input for the tables plan and create commands.
type TablesCommandInput struct {
	// Create provisions the tables. When false only the plan is printed.
	Create bool

	// Config is an optional configuration for testing.
	// If nil, the global configuration is resolved.
	Config *config.Config

	// Provisioner is an optional provisioner for testing.
	// If nil, one is built from the AWS configuration.
	Provisioner TableProvisioner

	// Stdout receives the output. If nil, os.Stdout is used.
	Stdout io.Writer
}

// TablesCommandOutput represents the JSON output from the tables commands.
type TablesCommandOutput struct {
	Plans   []*infrastructure.ProvisionPlan   `json:"plans,omitempty"`
	Results []*infrastructure.ProvisionResult `json:"results,omitempty"`
	Failed  int                               `json:"failed,omitempty"`
}

// ConfigureTablesCommand sets up the tables command and its subcommands with kingpin.
func ConfigureTablesCommand(app *kingpin.Application, h *HRFlow) {
	tablesCmd := app.Command("tables", "Manage the DynamoDB tables named in the configuration")

	planCmd := tablesCmd.Command("plan", "Show the tables that would be created, without calling AWS")
	planCmd.Action(func(c *kingpin.ParseContext) error {
		_, err := TablesCommand(context.Background(), h, TablesCommandInput{})
		exitOnError(err)
		return nil
	})

	createCmd := tablesCmd.Command("create", "Create missing tables and wait until they are active")
	createCmd.Action(func(c *kingpin.ParseContext) error {
		_, err := TablesCommand(context.Background(), h, TablesCommandInput{Create: true})
		exitOnError(err)
		return nil
	})
}

// TablesCommand plans or creates every table in the configuration.
// Creation continues past failed tables; an error is returned after the
// output is printed if any table failed.
func TablesCommand(ctx context.Context, h *HRFlow, input TablesCommandInput) (*TablesCommandOutput, error) {
	cfg := input.Config
	if cfg == nil {
		if h == nil {
			return nil, fmt.Errorf("no configuration")
		}
		var err error
		if cfg, err = h.Config(ctx); err != nil {
			return nil, err
		}
	}

	prov := input.Provisioner
	if prov == nil {
		if h == nil {
			return nil, fmt.Errorf("no provisioner configured")
		}
		awsCfg, err := h.AWSConfig(ctx)
		if err != nil {
			return nil, err
		}
		prov = infrastructure.NewTableProvisioner(awsCfg)
	}

	schemas := infrastructure.SchemasFor(cfg.Tables, cfg.Directory.RosterFile != "")
	output := &TablesCommandOutput{}
	for _, schema := range schemas {
		if !input.Create {
			plan, err := prov.Plan(schema)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", schema.TableName, err)
			}
			output.Plans = append(output.Plans, plan)
			continue
		}

		result, err := prov.Create(ctx, schema)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", schema.TableName, err)
		}
		if result.Status == infrastructure.StatusFailed {
			output.Failed++
		}
		output.Results = append(output.Results, result)
	}

	jsonBytes, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to format output: %w", err)
	}
	fmt.Fprintln(stdoutOr(input.Stdout), string(jsonBytes))

	if output.Failed > 0 {
		return output, fmt.Errorf("%d of %d tables failed", output.Failed, len(schemas))
	}
	return output, nil
}
