package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/kingpin/v2"
	"github.com/byteness/hrflow/config"
	"github.com/charmbracelet/lipgloss"
)

// configCmd holds the config command reference for subcommand registration.
var configCmd *kingpin.CmdClause

// ConfigValidateCommandInput contains the input for config validate.
type ConfigValidateCommandInput struct {
	Paths    []string // Local file paths to validate
	SSMPaths []string // SSM parameters to load and validate
	Output   string   // human, json

	// For testing
	Stdout   io.Writer
	Stderr   io.Writer
	SSMFetch func(ctx context.Context, name string) ([]byte, error)
}

// ConfigValidateOutput is the JSON output of config validate.
type ConfigValidateOutput struct {
	Results  []config.ValidationResult `json:"results"`
	Valid    int                       `json:"valid"`
	Invalid  int                       `json:"invalid"`
	Errors   int                       `json:"errors"`
	Warnings int                       `json:"warnings"`
}

// ConfigTemplateCommandInput contains the input for config template.
type ConfigTemplateCommandInput struct {
	Template string
	Stdout   io.Writer
}

// ConfigPublishCommandInput contains the input for config publish.
type ConfigPublishCommandInput struct {
	Path      string
	Parameter string
	Overwrite bool

	// Publisher is an optional Publisher for testing.
	// If nil, one is created from the global AWS configuration.
	Publisher *config.Publisher
	Stdout    io.Writer
}

// ConfigureConfigCommand sets up the config command with its subcommands.
func ConfigureConfigCommand(app *kingpin.Application, h *HRFlow) {
	configCmd = app.Command("config", "Configuration management commands")

	configureConfigValidate(app, h)
	configureConfigTemplate(app)
	configureConfigPublish(app, h)
}

func configureConfigValidate(app *kingpin.Application, h *HRFlow) {
	input := ConfigValidateCommandInput{}

	cmd := configCmd.Command("validate", "Validate configuration files")

	cmd.Arg("paths", "Local files to validate").
		StringsVar(&input.Paths)

	cmd.Flag("ssm", "SSM parameter to load and validate (repeatable)").
		StringsVar(&input.SSMPaths)

	cmd.Flag("output", "Output format: human (default), json").
		Default("human").
		EnumVar(&input.Output, "human", "json")

	cmd.Action(func(c *kingpin.ParseContext) error {
		if len(input.SSMPaths) > 0 && input.SSMFetch == nil {
			awsCfg, err := h.AWSConfig(context.Background())
			app.FatalIfError(err, "config validate")
			input.SSMFetch = config.NewLoader(awsCfg).Fetch
		}
		exitCode, err := ConfigValidateCommand(context.Background(), input)
		if err != nil {
			app.FatalIfError(err, "config validate")
		}
		if exitCode != 0 {
			os.Exit(exitCode)
		}
		return nil
	})
}

func configureConfigTemplate(app *kingpin.Application) {
	input := ConfigTemplateCommandInput{}

	ids := make([]string, 0, len(config.AllTemplateIDs()))
	for _, id := range config.AllTemplateIDs() {
		ids = append(ids, id.String())
	}

	cmd := configCmd.Command("template", "Print a starter configuration")

	cmd.Arg("template", fmt.Sprintf("Template: %s", strings.Join(ids, ", "))).
		Default(config.TemplateDefault.String()).
		EnumVar(&input.Template, ids...)

	cmd.Action(func(c *kingpin.ParseContext) error {
		app.FatalIfError(ConfigTemplateCommand(input), "config template")
		return nil
	})
}

func configureConfigPublish(app *kingpin.Application, h *HRFlow) {
	input := ConfigPublishCommandInput{}

	cmd := configCmd.Command("publish", "Validate a configuration file and store it in SSM Parameter Store")

	cmd.Arg("path", "Local file to publish").
		Required().
		StringVar(&input.Path)

	cmd.Flag("parameter", "SSM parameter name").
		Required().
		Envar(config.EnvConfigParameter).
		StringVar(&input.Parameter)

	cmd.Flag("overwrite", "Replace an existing parameter").
		BoolVar(&input.Overwrite)

	cmd.Action(func(c *kingpin.ParseContext) error {
		_, err := ConfigPublishCommand(context.Background(), h, input)
		exitOnError(err)
		return nil
	})
}

// ConfigValidateCommand executes the config validate command logic.
// It returns exit code (0=all valid, 1=errors) and any fatal error.
func ConfigValidateCommand(ctx context.Context, input ConfigValidateCommandInput) (int, error) {
	stdout := stdoutOr(input.Stdout)
	stderr := input.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	if len(input.Paths) == 0 && len(input.SSMPaths) == 0 {
		err := fmt.Errorf("no paths specified; use positional arguments or --ssm")
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1, err
	}

	var results []config.ValidationResult

	for _, path := range input.Paths {
		if path == "" {
			continue
		}
		result, _ := config.ValidateFile(path)
		results = append(results, result)
	}

	if len(input.SSMPaths) > 0 && input.SSMFetch == nil {
		err := fmt.Errorf("SSM fetcher not configured")
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1, err
	}
	for _, name := range input.SSMPaths {
		content, err := input.SSMFetch(ctx, name)
		if err != nil {
			results = append(results, config.ValidationResult{
				Source: name,
				Valid:  false,
				Issues: []config.ValidationIssue{{
					Severity:   config.SeverityError,
					Message:    fmt.Sprintf("failed to load SSM parameter: %v", err),
					Suggestion: "verify the parameter exists and you have ssm:GetParameter permission",
				}},
			})
			continue
		}
		results = append(results, config.Validate(content, name))
	}

	output := ConfigValidateOutput{Results: results}
	for i := range results {
		if results[i].Valid {
			output.Valid++
		} else {
			output.Invalid++
		}
		output.Errors += results[i].Errors()
		output.Warnings += results[i].Warnings()
	}

	if strings.ToLower(input.Output) == "json" {
		outputJSON(stdout, output)
	} else {
		outputHuman(stdout, output)
	}

	if output.Errors > 0 {
		return 1, nil
	}
	return 0, nil
}

// ConfigTemplateCommand prints a configuration template.
func ConfigTemplateCommand(input ConfigTemplateCommandInput) error {
	id := config.TemplateID(input.Template)
	if input.Template == "" {
		id = config.TemplateDefault
	}
	if !id.IsValid() {
		return fmt.Errorf("unknown template %q", input.Template)
	}
	content, err := config.GenerateTemplate(id)
	if err != nil {
		return err
	}
	_, err = stdoutOr(input.Stdout).Write(content)
	return err
}

// ConfigPublishCommand validates a local configuration file and writes it to SSM.
func ConfigPublishCommand(ctx context.Context, h *HRFlow, input ConfigPublishCommandInput) (*config.PublishResult, error) {
	content, err := os.ReadFile(input.Path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	publisher := input.Publisher
	if publisher == nil {
		if h == nil {
			return nil, fmt.Errorf("no AWS configuration available")
		}
		awsCfg, err := h.AWSConfig(ctx)
		if err != nil {
			return nil, err
		}
		publisher = config.NewPublisher(awsCfg)
	}

	result, err := publisher.Publish(ctx, input.Parameter, content, input.Overwrite)
	if err != nil {
		return nil, err
	}
	outputJSON(stdoutOr(input.Stdout), result)
	return result, nil
}

// outputHuman writes one block per source: a verdict line, then each issue
// with its hint underneath.
func outputHuman(w io.Writer, out ConfigValidateOutput) {
	if len(out.Results) == 0 {
		fmt.Fprintln(w, "nothing to validate")
		return
	}
	fmt.Fprint(w, renderValidation(out))
}

func renderValidation(out ConfigValidateOutput) string {
	pass := lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	fail := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("1"))
	warn := lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	hint := lipgloss.NewStyle().Faint(true)

	var b strings.Builder
	for _, result := range out.Results {
		verdict := pass.Render("ok  ")
		if !result.Valid {
			verdict = fail.Render("FAIL")
		}
		fmt.Fprintf(&b, "%s  %s\n", verdict, result.Source)

		for _, issue := range result.Issues {
			severity := warn.Render(fmt.Sprintf("%-8s", issue.Severity))
			if issue.Severity == config.SeverityError {
				severity = fail.Render(fmt.Sprintf("%-8s", issue.Severity))
			}
			text := issue.Message
			if issue.Location != "" {
				text = issue.Location + ": " + text
			}
			fmt.Fprintf(&b, "      %s %s\n", severity, text)
			if issue.Suggestion != "" {
				fmt.Fprintf(&b, "               %s\n", hint.Render("hint: "+issue.Suggestion))
			}
		}
	}

	noun := "sources"
	if len(out.Results) == 1 {
		noun = "source"
	}
	fmt.Fprintf(&b, "\n%d %s: %d valid, %d invalid, %d errors, %d warnings\n",
		len(out.Results), noun, out.Valid, out.Invalid, out.Errors, out.Warnings)
	return b.String()
}

// outputJSON writes v as indented JSON.
func outputJSON(w io.Writer, v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(w, `{"error": "failed to marshal JSON: %v"}`, err)
		return
	}
	fmt.Fprintln(w, string(data))
}
