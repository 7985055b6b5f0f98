package cli

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/alecthomas/kingpin/v2"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/byteness/hrflow/config"
	"github.com/byteness/hrflow/workflow"
	isatty "github.com/mattn/go-isatty"
)

// HRFlow holds shared state for all hrflow commands.
type HRFlow struct {
	Debug           bool
	ConfigFile      string
	ConfigParameter string
	Region          string

	// Events, when set, receives approval events as JSON lines.
	Events io.Writer

	awsCfg *aws.Config
	cfg    *config.Config
}

// ConfigureGlobals sets up global flags for the hrflow CLI.
func ConfigureGlobals(app *kingpin.Application) *HRFlow {
	h := &HRFlow{}

	app.Flag("debug", "Show debugging output").
		BoolVar(&h.Debug)

	app.Flag("config", "Path to the hrflow YAML configuration").
		Envar(config.EnvConfigFile).
		StringVar(&h.ConfigFile)

	app.Flag("config-parameter", "SSM parameter holding the hrflow configuration").
		Envar(config.EnvConfigParameter).
		StringVar(&h.ConfigParameter)

	app.Flag("region", "AWS region for DynamoDB and SSM").
		StringVar(&h.Region)

	app.PreAction(func(c *kingpin.ParseContext) error {
		if !h.Debug {
			log.SetOutput(io.Discard)
		}
		log.Printf("hrflow %s", app.Model().Version)
		return nil
	})

	return h
}

func isATerminal() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// AWSConfig returns the AWS configuration, loading it if necessary.
func (h *HRFlow) AWSConfig(ctx context.Context) (aws.Config, error) {
	if h.awsCfg == nil {
		var opts []func(*awsconfig.LoadOptions) error
		if h.Region != "" {
			opts = append(opts, awsconfig.WithRegion(h.Region))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
		}
		h.awsCfg = &awsCfg
	}
	return *h.awsCfg, nil
}

// Config returns the resolved hrflow configuration, loading it if necessary.
// Warnings are logged.
func (h *HRFlow) Config(ctx context.Context) (*config.Config, error) {
	if h.cfg != nil {
		return h.cfg, nil
	}

	src := config.Source{File: h.ConfigFile, Parameter: h.ConfigParameter}
	if src.File == "" && src.Parameter != "" {
		awsCfg, err := h.AWSConfig(ctx)
		if err != nil {
			return nil, err
		}
		src.SSM = ssm.NewFromConfig(awsCfg)
	}

	cfg, issues, err := config.Resolve(ctx, src)
	if err != nil {
		return nil, err
	}
	for _, issue := range issues {
		log.Printf("WARNING: config %s: %s", issue.Location, issue.Message)
	}
	if h.Region == "" && cfg.Region != "" {
		h.Region = cfg.Region
	}
	h.cfg = cfg
	return cfg, nil
}

// NewService builds a workflow.Service from the resolved configuration.
func (h *HRFlow) NewService(ctx context.Context) (*workflow.Service, error) {
	cfg, err := h.Config(ctx)
	if err != nil {
		return nil, err
	}
	awsCfg, err := h.AWSConfig(ctx)
	if err != nil {
		return nil, err
	}
	return workflow.BuildService(awsCfg, cfg, workflow.BuildOptions{Events: h.Events})
}

// serviceFor returns injected when set, otherwise a Service built from h.
func serviceFor(ctx context.Context, h *HRFlow, injected *workflow.Service) (*workflow.Service, error) {
	if injected != nil {
		return injected, nil
	}
	if h == nil {
		return nil, fmt.Errorf("no service configured")
	}
	return h.NewService(ctx)
}

func stdoutOr(w io.Writer) io.Writer {
	if w == nil {
		return os.Stdout
	}
	return w
}
