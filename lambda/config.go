package lambda

import (
	"context"
	"fmt"
	"log"
	"os"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/byteness/hrflow/config"
	"github.com/byteness/hrflow/workflow"
)

// LoadServiceFromEnv builds a Service from HRFLOW_* environment variables.
// This is the primary way to configure the Lambda in production.
//
// Configuration comes from HRFLOW_CONFIG_FILE (bundled with the function) or
// HRFLOW_CONFIG_PARAMETER (SSM), then per-field HRFLOW_* overrides.
// Approval events are written to stdout as JSON lines, which Lambda ships
// to its own log group.
func LoadServiceFromEnv(ctx context.Context) (*workflow.Service, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region := firstEnv(config.EnvRegion, config.EnvAWSRegion); region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	src := config.Source{
		File:      os.Getenv(config.EnvConfigFile),
		Parameter: os.Getenv(config.EnvConfigParameter),
		Getenv:    os.Getenv,
	}
	if src.File == "" && src.Parameter != "" {
		src.SSM = ssm.NewFromConfig(awsCfg)
		log.Printf("INFO: Loading configuration from SSM parameter %s", src.Parameter)
	}

	cfg, issues, err := config.Resolve(ctx, src)
	if err != nil {
		return nil, err
	}
	for _, issue := range issues {
		log.Printf("WARNING: config %s: %s", issue.Location, issue.Message)
	}
	if cfg.Region != "" {
		awsCfg.Region = cfg.Region
	}

	return workflow.BuildService(awsCfg, cfg, workflow.BuildOptions{Events: os.Stdout})
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}
