package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	hrerrors "github.com/byteness/hrflow/errors"
)

// ErrConfigNotFound is returned when the configuration parameter
// does not exist in SSM Parameter Store.
var ErrConfigNotFound = errors.New("config not found")

// SSMAPI defines the SSM operations used by Loader.
// This interface enables testing with mock implementations.
type SSMAPI interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// Loader fetches configuration from AWS SSM Parameter Store.
type Loader struct {
	client SSMAPI
}

// NewLoader creates a new Loader using the provided AWS configuration.
func NewLoader(cfg aws.Config) *Loader {
	return &Loader{client: ssm.NewFromConfig(cfg)}
}

// NewLoaderWithClient creates a Loader with a custom SSM client.
// This is primarily used for testing with mock clients.
func NewLoaderWithClient(client SSMAPI) *Loader {
	return &Loader{client: client}
}

// Fetch returns the raw parameter value.
// The parameter is fetched with decryption enabled to support SecureString parameters.
func (l *Loader) Fetch(ctx context.Context, parameterName string) ([]byte, error) {
	output, err := l.client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(parameterName),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		var notFound *types.ParameterNotFound
		if errors.As(err, &notFound) {
			return nil, fmt.Errorf("%s: %w", parameterName, ErrConfigNotFound)
		}
		return nil, hrerrors.WrapSSMError(err, parameterName)
	}
	if output.Parameter == nil || output.Parameter.Value == nil {
		return nil, fmt.Errorf("%s: parameter has no value", parameterName)
	}
	return []byte(*output.Parameter.Value), nil
}

// Load fetches and parses a configuration parameter.
func (l *Loader) Load(ctx context.Context, parameterName string) (*Config, error) {
	content, err := l.Fetch(ctx, parameterName)
	if err != nil {
		return nil, err
	}
	return Parse(content)
}

// LoadFile reads and parses a local configuration file.
func LoadFile(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(content)
}

// Source says where configuration comes from. File takes precedence over
// Parameter; with neither, Default is used.
type Source struct {
	File      string
	Parameter string

	// SSM is required when Parameter is set.
	SSM SSMAPI

	// Getenv reads environment overrides. If nil, os.Getenv is used.
	Getenv func(string) string
}

// Resolve loads configuration from src, applies environment overrides and
// validates the result. Warnings are returned alongside the config.
func Resolve(ctx context.Context, src Source) (*Config, []ValidationIssue, error) {
	var (
		cfg    *Config
		err    error
		origin = "defaults"
	)
	switch {
	case src.File != "":
		cfg, err = LoadFile(src.File)
		origin = src.File
	case src.Parameter != "":
		if src.SSM == nil {
			return nil, nil, errors.New("SSM client required to load config parameter")
		}
		cfg, err = NewLoaderWithClient(src.SSM).Load(ctx, src.Parameter)
		origin = src.Parameter
	default:
		cfg = Default()
	}
	if err != nil {
		return nil, nil, err
	}

	getenv := src.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	if err := ApplyEnv(cfg, getenv); err != nil {
		return nil, nil, err
	}

	result := Check(cfg, origin)
	if !result.Valid {
		msgs := make([]string, 0, len(result.Issues))
		for _, issue := range result.Issues {
			if issue.Severity == SeverityError {
				msgs = append(msgs, issue.Location+": "+issue.Message)
			}
		}
		return nil, result.Issues, fmt.Errorf("invalid config %s: %s", origin, strings.Join(msgs, "; "))
	}
	return cfg, result.Issues, nil
}
