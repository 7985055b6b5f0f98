package config

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	hrerrors "github.com/byteness/hrflow/errors"
)

// ErrParameterExists is returned by Publish when the parameter exists and
// overwrite was not requested.
var ErrParameterExists = errors.New("config parameter already exists")

// SSMWriterAPI defines the SSM write operations used by Publisher.
type SSMWriterAPI interface {
	PutParameter(ctx context.Context, params *ssm.PutParameterInput, optFns ...func(*ssm.Options)) (*ssm.PutParameterOutput, error)
}

// Publisher writes validated configuration to SSM Parameter Store.
type Publisher struct {
	ssm SSMWriterAPI
}

// NewPublisher creates a Publisher using the provided AWS configuration.
func NewPublisher(cfg aws.Config) *Publisher {
	return &Publisher{ssm: ssm.NewFromConfig(cfg)}
}

// NewPublisherWithClient creates a Publisher with a custom SSM client.
func NewPublisherWithClient(client SSMWriterAPI) *Publisher {
	return &Publisher{ssm: client}
}

// PublishResult describes a completed publish.
type PublishResult struct {
	Parameter string            `json:"parameter"`
	Version   int64             `json:"version"`
	Warnings  []ValidationIssue `json:"warnings,omitempty"`
}

// Publish validates content and stores it under parameterName.
// Content with validation errors is never written.
func (p *Publisher) Publish(ctx context.Context, parameterName string, content []byte, overwrite bool) (*PublishResult, error) {
	result := Validate(content, parameterName)
	if !result.Valid {
		return nil, fmt.Errorf("refusing to publish invalid config: %d error(s), first: %s", result.Errors(), firstError(result))
	}

	out, err := p.ssm.PutParameter(ctx, &ssm.PutParameterInput{
		Name:      aws.String(parameterName),
		Value:     aws.String(string(content)),
		Type:      types.ParameterTypeString,
		Overwrite: aws.Bool(overwrite),
	})
	if err != nil {
		var alreadyExists *types.ParameterAlreadyExists
		if errors.As(err, &alreadyExists) {
			return nil, fmt.Errorf("%s: %w", parameterName, ErrParameterExists)
		}
		return nil, hrerrors.WrapSSMError(err, parameterName)
	}

	published := &PublishResult{Parameter: parameterName, Version: out.Version}
	for _, issue := range result.Issues {
		if issue.Severity == SeverityWarning {
			published.Warnings = append(published.Warnings, issue)
		}
	}
	return published, nil
}

func firstError(r ValidationResult) string {
	for _, issue := range r.Issues {
		if issue.Severity == SeverityError {
			if issue.Location != "" {
				return issue.Location + ": " + issue.Message
			}
			return issue.Message
		}
	}
	return ""
}
