package testutil

import (
	"context"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
)

// ============================================================================
// MockSSMClient - config.SSMAPI and config.SSMWriterAPI
// ============================================================================

// MockSSMClient is an in-memory Parameter Store. PutParameter bumps the
// version and refuses to replace a parameter unless Overwrite is set;
// GetParameter returns ParameterNotFound for unknown names, like the real
// service. The zero value is an empty store.
type MockSSMClient struct {
	mu sync.Mutex

	// Error injection, checked before the in-memory store.
	GetParameterErr error
	PutParameterErr error

	params map[string]*types.Parameter

	// Call tracking
	GetParameterCalls []*ssm.GetParameterInput
	PutParameterCalls []*ssm.PutParameterInput
}

// NewMockSSMClient returns a store holding values at version 1.
func NewMockSSMClient(values map[string]string) *MockSSMClient {
	m := &MockSSMClient{params: make(map[string]*types.Parameter, len(values))}
	for name, v := range values {
		m.params[name] = &types.Parameter{Name: aws.String(name), Value: aws.String(v), Version: 1, Type: types.ParameterTypeString}
	}
	return m
}

// GetParameter returns the stored parameter.
func (m *MockSSMClient) GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GetParameterCalls = append(m.GetParameterCalls, params)

	if m.GetParameterErr != nil {
		return nil, m.GetParameterErr
	}
	name := aws.ToString(params.Name)
	p, ok := m.params[name]
	if !ok {
		return nil, &types.ParameterNotFound{Message: aws.String("parameter " + name + " not found")}
	}
	c := *p
	return &ssm.GetParameterOutput{Parameter: &c}, nil
}

// PutParameter stores a new version of the parameter.
func (m *MockSSMClient) PutParameter(ctx context.Context, params *ssm.PutParameterInput, optFns ...func(*ssm.Options)) (*ssm.PutParameterOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PutParameterCalls = append(m.PutParameterCalls, params)

	if m.PutParameterErr != nil {
		return nil, m.PutParameterErr
	}
	if m.params == nil {
		m.params = make(map[string]*types.Parameter)
	}
	name := aws.ToString(params.Name)
	var version int64 = 1
	if existing, ok := m.params[name]; ok {
		if !aws.ToBool(params.Overwrite) {
			return nil, &types.ParameterAlreadyExists{Message: aws.String("The parameter already exists.")}
		}
		version = existing.Version + 1
	}
	m.params[name] = &types.Parameter{Name: aws.String(name), Value: params.Value, Version: version, Type: params.Type}
	return &ssm.PutParameterOutput{Version: version}, nil
}

// Value returns the stored value of name and whether it exists.
func (m *MockSSMClient) Value(name string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.params[name]
	if !ok {
		return "", false
	}
	return aws.ToString(p.Value), true
}
