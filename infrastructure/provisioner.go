package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	hrerrors "github.com/byteness/hrflow/errors"
)

// ProvisionStatus represents the result status of a provision operation.
type ProvisionStatus string

const (
	// StatusCreated indicates the table was created.
	StatusCreated ProvisionStatus = "CREATED"
	// StatusExists indicates the table already exists and is active.
	StatusExists ProvisionStatus = "EXISTS"
	// StatusFailed indicates the provision operation failed.
	StatusFailed ProvisionStatus = "FAILED"
)

const (
	defaultInitialBackoff = 1 * time.Second
	maxBackoff            = 20 * time.Second
	waitTimeout           = 5 * time.Minute
)

// DynamoDBProvisionerAPI defines the DynamoDB operations used by TableProvisioner.
type DynamoDBProvisionerAPI interface {
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// TableProvisioner creates tables idempotently.
type TableProvisioner struct {
	client         DynamoDBProvisionerAPI
	initialBackoff time.Duration
}

// NewTableProvisioner creates a TableProvisioner using the provided AWS configuration.
func NewTableProvisioner(cfg aws.Config) *TableProvisioner {
	return NewTableProvisionerWithClient(dynamodb.NewFromConfig(cfg))
}

// NewTableProvisionerWithClient creates a TableProvisioner with a custom client.
func NewTableProvisionerWithClient(client DynamoDBProvisionerAPI) *TableProvisioner {
	return &TableProvisioner{client: client, initialBackoff: defaultInitialBackoff}
}

// ProvisionResult is the outcome for one table.
type ProvisionResult struct {
	TableName string          `json:"table_name"`
	Role      TableRole       `json:"role"`
	Status    ProvisionStatus `json:"status"`
	ARN       string          `json:"arn,omitempty"`
	Code      string          `json:"code,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// ProvisionPlan describes what Create would request for a table.
type ProvisionPlan struct {
	TableName    string    `json:"table_name"`
	Role         TableRole `json:"role"`
	PartitionKey string    `json:"partition_key"`
	SortKey      string    `json:"sort_key,omitempty"`
	GSIs         []string  `json:"gsis,omitempty"`
	BillingMode  string    `json:"billing_mode"`
}

// Plan describes the table without calling AWS, so it works before the
// caller has DynamoDB permissions.
func (p *TableProvisioner) Plan(schema TableSchema) (*ProvisionPlan, error) {
	if err := schema.Validate(); err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}
	plan := &ProvisionPlan{
		TableName:    schema.TableName,
		Role:         schema.Role,
		PartitionKey: schema.PartitionKey.Name,
		GSIs:         schema.GSINames(),
		BillingMode:  string(types.BillingModePayPerRequest),
	}
	if schema.SortKey != nil {
		plan.SortKey = schema.SortKey.Name
	}
	return plan, nil
}

// Create provisions a table from schema. An ACTIVE table is left alone and
// reported as StatusExists; a table still being created is waited for.
// AWS failures are reported in the result, not as an error, so one bad table
// does not hide the others.
func (p *TableProvisioner) Create(ctx context.Context, schema TableSchema) (*ProvisionResult, error) {
	if err := schema.Validate(); err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}
	result := &ProvisionResult{TableName: schema.TableName, Role: schema.Role}
	fail := func(err error) (*ProvisionResult, error) {
		result.Status = StatusFailed
		result.Code = hrerrors.GetCode(err)
		result.Error = err.Error()
		return result, nil
	}

	status, arn, err := p.tableStatus(ctx, schema.TableName)
	if err != nil {
		return fail(err)
	}

	switch status {
	case types.TableStatusActive:
		result.Status, result.ARN = StatusExists, arn
		return result, nil

	case types.TableStatusCreating, types.TableStatusUpdating:
		arn, err := p.waitForActive(ctx, schema.TableName)
		if err != nil {
			return fail(err)
		}
		result.Status, result.ARN = StatusExists, arn
		return result, nil

	case "":
		_, err := p.client.CreateTable(ctx, createTableInput(schema))
		if err != nil {
			var riu *types.ResourceInUseException
			if !errors.As(err, &riu) {
				return fail(hrerrors.WrapDynamoDBError(err, schema.TableName, "CreateTable"))
			}
			// Created concurrently by someone else.
			arn, err := p.waitForActive(ctx, schema.TableName)
			if err != nil {
				return fail(err)
			}
			result.Status, result.ARN = StatusExists, arn
			return result, nil
		}
		arn, err := p.waitForActive(ctx, schema.TableName)
		if err != nil {
			return fail(err)
		}
		result.Status, result.ARN = StatusCreated, arn
		return result, nil

	default:
		return fail(fmt.Errorf("table exists with unexpected status: %s", status))
	}
}

// tableStatus returns "" when the table does not exist.
func (p *TableProvisioner) tableStatus(ctx context.Context, tableName string) (types.TableStatus, string, error) {
	output, err := p.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(tableName),
	})
	if err != nil {
		var rnf *types.ResourceNotFoundException
		if errors.As(err, &rnf) {
			return "", "", nil
		}
		return "", "", hrerrors.WrapDynamoDBError(err, tableName, "DescribeTable")
	}
	if output.Table == nil {
		return "", "", nil
	}
	return output.Table.TableStatus, aws.ToString(output.Table.TableArn), nil
}

// waitForActive polls with exponential backoff until the table is ACTIVE.
func (p *TableProvisioner) waitForActive(ctx context.Context, tableName string) (string, error) {
	backoff := p.initialBackoff
	deadline := time.Now().Add(waitTimeout)

	for {
		if time.Now().After(deadline) {
			return "", fmt.Errorf("timeout waiting for table %s to become ACTIVE", tableName)
		}

		status, arn, err := p.tableStatus(ctx, tableName)
		if err != nil {
			return "", err
		}
		switch status {
		case types.TableStatusActive:
			return arn, nil
		case "", types.TableStatusDeleting:
			return "", fmt.Errorf("table %s disappeared while waiting for it", tableName)
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

// createTableInput converts a schema to a CreateTableInput with on-demand billing.
func createTableInput(schema TableSchema) *dynamodb.CreateTableInput {
	attrs := map[string]KeyType{schema.PartitionKey.Name: schema.PartitionKey.Type}
	keySchema := []types.KeySchemaElement{
		{AttributeName: aws.String(schema.PartitionKey.Name), KeyType: types.KeyTypeHash},
	}
	if schema.SortKey != nil {
		attrs[schema.SortKey.Name] = schema.SortKey.Type
		keySchema = append(keySchema, types.KeySchemaElement{
			AttributeName: aws.String(schema.SortKey.Name),
			KeyType:       types.KeyTypeRange,
		})
	}

	var gsis []types.GlobalSecondaryIndex
	for _, gsi := range schema.GlobalSecondaryIndexes {
		attrs[gsi.PartitionKey.Name] = gsi.PartitionKey.Type
		gsiKeys := []types.KeySchemaElement{
			{AttributeName: aws.String(gsi.PartitionKey.Name), KeyType: types.KeyTypeHash},
		}
		if gsi.SortKey != nil {
			attrs[gsi.SortKey.Name] = gsi.SortKey.Type
			gsiKeys = append(gsiKeys, types.KeySchemaElement{
				AttributeName: aws.String(gsi.SortKey.Name),
				KeyType:       types.KeyTypeRange,
			})
		}
		gsis = append(gsis, types.GlobalSecondaryIndex{
			IndexName:  aws.String(gsi.IndexName),
			KeySchema:  gsiKeys,
			Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
		})
	}

	names := make([]string, 0, len(attrs))
	for name := range attrs {
		names = append(names, name)
	}
	sort.Strings(names)
	defs := make([]types.AttributeDefinition, 0, len(names))
	for _, name := range names {
		defs = append(defs, types.AttributeDefinition{
			AttributeName: aws.String(name),
			AttributeType: types.ScalarAttributeType(attrs[name]),
		})
	}

	return &dynamodb.CreateTableInput{
		TableName:              aws.String(schema.TableName),
		AttributeDefinitions:   defs,
		KeySchema:              keySchema,
		GlobalSecondaryIndexes: gsis,
		BillingMode:            types.BillingModePayPerRequest,
	}
}
