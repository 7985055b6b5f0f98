package directory

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	hrerrors "github.com/byteness/hrflow/errors"
)

// GSI name constants for the users table.
const (
	GSIDisplayName  = "gsi-display-name"
	GSIEmployeeCode = "gsi-employee-code"
	GSIDepartment   = "gsi-department"
)

type dynamoDBAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// DynamoDBDirectory implements Directory on the users table.
//
// Table schema assumptions (created externally via Terraform/CloudFormation):
//   - Partition key: id (String)
//   - GSIs on full_name, emp_id and department
type DynamoDBDirectory struct {
	client    dynamoDBAPI
	tableName string
}

// NewDynamoDBDirectory creates a DynamoDBDirectory using the provided AWS configuration.
func NewDynamoDBDirectory(cfg aws.Config, tableName string) *DynamoDBDirectory {
	return &DynamoDBDirectory{client: dynamodb.NewFromConfig(cfg), tableName: tableName}
}

func newDynamoDBDirectoryWithClient(client dynamoDBAPI, tableName string) *DynamoDBDirectory {
	return &DynamoDBDirectory{client: client, tableName: tableName}
}

type userItem struct {
	ID         string `dynamodbav:"id"`
	EmpID      string `dynamodbav:"emp_id"`
	FullName   string `dynamodbav:"full_name"`
	Department string `dynamodbav:"department"`
	IsHOD      bool   `dynamodbav:"is_hod"`
	Role       string `dynamodbav:"role"`
	Phone      string `dynamodbav:"phone_number"`
}

func (u *userItem) principal() *Principal {
	return &Principal{
		ID:                 u.ID,
		EmployeeCode:       u.EmpID,
		DisplayName:        u.FullName,
		Department:         u.Department,
		IsHeadOfDepartment: u.IsHOD,
		Role:               u.Role,
		Phone:              u.Phone,
	}
}

// FindByName queries the display-name index.
func (d *DynamoDBDirectory) FindByName(ctx context.Context, name string) (*Principal, error) {
	return d.findOne(ctx, GSIDisplayName, "full_name", name)
}

// FindByEmployeeCode queries the employee-code index.
func (d *DynamoDBDirectory) FindByEmployeeCode(ctx context.Context, code string) (*Principal, error) {
	return d.findOne(ctx, GSIEmployeeCode, "emp_id", code)
}

// FindByID reads the user by primary key.
func (d *DynamoDBDirectory) FindByID(ctx context.Context, id string) (*Principal, error) {
	output, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(d.tableName),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return nil, hrerrors.WrapDynamoDBError(err, d.tableName, "GetItem")
	}
	if output.Item == nil {
		return nil, fmt.Errorf("id %s: %w", id, ErrPrincipalNotFound)
	}
	var item userItem
	if err := attributevalue.UnmarshalMap(output.Item, &item); err != nil {
		return nil, fmt.Errorf("unmarshal user: %w", err)
	}
	return item.principal(), nil
}

// ListByDepartment returns all users in a department.
func (d *DynamoDBDirectory) ListByDepartment(ctx context.Context, department string) ([]*Principal, error) {
	return d.query(ctx, GSIDepartment, "department", department, 0)
}

func (d *DynamoDBDirectory) findOne(ctx context.Context, index, attr, value string) (*Principal, error) {
	found, err := d.query(ctx, index, attr, value, 1)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("%s %s: %w", attr, value, ErrPrincipalNotFound)
	}
	return found[0], nil
}

func (d *DynamoDBDirectory) query(ctx context.Context, index, attr, value string, limit int32) ([]*Principal, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(d.tableName),
		IndexName:              aws.String(index),
		KeyConditionExpression: aws.String("#k = :v"),
		ExpressionAttributeNames: map[string]string{
			"#k": attr,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":v": &types.AttributeValueMemberS{Value: value},
		},
	}
	if limit > 0 {
		input.Limit = aws.Int32(limit)
	}

	output, err := d.client.Query(ctx, input)
	if err != nil {
		return nil, hrerrors.WrapDynamoDBError(err, d.tableName, "Query:"+index)
	}

	principals := make([]*Principal, 0, len(output.Items))
	for _, av := range output.Items {
		var item userItem
		if err := attributevalue.UnmarshalMap(av, &item); err != nil {
			return nil, fmt.Errorf("unmarshal user: %w", err)
		}
		principals = append(principals, item.principal())
	}
	return principals, nil
}
