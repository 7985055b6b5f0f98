package directory

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	hrerrors "github.com/byteness/hrflow/errors"
)

type mockDynamoDBClient struct {
	getItemFunc func(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	queryFunc   func(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

func (m *mockDynamoDBClient) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	if m.getItemFunc != nil {
		return m.getItemFunc(ctx, params, optFns...)
	}
	return &dynamodb.GetItemOutput{}, nil
}

func (m *mockDynamoDBClient) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	if m.queryFunc != nil {
		return m.queryFunc(ctx, params, optFns...)
	}
	return &dynamodb.QueryOutput{}, nil
}

func userAV(id, empID, name, dept string, hod bool) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"id":         &types.AttributeValueMemberS{Value: id},
		"emp_id":     &types.AttributeValueMemberS{Value: empID},
		"full_name":  &types.AttributeValueMemberS{Value: name},
		"department": &types.AttributeValueMemberS{Value: dept},
		"is_hod":     &types.AttributeValueMemberBOOL{Value: hod},
	}
}

func TestDynamoDBDirectory_FindByName(t *testing.T) {
	var captured *dynamodb.QueryInput
	client := &mockDynamoDBClient{
		queryFunc: func(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
			captured = params
			return &dynamodb.QueryOutput{Items: []map[string]types.AttributeValue{
				userAV("u-1", "E100", "Jane Doe", "Accounts", true),
			}}, nil
		},
	}
	d := newDynamoDBDirectoryWithClient(client, "hrflow-users")

	p, err := d.FindByName(context.Background(), "Jane Doe")
	if err != nil {
		t.Fatalf("FindByName: %v", err)
	}
	if p.ID != "u-1" || !p.IsHeadOfDepartment || p.EmployeeCode != "E100" {
		t.Errorf("unexpected principal: %+v", p)
	}
	if *captured.IndexName != GSIDisplayName {
		t.Errorf("IndexName = %q, want %q", *captured.IndexName, GSIDisplayName)
	}
	if captured.ExpressionAttributeNames["#k"] != "full_name" {
		t.Errorf("key attribute = %q", captured.ExpressionAttributeNames["#k"])
	}
	if captured.Limit == nil || *captured.Limit != 1 {
		t.Error("single-principal lookups should limit to 1")
	}
}

func TestDynamoDBDirectory_PhoneNumberColumn(t *testing.T) {
	client := &mockDynamoDBClient{
		getItemFunc: func(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
			item := userAV("u-5", "E500", "Priya Nair", "HR", false)
			item["phone_number"] = &types.AttributeValueMemberS{Value: "+910000000500"}
			return &dynamodb.GetItemOutput{Item: item}, nil
		},
	}
	d := newDynamoDBDirectoryWithClient(client, "hrflow-users")

	p, err := d.FindByID(context.Background(), "u-5")
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if p.Phone != "+910000000500" {
		t.Errorf("Phone = %q, want value of phone_number", p.Phone)
	}
}

func TestDynamoDBDirectory_NotFound(t *testing.T) {
	d := newDynamoDBDirectoryWithClient(&mockDynamoDBClient{}, "hrflow-users")

	if _, err := d.FindByEmployeeCode(context.Background(), "E404"); !errors.Is(err, ErrPrincipalNotFound) {
		t.Errorf("FindByEmployeeCode error = %v, want ErrPrincipalNotFound", err)
	}
	if _, err := d.FindByID(context.Background(), "u-404"); !errors.Is(err, ErrPrincipalNotFound) {
		t.Errorf("FindByID error = %v, want ErrPrincipalNotFound", err)
	}
}

func TestDynamoDBDirectory_FindByID(t *testing.T) {
	client := &mockDynamoDBClient{
		getItemFunc: func(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
			return &dynamodb.GetItemOutput{Item: userAV("u-2", "E200", "Asha Menon", "HR", false)}, nil
		},
	}
	d := newDynamoDBDirectoryWithClient(client, "hrflow-users")
	p, err := d.FindByID(context.Background(), "u-2")
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if !p.InHR() {
		t.Errorf("expected HR principal, got %+v", p)
	}
}

func TestDynamoDBDirectory_ErrorsAbortResolution(t *testing.T) {
	client := &mockDynamoDBClient{
		queryFunc: func(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
			return nil, errors.New("ResourceNotFoundException: table missing")
		},
	}
	r := NewResolver(newDynamoDBDirectoryWithClient(client, "hrflow-users"))
	_, err := r.Resolve(context.Background(), "Jane Doe")
	if got := hrerrors.GetCode(err); got != hrerrors.ErrCodeDynamoDBTableNotFound {
		t.Errorf("GetCode() = %q, want %q (err = %v)", got, hrerrors.ErrCodeDynamoDBTableNotFound, err)
	}
}

func TestDynamoDBDirectory_HRContact(t *testing.T) {
	client := &mockDynamoDBClient{
		queryFunc: func(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
			if *params.IndexName != GSIDepartment {
				t.Errorf("IndexName = %q", *params.IndexName)
			}
			return &dynamodb.QueryOutput{Items: []map[string]types.AttributeValue{
				userAV("u-2", "E200", "Asha Menon", "HR", false),
				userAV("u-3", "E300", "Vikram Shah", "HR", true),
			}}, nil
		},
	}
	r := NewResolver(newDynamoDBDirectoryWithClient(client, "hrflow-users"))
	p, err := r.HRContact(context.Background())
	if err != nil {
		t.Fatalf("HRContact: %v", err)
	}
	if p.ID != "u-3" {
		t.Errorf("HRContact ID = %q, want u-3 (head of department)", p.ID)
	}
}
