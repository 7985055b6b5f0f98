package request

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	hrerrors "github.com/byteness/hrflow/errors"
	"github.com/google/go-cmp/cmp"
)

// mockDynamoDBClient implements dynamoDBAPI for testing.
type mockDynamoDBClient struct {
	putItemFunc    func(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	getItemFunc    func(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	updateItemFunc func(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	queryFunc      func(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

func (m *mockDynamoDBClient) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	if m.putItemFunc != nil {
		return m.putItemFunc(ctx, params, optFns...)
	}
	return &dynamodb.PutItemOutput{}, nil
}

func (m *mockDynamoDBClient) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	if m.getItemFunc != nil {
		return m.getItemFunc(ctx, params, optFns...)
	}
	return &dynamodb.GetItemOutput{}, nil
}

func (m *mockDynamoDBClient) UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	if m.updateItemFunc != nil {
		return m.updateItemFunc(ctx, params, optFns...)
	}
	return &dynamodb.UpdateItemOutput{}, nil
}

func (m *mockDynamoDBClient) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	if m.queryFunc != nil {
		return m.queryFunc(ctx, params, optFns...)
	}
	return &dynamodb.QueryOutput{}, nil
}

var testTables = map[RequestType]string{
	TypeLeave:    "hrflow-leave",
	TypeGatePass: "hrflow-gate-pass",
}

func marshalRequest(t *testing.T, req *WorkflowRequest) map[string]types.AttributeValue {
	t.Helper()
	av, err := attributevalue.MarshalMap(requestToItem(req))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return av
}

func TestRequestItemRoundTrip(t *testing.T) {
	decided := time.Date(2024, 3, 2, 11, 30, 0, 0, time.UTC)
	req := validRequest()
	req.Status = StatusApproved
	req.Payload.AttachmentRef = "uploads/lv-1.pdf"
	req.HOD = &Decision{ApproverID: "u1", ApproverName: "Jane Doe", Remarks: "fine", DecidedAt: decided}
	req.HR = &Decision{ApproverID: "u9", ApproverName: "Asha HR", DecidedAt: decided}

	got, err := itemToRequest(TypeLeave, requestToItem(req))
	if err != nil {
		t.Fatalf("itemToRequest: %v", err)
	}
	if diff := cmp.Diff(req, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestRequestItemColumns(t *testing.T) {
	req := validRequest()
	req.Status = StatusApproved
	req.HOD = &Decision{ApproverID: "E100", ApproverName: "Jane Doe", Remarks: "fine", DecidedAt: time.Now()}
	req.HR = req.HOD

	av := marshalRequest(t, req)
	for _, col := range []string{"hod_remarks", "hod_id", "hod_name", "hr_remarks", "hr_id", "hr_name", "requester_name", "status"} {
		if _, ok := av[col]; !ok {
			t.Errorf("item missing column %q", col)
		}
	}
	if got := av["hr_id"].(*types.AttributeValueMemberS).Value; got != "E100" {
		t.Errorf("hr_id = %q, want E100", got)
	}
}

func TestItemToRequest_LegacyPendingAndUnixTimes(t *testing.T) {
	item := &dynamoItem{
		ID:            "gp-1",
		Status:        "Pending",
		RequesterName: "Ravi Kumar",
		CreatedAt:     "1709280000",
	}
	got, err := itemToRequest(TypeGatePass, item)
	if err != nil {
		t.Fatalf("itemToRequest: %v", err)
	}
	if got.Status != StatusPendingHOD {
		t.Errorf("Status = %q, want %q", got.Status, StatusPendingHOD)
	}
	if got.CreatedAt.Unix() != 1709280000 {
		t.Errorf("CreatedAt = %v", got.CreatedAt)
	}
	if !got.UpdatedAt.Equal(got.CreatedAt) {
		t.Error("missing updated_at should default to created_at")
	}
	if got.HOD != nil || got.HR != nil {
		t.Error("undecided stages should be nil")
	}
}

func TestDynamoDBStore_Get(t *testing.T) {
	req := validRequest()

	t.Run("found", func(t *testing.T) {
		client := &mockDynamoDBClient{
			getItemFunc: func(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
				if *params.TableName != "hrflow-leave" {
					t.Errorf("TableName = %q, want hrflow-leave", *params.TableName)
				}
				return &dynamodb.GetItemOutput{Item: marshalRequest(t, req)}, nil
			},
		}
		store := newDynamoDBStoreWithClient(client, testTables)
		got, err := store.Get(context.Background(), TypeLeave, req.ID)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if diff := cmp.Diff(req, got); diff != "" {
			t.Errorf("Get mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("not found", func(t *testing.T) {
		store := newDynamoDBStoreWithClient(&mockDynamoDBClient{}, testTables)
		_, err := store.Get(context.Background(), TypeLeave, "missing")
		if !errors.Is(err, ErrRequestNotFound) {
			t.Errorf("Get error = %v, want ErrRequestNotFound", err)
		}
	})

	t.Run("unsupported type", func(t *testing.T) {
		store := newDynamoDBStoreWithClient(&mockDynamoDBClient{}, testTables)
		_, err := store.Get(context.Background(), TypeJoining, "j-1")
		if !errors.Is(err, ErrUnsupportedType) {
			t.Errorf("Get error = %v, want ErrUnsupportedType", err)
		}
	})

	t.Run("service error is wrapped", func(t *testing.T) {
		client := &mockDynamoDBClient{
			getItemFunc: func(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
				return nil, errors.New("AccessDeniedException: not authorized")
			},
		}
		store := newDynamoDBStoreWithClient(client, testTables)
		_, err := store.Get(context.Background(), TypeLeave, "x")
		if got := hrerrors.GetCode(err); got != hrerrors.ErrCodeDynamoDBAccessDenied {
			t.Errorf("GetCode() = %q, want %q", got, hrerrors.ErrCodeDynamoDBAccessDenied)
		}
	})
}

func TestDynamoDBStore_Create(t *testing.T) {
	t.Run("conditional put", func(t *testing.T) {
		var captured *dynamodb.PutItemInput
		client := &mockDynamoDBClient{
			putItemFunc: func(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
				captured = params
				return &dynamodb.PutItemOutput{}, nil
			},
		}
		store := newDynamoDBStoreWithClient(client, testTables)
		if err := store.Create(context.Background(), validRequest()); err != nil {
			t.Fatalf("Create: %v", err)
		}
		if *captured.ConditionExpression != "attribute_not_exists(id)" {
			t.Errorf("ConditionExpression = %q", *captured.ConditionExpression)
		}
		if _, ok := captured.Item["hod_id"]; ok {
			t.Error("undecided hod fields should be omitted")
		}
	})

	t.Run("duplicate", func(t *testing.T) {
		client := &mockDynamoDBClient{
			putItemFunc: func(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
				return nil, &types.ConditionalCheckFailedException{}
			},
		}
		store := newDynamoDBStoreWithClient(client, testTables)
		err := store.Create(context.Background(), validRequest())
		if !errors.Is(err, ErrRequestExists) {
			t.Errorf("Create error = %v, want ErrRequestExists", err)
		}
	})

	t.Run("must start pending hod", func(t *testing.T) {
		store := newDynamoDBStoreWithClient(&mockDynamoDBClient{}, testTables)
		req := validRequest()
		req.Status = StatusPendingHR
		if err := store.Create(context.Background(), req); err == nil {
			t.Error("Create should reject requests not in Pending HOD")
		}
	})
}

func TestDynamoDBStore_ApplyTransition(t *testing.T) {
	now := time.Date(2024, 3, 2, 8, 0, 0, 0, time.UTC)
	hod := &Decision{ApproverID: "u1", ApproverName: "Jane Doe", Remarks: "ok", DecidedAt: now}

	t.Run("update expression and condition", func(t *testing.T) {
		var captured *dynamodb.UpdateItemInput
		client := &mockDynamoDBClient{
			updateItemFunc: func(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
				captured = params
				return &dynamodb.UpdateItemOutput{}, nil
			},
		}
		store := newDynamoDBStoreWithClient(client, testTables)
		err := store.ApplyTransition(context.Background(), TypeLeave, "lv-1", StatusPendingHOD,
			Mutation{Status: StatusPendingHR, HOD: hod, UpdatedAt: now})
		if err != nil {
			t.Fatalf("ApplyTransition: %v", err)
		}

		expr := *captured.UpdateExpression
		for _, want := range []string{
			"#status = :status",
			"hod_remarks = :hod_remarks",
			"hod_id = :hod_id",
			"hod_name = :hod_name",
			"hod_approval_time = :hod_approval_time",
		} {
			if !strings.Contains(expr, want) {
				t.Errorf("UpdateExpression %q missing %q", expr, want)
			}
		}
		if strings.Contains(expr, "hr_") {
			t.Errorf("UpdateExpression %q should not touch hr fields", expr)
		}
		if strings.Contains(expr, "reason") || strings.Contains(expr, "start_date") {
			t.Errorf("UpdateExpression %q should not touch payload", expr)
		}
		if !strings.Contains(*captured.ConditionExpression, ":legacy") {
			t.Errorf("Pending HOD condition should accept legacy status: %q", *captured.ConditionExpression)
		}
		status := captured.ExpressionAttributeValues[":status"].(*types.AttributeValueMemberS).Value
		if status != string(StatusPendingHR) {
			t.Errorf(":status = %q", status)
		}
	})

	t.Run("pending hr condition is exact", func(t *testing.T) {
		var captured *dynamodb.UpdateItemInput
		client := &mockDynamoDBClient{
			updateItemFunc: func(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
				captured = params
				return &dynamodb.UpdateItemOutput{}, nil
			},
		}
		store := newDynamoDBStoreWithClient(client, testTables)
		_ = store.ApplyTransition(context.Background(), TypeGatePass, "gp-1", StatusPendingHR,
			Mutation{Status: StatusApproved, HR: hod, UpdatedAt: now})
		if got := *captured.ConditionExpression; got != "attribute_exists(id) AND #status = :expected" {
			t.Errorf("ConditionExpression = %q", got)
		}
		if *captured.TableName != "hrflow-gate-pass" {
			t.Errorf("TableName = %q", *captured.TableName)
		}
	})

	conditionFailed := func(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
		return nil, &types.ConditionalCheckFailedException{}
	}

	t.Run("concurrent modification", func(t *testing.T) {
		client := &mockDynamoDBClient{
			updateItemFunc: conditionFailed,
			getItemFunc: func(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
				return &dynamodb.GetItemOutput{Item: map[string]types.AttributeValue{
					"id": &types.AttributeValueMemberS{Value: "lv-1"},
				}}, nil
			},
		}
		store := newDynamoDBStoreWithClient(client, testTables)
		err := store.ApplyTransition(context.Background(), TypeLeave, "lv-1", StatusPendingHOD, Mutation{Status: StatusRejected, HOD: hod})
		if !errors.Is(err, ErrConcurrentModification) {
			t.Errorf("error = %v, want ErrConcurrentModification", err)
		}
	})

	t.Run("vanished request", func(t *testing.T) {
		client := &mockDynamoDBClient{updateItemFunc: conditionFailed}
		store := newDynamoDBStoreWithClient(client, testTables)
		err := store.ApplyTransition(context.Background(), TypeLeave, "lv-1", StatusPendingHOD, Mutation{Status: StatusRejected, HOD: hod})
		if !errors.Is(err, ErrRequestNotFound) {
			t.Errorf("error = %v, want ErrRequestNotFound", err)
		}
	})
}

func TestDynamoDBStore_ListByStatus(t *testing.T) {
	older := validRequest()
	older.ID = "lv-old"
	older.CreatedAt = time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	older.UpdatedAt = older.CreatedAt
	newer := validRequest()
	newer.ID = "lv-new"

	var statuses []string
	client := &mockDynamoDBClient{
		queryFunc: func(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
			status := params.ExpressionAttributeValues[":v"].(*types.AttributeValueMemberS).Value
			statuses = append(statuses, status)
			if *params.IndexName != GSIStatus {
				t.Errorf("IndexName = %q", *params.IndexName)
			}
			if status == "Pending" {
				legacy := marshalRequest(t, older)
				legacy["status"] = &types.AttributeValueMemberS{Value: "Pending"}
				return &dynamodb.QueryOutput{Items: []map[string]types.AttributeValue{legacy}}, nil
			}
			return &dynamodb.QueryOutput{Items: []map[string]types.AttributeValue{marshalRequest(t, newer)}}, nil
		},
	}
	store := newDynamoDBStoreWithClient(client, testTables)

	got, err := store.ListByStatus(context.Background(), TypeLeave, StatusPendingHOD, 0)
	if err != nil {
		t.Fatalf("ListByStatus: %v", err)
	}
	if diff := cmp.Diff([]string{"Pending HOD", "Pending"}, statuses); diff != "" {
		t.Errorf("queried statuses mismatch (-want +got):\n%s", diff)
	}
	if len(got) != 2 || got[0].ID != "lv-new" || got[1].ID != "lv-old" {
		t.Fatalf("unexpected order: %+v", got)
	}
	if got[1].Status != StatusPendingHOD {
		t.Errorf("legacy row status = %q, want normalized", got[1].Status)
	}
}

func TestDynamoDBLogStore_AppendLog(t *testing.T) {
	now := time.Date(2024, 3, 2, 8, 0, 0, 0, time.UTC)

	t.Run("fast path writes both halves", func(t *testing.T) {
		var captured *dynamodb.UpdateItemInput
		client := &mockDynamoDBClient{
			updateItemFunc: func(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
				captured = params
				return &dynamodb.UpdateItemOutput{}, nil
			},
		}
		store := newDynamoDBLogStoreWithClient(client, "hrflow-logs")
		d := &LogDecision{Action: LogActionApproved, ActedAt: now, ApproverID: "E9", ApproverName: "Asha HR"}
		err := store.AppendLog(context.Background(), "lv-1", TypeLeave, LogMutation{Status: StatusApproved, UpdatedAt: now, HOD: d, HR: d})
		if err != nil {
			t.Fatalf("AppendLog: %v", err)
		}
		key := captured.Key["request_type"].(*types.AttributeValueMemberS).Value
		if key != "Leave" {
			t.Errorf("request_type key = %q, want Leave", key)
		}
		for _, stage := range []string{"hod", "hr"} {
			for _, col := range []string{"_action", "_approval_time", "_remarks", "_id", "_name"} {
				want := stage + col + " = :" + stage + col
				if !strings.Contains(*captured.UpdateExpression, want) {
					t.Errorf("UpdateExpression missing %q", want)
				}
			}
		}
		if got := captured.ExpressionAttributeValues[":hr_id"].(*types.AttributeValueMemberS).Value; got != "E9" {
			t.Errorf(":hr_id = %q, want E9", got)
		}
		if *captured.ConditionExpression != "attribute_exists(request_id)" {
			t.Errorf("AppendLog must not insert: condition = %q", *captured.ConditionExpression)
		}
	})

	t.Run("missing row", func(t *testing.T) {
		client := &mockDynamoDBClient{
			updateItemFunc: func(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
				return nil, &types.ConditionalCheckFailedException{}
			},
		}
		store := newDynamoDBLogStoreWithClient(client, "hrflow-logs")
		err := store.AppendLog(context.Background(), "lv-1", TypeGatePass, LogMutation{Status: StatusRejected})
		if !errors.Is(err, ErrLogEntryNotFound) {
			t.Errorf("error = %v, want ErrLogEntryNotFound", err)
		}
	})
}

func TestDynamoDBLogStore_GetLog(t *testing.T) {
	client := &mockDynamoDBClient{
		getItemFunc: func(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
			return &dynamodb.GetItemOutput{Item: map[string]types.AttributeValue{
				"request_id":        &types.AttributeValueMemberS{Value: "gp-3"},
				"request_type":      &types.AttributeValueMemberS{Value: "Gate Pass"},
				"status":            &types.AttributeValueMemberS{Value: "Pending HR"},
				"hod_action":        &types.AttributeValueMemberS{Value: "Approved"},
				"hod_approval_time": &types.AttributeValueMemberS{Value: "2024-03-02T08:00:00.000Z"},
				"hod_id":            &types.AttributeValueMemberS{Value: "E100"},
				"hod_name":          &types.AttributeValueMemberS{Value: "Jane Doe"},
			}}, nil
		},
	}
	store := newDynamoDBLogStoreWithClient(client, "hrflow-logs")
	entry, err := store.GetLog(context.Background(), "gp-3", TypeGatePass)
	if err != nil {
		t.Fatalf("GetLog: %v", err)
	}
	if entry.Status != StatusPendingHR || entry.HOD == nil || entry.HR != nil {
		t.Fatalf("unexpected entry: %+v", entry)
	}
	if entry.HOD.ApproverName != "Jane Doe" || entry.HOD.ApproverID != "E100" {
		t.Errorf("HOD approver = %q/%q", entry.HOD.ApproverID, entry.HOD.ApproverName)
	}
	if entry.HOD.ActedAt.IsZero() {
		t.Error("hod_approval_time not read")
	}
}
