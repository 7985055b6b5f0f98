package request

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	hrerrors "github.com/byteness/hrflow/errors"
	"github.com/byteness/hrflow/iso8601"
)

// GSIStatus indexes requests by status with created_at sort key.
// The index is created externally via Terraform/CloudFormation.
const GSIStatus = "gsi-status"

// dynamoDBAPI defines the DynamoDB operations used by the stores in this package.
// This interface enables testing with mock implementations.
type dynamoDBAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// DynamoDBStore implements Store using AWS DynamoDB, one table per request type.
//
// Table schema assumptions (created externally via Terraform/CloudFormation):
//   - Partition key: id (String)
//   - GSI gsi-status: partition key status, sort key created_at
type DynamoDBStore struct {
	client dynamoDBAPI
	tables map[RequestType]string
}

// NewDynamoDBStore creates a new DynamoDBStore using the provided AWS configuration.
// tables maps each approval request type to its table name.
func NewDynamoDBStore(cfg aws.Config, tables map[RequestType]string) *DynamoDBStore {
	return newDynamoDBStoreWithClient(dynamodb.NewFromConfig(cfg), tables)
}

// newDynamoDBStoreWithClient creates a DynamoDBStore with a custom client.
// This is primarily used for testing with mock clients.
func newDynamoDBStoreWithClient(client dynamoDBAPI, tables map[RequestType]string) *DynamoDBStore {
	t := make(map[RequestType]string, len(tables))
	for k, v := range tables {
		t[k] = v
	}
	return &DynamoDBStore{
		client: client,
		tables: t,
	}
}

// dynamoItem represents the DynamoDB item structure for a WorkflowRequest.
// Decision fields are flattened with hod_ / hr_ prefixes using the same column
// names as the log table.
type dynamoItem struct {
	ID            string `dynamodbav:"id"`
	Status        string `dynamodbav:"status"`
	RequesterName string `dynamodbav:"requester_name"`
	Department    string `dynamodbav:"department,omitempty"`
	LeaveType     string `dynamodbav:"leave_type,omitempty"`
	StartDate     string `dynamodbav:"start_date,omitempty"`
	EndDate       string `dynamodbav:"end_date,omitempty"`
	Departure     string `dynamodbav:"departure,omitempty"`
	Arrival       string `dynamodbav:"arrival,omitempty"`
	Reason        string `dynamodbav:"reason,omitempty"`
	AttachmentRef string `dynamodbav:"attachment_ref,omitempty"`
	ContactNumber string `dynamodbav:"contact_number,omitempty"`

	HODRemarks      string `dynamodbav:"hod_remarks,omitempty"`
	HODApproverID   string `dynamodbav:"hod_id,omitempty"`
	HODApproverName string `dynamodbav:"hod_name,omitempty"`
	HODDecidedAt    string `dynamodbav:"hod_approval_time,omitempty"`

	HRRemarks      string `dynamodbav:"hr_remarks,omitempty"`
	HRApproverID   string `dynamodbav:"hr_id,omitempty"`
	HRApproverName string `dynamodbav:"hr_name,omitempty"`
	HRDecidedAt    string `dynamodbav:"hr_approval_time,omitempty"`

	CreatedAt string `dynamodbav:"created_at"`
	UpdatedAt string `dynamodbav:"updated_at"`
}

// requestToItem converts a WorkflowRequest to a DynamoDB item structure.
func requestToItem(req *WorkflowRequest) *dynamoItem {
	item := &dynamoItem{
		ID:            req.ID,
		Status:        string(req.Status),
		RequesterName: req.RequesterName,
		Department:    req.Department,
		LeaveType:     req.Payload.LeaveType,
		StartDate:     req.Payload.StartDate,
		EndDate:       req.Payload.EndDate,
		Departure:     req.Payload.Departure,
		Arrival:       req.Payload.Arrival,
		Reason:        req.Payload.Reason,
		AttachmentRef: req.Payload.AttachmentRef,
		ContactNumber: req.Payload.ContactNumber,
		CreatedAt:     iso8601.Format(req.CreatedAt),
		UpdatedAt:     iso8601.Format(req.UpdatedAt),
	}
	if d := req.HOD; d != nil {
		item.HODRemarks = d.Remarks
		item.HODApproverID = d.ApproverID
		item.HODApproverName = d.ApproverName
		item.HODDecidedAt = iso8601.Format(d.DecidedAt)
	}
	if d := req.HR; d != nil {
		item.HRRemarks = d.Remarks
		item.HRApproverID = d.ApproverID
		item.HRApproverName = d.ApproverName
		item.HRDecidedAt = iso8601.Format(d.DecidedAt)
	}
	return item
}

// itemToRequest converts a DynamoDB item structure back to a WorkflowRequest.
func itemToRequest(reqType RequestType, item *dynamoItem) (*WorkflowRequest, error) {
	status, err := ParseStatus(item.Status)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", item.ID, err)
	}
	createdAt, err := parseDynamoDBTime(item.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	updatedAt := createdAt
	if item.UpdatedAt != "" {
		if updatedAt, err = parseDynamoDBTime(item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("parse updated_at: %w", err)
		}
	}

	req := &WorkflowRequest{
		ID:            item.ID,
		Type:          reqType,
		Status:        status,
		RequesterName: item.RequesterName,
		Department:    item.Department,
		Payload: Payload{
			LeaveType:     item.LeaveType,
			StartDate:     item.StartDate,
			EndDate:       item.EndDate,
			Departure:     item.Departure,
			Arrival:       item.Arrival,
			Reason:        item.Reason,
			AttachmentRef: item.AttachmentRef,
			ContactNumber: item.ContactNumber,
		},
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}

	if req.HOD, err = itemDecision(item.HODApproverID, item.HODApproverName, item.HODRemarks, item.HODDecidedAt); err != nil {
		return nil, fmt.Errorf("parse hod_approval_time: %w", err)
	}
	if req.HR, err = itemDecision(item.HRApproverID, item.HRApproverName, item.HRRemarks, item.HRDecidedAt); err != nil {
		return nil, fmt.Errorf("parse hr_approval_time: %w", err)
	}
	return req, nil
}

// itemDecision rebuilds a Decision, or nil when the stage was never decided.
func itemDecision(id, name, remarks, decidedAt string) (*Decision, error) {
	if id == "" && name == "" && decidedAt == "" {
		return nil, nil
	}
	d := &Decision{ApproverID: id, ApproverName: name, Remarks: remarks}
	if decidedAt != "" {
		t, err := parseDynamoDBTime(decidedAt)
		if err != nil {
			return nil, err
		}
		d.DecidedAt = t
	}
	return d, nil
}

func (s *DynamoDBStore) table(reqType RequestType) (string, error) {
	name, ok := s.tables[reqType]
	if !ok || name == "" {
		return "", fmt.Errorf("%s: %w", reqType, ErrUnsupportedType)
	}
	return name, nil
}

// Create stores a new request. Returns ErrRequestExists if ID already exists.
func (s *DynamoDBStore) Create(ctx context.Context, req *WorkflowRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	if req.Status != StatusPendingHOD {
		return fmt.Errorf("new request must be %q, got %q", StatusPendingHOD, req.Status)
	}
	tableName, err := s.table(req.Type)
	if err != nil {
		return err
	}

	av, err := attributevalue.MarshalMap(requestToItem(req))
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(id)"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return fmt.Errorf("%s: %w", req.ID, ErrRequestExists)
		}
		return hrerrors.WrapDynamoDBError(err, tableName, "PutItem")
	}

	return nil
}

// Get retrieves a request by type and ID. Returns ErrRequestNotFound if not exists.
func (s *DynamoDBStore) Get(ctx context.Context, reqType RequestType, id string) (*WorkflowRequest, error) {
	tableName, err := s.table(reqType)
	if err != nil {
		return nil, err
	}

	output, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(tableName),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return nil, hrerrors.WrapDynamoDBError(err, tableName, "GetItem")
	}

	if output.Item == nil {
		return nil, fmt.Errorf("%s: %w", id, ErrRequestNotFound)
	}

	var item dynamoItem
	if err := attributevalue.UnmarshalMap(output.Item, &item); err != nil {
		return nil, fmt.Errorf("unmarshal request: %w", err)
	}

	return itemToRequest(reqType, &item)
}

// ApplyTransition updates status and decision fields with a condition on the
// stored status. Payload attributes are never written.
// Returns ErrRequestNotFound if request doesn't exist.
// Returns ErrConcurrentModification if the status is no longer expected.
func (s *DynamoDBStore) ApplyTransition(ctx context.Context, reqType RequestType, id string, expected Status, m Mutation) error {
	tableName, err := s.table(reqType)
	if err != nil {
		return err
	}

	updatedAt := m.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	sets := []string{"#status = :status", "updated_at = :updated_at"}
	values := map[string]types.AttributeValue{
		":status":     &types.AttributeValueMemberS{Value: string(m.Status)},
		":updated_at": &types.AttributeValueMemberS{Value: iso8601.Format(updatedAt)},
		":expected":   &types.AttributeValueMemberS{Value: string(expected)},
	}
	sets = appendDecisionSets(sets, values, "hod", m.HOD)
	sets = appendDecisionSets(sets, values, "hr", m.HR)

	// Rows written before the two-stage rollout still carry "Pending".
	condition := "attribute_exists(id) AND #status = :expected"
	if expected == StatusPendingHOD {
		condition = "attribute_exists(id) AND (#status = :expected OR #status = :legacy)"
		values[":legacy"] = &types.AttributeValueMemberS{Value: string(statusLegacyPending)}
	}

	_, err = s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(tableName),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
		UpdateExpression:          aws.String("SET " + strings.Join(sets, ", ")),
		ConditionExpression:       aws.String(condition),
		ExpressionAttributeNames:  map[string]string{"#status": "status"},
		ExpressionAttributeValues: values,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			// Either the item is gone or another approver got there first.
			exists, checkErr := s.exists(ctx, tableName, id)
			if checkErr != nil {
				return fmt.Errorf("dynamodb UpdateItem condition failed, check exists: %w", checkErr)
			}
			if !exists {
				return fmt.Errorf("%s: %w", id, ErrRequestNotFound)
			}
			return fmt.Errorf("%s: %w", id, ErrConcurrentModification)
		}
		return hrerrors.WrapDynamoDBError(err, tableName, "UpdateItem")
	}

	return nil
}

// appendDecisionSets adds SET clauses for one stage's decision fields.
func appendDecisionSets(sets []string, values map[string]types.AttributeValue, prefix string, d *Decision) []string {
	if d == nil {
		return sets
	}
	fields := []struct {
		attr  string
		value string
	}{
		{prefix + "_remarks", d.Remarks},
		{prefix + "_id", d.ApproverID},
		{prefix + "_name", d.ApproverName},
		{prefix + "_approval_time", iso8601.Format(d.DecidedAt)},
	}
	for _, f := range fields {
		placeholder := ":" + f.attr
		sets = append(sets, f.attr+" = "+placeholder)
		values[placeholder] = &types.AttributeValueMemberS{Value: f.value}
	}
	return sets
}

// exists checks if a request with the given ID exists in the table.
func (s *DynamoDBStore) exists(ctx context.Context, tableName, id string) (bool, error) {
	output, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(tableName),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
		ProjectionExpression: aws.String("id"),
	})
	if err != nil {
		return false, fmt.Errorf("dynamodb GetItem: %w", err)
	}

	return output.Item != nil, nil
}

// ListByStatus returns requests of a type in a status, ordered by created_at desc.
// Listing Pending HOD also returns rows still carrying the legacy "Pending" value.
func (s *DynamoDBStore) ListByStatus(ctx context.Context, reqType RequestType, status Status, limit int) ([]*WorkflowRequest, error) {
	tableName, err := s.table(reqType)
	if err != nil {
		return nil, err
	}
	effectiveLimit := EffectiveLimit(limit)

	requests, err := s.queryByStatus(ctx, reqType, tableName, string(status), effectiveLimit)
	if err != nil {
		return nil, err
	}
	if status == StatusPendingHOD && len(requests) < effectiveLimit {
		legacy, err := s.queryByStatus(ctx, reqType, tableName, string(statusLegacyPending), effectiveLimit-len(requests))
		if err != nil {
			return nil, err
		}
		requests = mergeNewestFirst(requests, legacy)
	}
	return requests, nil
}

// queryByStatus executes a query against the status GSI.
// Results are ordered by created_at descending (newest first).
func (s *DynamoDBStore) queryByStatus(ctx context.Context, reqType RequestType, tableName, status string, limit int) ([]*WorkflowRequest, error) {
	output, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(tableName),
		IndexName:              aws.String(GSIStatus),
		KeyConditionExpression: aws.String("#status = :v"),
		ExpressionAttributeNames: map[string]string{
			"#status": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":v": &types.AttributeValueMemberS{Value: status},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(int32(limit)),
	})
	if err != nil {
		return nil, hrerrors.WrapDynamoDBError(err, tableName, "Query:"+GSIStatus)
	}

	requests := make([]*WorkflowRequest, 0, len(output.Items))
	for _, av := range output.Items {
		var item dynamoItem
		if err := attributevalue.UnmarshalMap(av, &item); err != nil {
			return nil, fmt.Errorf("unmarshal request: %w", err)
		}
		req, err := itemToRequest(reqType, &item)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}

	return requests, nil
}

// mergeNewestFirst merges two created_at-descending slices.
func mergeNewestFirst(a, b []*WorkflowRequest) []*WorkflowRequest {
	out := make([]*WorkflowRequest, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if !a[i].CreatedAt.Before(b[j].CreatedAt) {
			out = append(out, a[i])
			i++
		} else {
			out = append(out, b[j])
			j++
		}
	}
	out = append(out, a[i:]...)
	return append(out, b[j:]...)
}

// parseDynamoDBTime parses a time string that may be in ISO 8601 format
// or as a Unix timestamp (rows written by older tooling).
func parseDynamoDBTime(s string) (time.Time, error) {
	if t, err := iso8601.Parse(s); err == nil {
		return t, nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0), nil
	}
	return time.Time{}, fmt.Errorf("cannot parse time: %q", s)
}
