package request

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	hrerrors "github.com/byteness/hrflow/errors"
	"github.com/byteness/hrflow/iso8601"
)

// DynamoDBLogStore implements LogStore on the shared log table.
//
// Table schema assumptions:
//   - Partition key: request_id (String)
//   - Sort key: request_type (String, "Leave" or "Gate Pass")
type DynamoDBLogStore struct {
	client    dynamoDBAPI
	tableName string
}

// NewDynamoDBLogStore creates a DynamoDBLogStore using the provided AWS configuration.
func NewDynamoDBLogStore(cfg aws.Config, tableName string) *DynamoDBLogStore {
	return newDynamoDBLogStoreWithClient(dynamodb.NewFromConfig(cfg), tableName)
}

func newDynamoDBLogStoreWithClient(client dynamoDBAPI, tableName string) *DynamoDBLogStore {
	return &DynamoDBLogStore{client: client, tableName: tableName}
}

type logItem struct {
	RequestID   string `dynamodbav:"request_id"`
	RequestType string `dynamodbav:"request_type"`
	Status      string `dynamodbav:"status"`
	UpdatedAt   string `dynamodbav:"updated_at,omitempty"`

	HODAction       string `dynamodbav:"hod_action,omitempty"`
	HODActionAt     string `dynamodbav:"hod_approval_time,omitempty"`
	HODRemarks      string `dynamodbav:"hod_remarks,omitempty"`
	HODApproverID   string `dynamodbav:"hod_id,omitempty"`
	HODApproverName string `dynamodbav:"hod_name,omitempty"`

	HRAction       string `dynamodbav:"hr_action,omitempty"`
	HRActionAt     string `dynamodbav:"hr_approval_time,omitempty"`
	HRRemarks      string `dynamodbav:"hr_remarks,omitempty"`
	HRApproverID   string `dynamodbav:"hr_id,omitempty"`
	HRApproverName string `dynamodbav:"hr_name,omitempty"`
}

func logKey(requestID string, reqType RequestType) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"request_id":   &types.AttributeValueMemberS{Value: requestID},
		"request_type": &types.AttributeValueMemberS{Value: string(reqType)},
	}
}

// CreateLog inserts the initial row. Returns ErrRequestExists on duplicates.
func (s *DynamoDBLogStore) CreateLog(ctx context.Context, entry *LogEntry) error {
	item := &logItem{
		RequestID:   entry.RequestID,
		RequestType: string(entry.RequestType),
		Status:      string(entry.Status),
	}
	if !entry.UpdatedAt.IsZero() {
		item.UpdatedAt = iso8601.Format(entry.UpdatedAt)
	}
	if d := entry.HOD; d != nil {
		item.HODAction, item.HODActionAt = d.Action, iso8601.Format(d.ActedAt)
		item.HODRemarks, item.HODApproverID, item.HODApproverName = d.Remarks, d.ApproverID, d.ApproverName
	}
	if d := entry.HR; d != nil {
		item.HRAction, item.HRActionAt = d.Action, iso8601.Format(d.ActedAt)
		item.HRRemarks, item.HRApproverID, item.HRApproverName = d.Remarks, d.ApproverID, d.ApproverName
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("marshal log entry: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(request_id)"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return fmt.Errorf("%s/%s: %w", entry.RequestType, entry.RequestID, ErrRequestExists)
		}
		return hrerrors.WrapDynamoDBError(err, s.tableName, "PutItem")
	}
	return nil
}

// GetLog returns the log row for (requestID, reqType).
func (s *DynamoDBLogStore) GetLog(ctx context.Context, requestID string, reqType RequestType) (*LogEntry, error) {
	output, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key:       logKey(requestID, reqType),
	})
	if err != nil {
		return nil, hrerrors.WrapDynamoDBError(err, s.tableName, "GetItem")
	}
	if output.Item == nil {
		return nil, fmt.Errorf("%s/%s: %w", reqType, requestID, ErrLogEntryNotFound)
	}

	var item logItem
	if err := attributevalue.UnmarshalMap(output.Item, &item); err != nil {
		return nil, fmt.Errorf("unmarshal log entry: %w", err)
	}

	status, err := ParseStatus(item.Status)
	if err != nil {
		return nil, err
	}
	entry := &LogEntry{
		RequestID:   item.RequestID,
		RequestType: RequestType(item.RequestType),
		Status:      status,
	}
	if item.UpdatedAt != "" {
		if entry.UpdatedAt, err = parseDynamoDBTime(item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("parse updated_at: %w", err)
		}
	}
	if entry.HOD, err = itemLogDecision(item.HODAction, item.HODActionAt, item.HODRemarks, item.HODApproverID, item.HODApproverName); err != nil {
		return nil, fmt.Errorf("parse hod_approval_time: %w", err)
	}
	if entry.HR, err = itemLogDecision(item.HRAction, item.HRActionAt, item.HRRemarks, item.HRApproverID, item.HRApproverName); err != nil {
		return nil, fmt.Errorf("parse hr_approval_time: %w", err)
	}
	return entry, nil
}

func itemLogDecision(action, actedAt, remarks, id, name string) (*LogDecision, error) {
	if action == "" {
		return nil, nil
	}
	d := &LogDecision{Action: action, Remarks: remarks, ApproverID: id, ApproverName: name}
	if actedAt != "" {
		t, err := parseDynamoDBTime(actedAt)
		if err != nil {
			return nil, err
		}
		d.ActedAt = t
	}
	return d, nil
}

// AppendLog updates the existing row. It never inserts: a missing row
// returns ErrLogEntryNotFound.
func (s *DynamoDBLogStore) AppendLog(ctx context.Context, requestID string, reqType RequestType, m LogMutation) error {
	updatedAt := m.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	sets := []string{"#status = :status", "updated_at = :updated_at"}
	values := map[string]types.AttributeValue{
		":status":     &types.AttributeValueMemberS{Value: string(m.Status)},
		":updated_at": &types.AttributeValueMemberS{Value: iso8601.Format(updatedAt)},
	}
	sets = appendLogDecisionSets(sets, values, "hod", m.HOD)
	sets = appendLogDecisionSets(sets, values, "hr", m.HR)

	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.tableName),
		Key:                       logKey(requestID, reqType),
		UpdateExpression:          aws.String("SET " + strings.Join(sets, ", ")),
		ConditionExpression:       aws.String("attribute_exists(request_id)"),
		ExpressionAttributeNames:  map[string]string{"#status": "status"},
		ExpressionAttributeValues: values,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return fmt.Errorf("%s/%s: %w", reqType, requestID, ErrLogEntryNotFound)
		}
		return hrerrors.WrapDynamoDBError(err, s.tableName, "UpdateItem")
	}
	return nil
}

func appendLogDecisionSets(sets []string, values map[string]types.AttributeValue, prefix string, d *LogDecision) []string {
	if d == nil {
		return sets
	}
	fields := []struct {
		attr  string
		value string
	}{
		{prefix + "_action", d.Action},
		{prefix + "_approval_time", iso8601.Format(d.ActedAt)},
		{prefix + "_remarks", d.Remarks},
		{prefix + "_id", d.ApproverID},
		{prefix + "_name", d.ApproverName},
	}
	for _, f := range fields {
		placeholder := ":" + f.attr
		sets = append(sets, f.attr+" = "+placeholder)
		values[placeholder] = &types.AttributeValueMemberS{Value: f.value}
	}
	return sets
}
