package request

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	hrerrors "github.com/byteness/hrflow/errors"
	"github.com/byteness/hrflow/iso8601"
)

// DynamoDBJoiningStore implements JoiningStore. Partition key: id.
type DynamoDBJoiningStore struct {
	client    dynamoDBAPI
	tableName string
}

// NewDynamoDBJoiningStore creates a DynamoDBJoiningStore using the provided AWS configuration.
func NewDynamoDBJoiningStore(cfg aws.Config, tableName string) *DynamoDBJoiningStore {
	return newDynamoDBJoiningStoreWithClient(dynamodb.NewFromConfig(cfg), tableName)
}

func newDynamoDBJoiningStoreWithClient(client dynamoDBAPI, tableName string) *DynamoDBJoiningStore {
	return &DynamoDBJoiningStore{client: client, tableName: tableName}
}

type joiningItem struct {
	ID                   string `dynamodbav:"id"`
	FullName             string `dynamodbav:"full_name"`
	FatherName           string `dynamodbav:"father_name,omitempty"`
	DateOfBirth          string `dynamodbav:"date_of_birth,omitempty"`
	Gender               string `dynamodbav:"gender,omitempty"`
	Department           string `dynamodbav:"department"`
	Designation          string `dynamodbav:"designation,omitempty"`
	MobileNo             string `dynamodbav:"mobile_no,omitempty"`
	PersonalEmail        string `dynamodbav:"personal_email,omitempty"`
	DateOfJoining        string `dynamodbav:"date_of_joining,omitempty"`
	HighestQualification string `dynamodbav:"highest_qualification,omitempty"`
	CurrentAddress       string `dynamodbav:"current_address,omitempty"`
	PassportPhotoRef     string `dynamodbav:"passport_photo_ref,omitempty"`
	IdentityDocumentRef  string `dynamodbav:"identity_document_ref,omitempty"`
	BankPassbookRef      string `dynamodbav:"bank_passbook_ref,omitempty"`
	CreatedAt            string `dynamodbav:"created_at"`
}

// PutJoining inserts a joining record. Returns ErrRequestExists on duplicate ID.
func (s *DynamoDBJoiningStore) PutJoining(ctx context.Context, rec *JoiningRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	item := joiningItem{
		ID:                   rec.ID,
		FullName:             rec.FullName,
		FatherName:           rec.FatherName,
		DateOfBirth:          rec.DateOfBirth,
		Gender:               rec.Gender,
		Department:           rec.Department,
		Designation:          rec.Designation,
		MobileNo:             rec.MobileNo,
		PersonalEmail:        rec.PersonalEmail,
		DateOfJoining:        rec.DateOfJoining,
		HighestQualification: rec.HighestQualification,
		CurrentAddress:       rec.CurrentAddress,
		PassportPhotoRef:     rec.PassportPhotoRef,
		IdentityDocumentRef:  rec.IdentityDocumentRef,
		BankPassbookRef:      rec.BankPassbookRef,
		CreatedAt:            iso8601.Format(rec.CreatedAt),
	}
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("marshal joining record: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(id)"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return fmt.Errorf("%s: %w", rec.ID, ErrRequestExists)
		}
		return hrerrors.WrapDynamoDBError(err, s.tableName, "PutItem")
	}
	return nil
}

// GetJoining returns a joining record or ErrRequestNotFound.
func (s *DynamoDBJoiningStore) GetJoining(ctx context.Context, id string) (*JoiningRecord, error) {
	output, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return nil, hrerrors.WrapDynamoDBError(err, s.tableName, "GetItem")
	}
	if output.Item == nil {
		return nil, fmt.Errorf("%s: %w", id, ErrRequestNotFound)
	}

	var item joiningItem
	if err := attributevalue.UnmarshalMap(output.Item, &item); err != nil {
		return nil, fmt.Errorf("unmarshal joining record: %w", err)
	}
	createdAt, err := parseDynamoDBTime(item.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}

	return &JoiningRecord{
		ID:                   item.ID,
		FullName:             item.FullName,
		FatherName:           item.FatherName,
		DateOfBirth:          item.DateOfBirth,
		Gender:               item.Gender,
		Department:           item.Department,
		Designation:          item.Designation,
		MobileNo:             item.MobileNo,
		PersonalEmail:        item.PersonalEmail,
		DateOfJoining:        item.DateOfJoining,
		HighestQualification: item.HighestQualification,
		CurrentAddress:       item.CurrentAddress,
		PassportPhotoRef:     item.PassportPhotoRef,
		IdentityDocumentRef:  item.IdentityDocumentRef,
		BankPassbookRef:      item.BankPassbookRef,
		CreatedAt:            createdAt,
	}, nil
}
