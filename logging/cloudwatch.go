package logging

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"
)

// CloudWatchConfig names where approval events are delivered.
type CloudWatchConfig struct {
	LogGroupName string

	// LogStreamName defaults to "hrflow/<UTC date>" when empty.
	LogStreamName string
}

// CloudWatchAPI defines the CloudWatch Logs operations used.
type CloudWatchAPI interface {
	PutLogEvents(ctx context.Context, params *cloudwatchlogs.PutLogEventsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.PutLogEventsOutput, error)
	CreateLogStream(ctx context.Context, params *cloudwatchlogs.CreateLogStreamInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.CreateLogStreamOutput, error)
}

// CloudWatchLogger implements Logger by forwarding each event to CloudWatch
// Logs. The log group must exist; the stream is created on first use.
// Delivery failures are logged and dropped.
type CloudWatchLogger struct {
	client CloudWatchAPI
	group  string
	stream string
	now    func() time.Time

	mu          sync.Mutex
	streamReady bool
}

// NewCloudWatchLogger creates a CloudWatch logger from AWS config.
func NewCloudWatchLogger(awsCfg aws.Config, config *CloudWatchConfig) *CloudWatchLogger {
	return NewCloudWatchLoggerWithClient(cloudwatchlogs.NewFromConfig(awsCfg), config)
}

// NewCloudWatchLoggerWithClient creates a CloudWatch logger with a custom client.
func NewCloudWatchLoggerWithClient(client CloudWatchAPI, config *CloudWatchConfig) *CloudWatchLogger {
	l := &CloudWatchLogger{
		client: client,
		group:  config.LogGroupName,
		stream: config.LogStreamName,
		now:    time.Now,
	}
	if l.stream == "" {
		l.stream = "hrflow/" + l.now().UTC().Format("2006-01-02")
	}
	return l
}

// LogApproval forwards an approval event.
func (l *CloudWatchLogger) LogApproval(entry ApprovalLogEntry) {
	l.send(entry)
}

// LogFailure forwards a failed action event.
func (l *CloudWatchLogger) LogFailure(entry FailureLogEntry) {
	l.send(entry)
}

func (l *CloudWatchLogger) send(entry any) {
	message, err := json.Marshal(entry)
	if err != nil {
		log.Printf("WARNING: failed to encode approval event for CloudWatch: %v", err)
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// The caller's context may already be done once the action has returned.
	ctx := context.Background()
	err = l.put(ctx, string(message))

	var rnf *types.ResourceNotFoundException
	if errors.As(err, &rnf) && !l.streamReady {
		if err = l.createStream(ctx); err == nil {
			err = l.put(ctx, string(message))
		}
	}
	if err != nil {
		log.Printf("WARNING: failed to forward approval event to CloudWatch %s/%s: %v", l.group, l.stream, err)
		return
	}
	l.streamReady = true
}

func (l *CloudWatchLogger) put(ctx context.Context, message string) error {
	_, err := l.client.PutLogEvents(ctx, &cloudwatchlogs.PutLogEventsInput{
		LogGroupName:  aws.String(l.group),
		LogStreamName: aws.String(l.stream),
		LogEvents: []types.InputLogEvent{{
			Message:   aws.String(message),
			Timestamp: aws.Int64(l.now().UnixMilli()),
		}},
	})
	return err
}

// createStream creates the log stream. A stream created concurrently by
// another instance counts as success.
func (l *CloudWatchLogger) createStream(ctx context.Context) error {
	_, err := l.client.CreateLogStream(ctx, &cloudwatchlogs.CreateLogStreamInput{
		LogGroupName:  aws.String(l.group),
		LogStreamName: aws.String(l.stream),
	})
	var exists *types.ResourceAlreadyExistsException
	if err != nil && !errors.As(err, &exists) {
		return err
	}
	return nil
}
