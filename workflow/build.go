package workflow

import (
	"fmt"
	"io"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/byteness/hrflow/config"
	"github.com/byteness/hrflow/directory"
	"github.com/byteness/hrflow/logging"
	"github.com/byteness/hrflow/ratelimit"
	"github.com/byteness/hrflow/request"
)

// BuildOptions adjusts how BuildService wires a Service.
type BuildOptions struct {
	// Events receives approval events as JSON lines. If nil, events only go
	// to CloudWatch when a log group is configured.
	Events io.Writer

	// Clock overrides time.Now.
	Clock func() time.Time
}

// BuildService wires a Service against DynamoDB from cfg.
// The users table is replaced by a roster file when one is configured.
func BuildService(awsCfg aws.Config, cfg *config.Config, opts BuildOptions) (*Service, error) {
	policies, err := cfg.ApprovalPolicies()
	if err != nil {
		return nil, err
	}

	var dir directory.Directory
	if cfg.Directory.RosterFile != "" {
		fileDir, err := directory.LoadFileDirectory(cfg.Directory.RosterFile)
		if err != nil {
			return nil, fmt.Errorf("load roster: %w", err)
		}
		dir = fileDir
		log.Printf("INFO: Using roster %s for approver lookup", cfg.Directory.RosterFile)
	} else {
		dir = directory.NewDynamoDBDirectory(awsCfg, cfg.Tables.Users)
	}

	var logs request.LogStore
	if cfg.Tables.Logs != "" {
		logs = request.NewDynamoDBLogStore(awsCfg, cfg.Tables.Logs)
	}

	var joining request.JoiningStore
	if cfg.Tables.Joining != "" {
		joining = request.NewDynamoDBJoiningStore(awsCfg, cfg.Tables.Joining)
	}

	var limiter ratelimit.RateLimiter
	if rlCfg, ok := cfg.RateLimiterConfig(); ok {
		m, err := ratelimit.NewMemoryRateLimiter(rlCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create rate limiter: %w", err)
		}
		limiter = m
		log.Printf("INFO: Rate limiting enabled: %d actions per minute per approver", cfg.RateLimit.RequestsPerMinute)
	} else {
		log.Printf("INFO: Rate limiting disabled")
	}

	return NewService(Config{
		Store:       request.NewDynamoDBStore(awsCfg, cfg.RequestTables()),
		LogStore:    logs,
		Joining:     joining,
		Resolver:    directory.NewResolver(dir),
		Policies:    policies,
		Logger:      buildLogger(awsCfg, cfg, opts.Events),
		RateLimiter: limiter,
		Clock:       opts.Clock,
	})
}

func buildLogger(awsCfg aws.Config, cfg *config.Config, events io.Writer) logging.Logger {
	var loggers []logging.Logger
	if events != nil {
		loggers = append(loggers, logging.NewJSONLogger(events))
	}
	if group := cfg.Logging.CloudWatchGroup; group != "" {
		loggers = append(loggers, logging.NewCloudWatchLogger(awsCfg, &logging.CloudWatchConfig{
			LogGroupName:  group,
			LogStreamName: cfg.Logging.CloudWatchStream,
		}))
		log.Printf("INFO: Forwarding approval events to CloudWatch group %s", group)
	}
	if len(loggers) == 0 {
		return logging.NewNopLogger()
	}
	return logging.NewMultiLogger(loggers...)
}

// Close releases background resources held by the rate limiter.
func (s *Service) Close() error {
	if c, ok := s.limiter.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
