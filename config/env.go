package config

import (
	"fmt"
	"strconv"

	"github.com/byteness/hrflow/approval"
)

// Environment variable names.
const (
	EnvConfigFile      = "HRFLOW_CONFIG_FILE"
	EnvConfigParameter = "HRFLOW_CONFIG_PARAMETER"
	EnvRegion          = "HRFLOW_REGION" // falls back to AWS_REGION
	EnvAWSRegion       = "AWS_REGION"

	EnvLeaveTable    = "HRFLOW_LEAVE_TABLE"
	EnvGatePassTable = "HRFLOW_GATE_PASS_TABLE"
	EnvJoiningTable  = "HRFLOW_JOINING_TABLE"
	EnvLogsTable     = "HRFLOW_LOGS_TABLE"
	EnvUsersTable    = "HRFLOW_USERS_TABLE"

	EnvLeavePolicy    = "HRFLOW_LEAVE_POLICY"     // "roles" or "link_holder"
	EnvGatePassPolicy = "HRFLOW_GATE_PASS_POLICY" // "roles" or "link_holder"

	EnvRosterFile = "HRFLOW_ROSTER_FILE"

	EnvCloudWatchGroup  = "HRFLOW_CLOUDWATCH_LOG_GROUP"
	EnvCloudWatchStream = "HRFLOW_CLOUDWATCH_STREAM" // default: AWS_LAMBDA_FUNCTION_NAME
	EnvLambdaFunction   = "AWS_LAMBDA_FUNCTION_NAME"

	EnvRateLimitRequests = "HRFLOW_RATE_LIMIT_REQUESTS" // per minute, 0 disables
	EnvRateLimitBurst    = "HRFLOW_RATE_LIMIT_BURST"
)

// ApplyEnv overrides cfg fields from environment variables. Unset or empty
// variables leave the field as is.
func ApplyEnv(cfg *Config, getenv func(string) string) error {
	setString := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v := getenv(k); v != "" {
				*dst = v
				return
			}
		}
	}

	setString(&cfg.Region, EnvRegion, EnvAWSRegion)
	setString(&cfg.Tables.Leave, EnvLeaveTable)
	setString(&cfg.Tables.GatePass, EnvGatePassTable)
	setString(&cfg.Tables.Joining, EnvJoiningTable)
	setString(&cfg.Tables.Logs, EnvLogsTable)
	setString(&cfg.Tables.Users, EnvUsersTable)
	setString(&cfg.Directory.RosterFile, EnvRosterFile)
	setString(&cfg.Logging.CloudWatchGroup, EnvCloudWatchGroup)
	setString(&cfg.Logging.CloudWatchStream, EnvCloudWatchStream)
	if cfg.Logging.CloudWatchGroup != "" && cfg.Logging.CloudWatchStream == "" {
		cfg.Logging.CloudWatchStream = getenv(EnvLambdaFunction)
	}

	for key, env := range map[string]string{"leave": EnvLeavePolicy, "gate_pass": EnvGatePassPolicy} {
		v := getenv(env)
		if v == "" {
			continue
		}
		if _, err := approval.ParseAuthorizer(v); err != nil {
			return fmt.Errorf("%s: %w", env, err)
		}
		if cfg.Policies == nil {
			cfg.Policies = make(map[string]string)
		}
		cfg.Policies[key] = v
	}

	if err := setInt(getenv, EnvRateLimitRequests, &cfg.RateLimit.RequestsPerMinute); err != nil {
		return err
	}
	return setInt(getenv, EnvRateLimitBurst, &cfg.RateLimit.Burst)
}

func setInt(getenv func(string) string, key string, dst *int) error {
	v := getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: invalid integer %q", key, v)
	}
	*dst = n
	return nil
}
