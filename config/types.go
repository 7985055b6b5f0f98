// Package config loads and validates hrflow configuration.
// Configuration is YAML, read from a local file or an SSM parameter, and may
// be overridden by HRFLOW_* environment variables.
package config

import (
	"fmt"

	"github.com/byteness/hrflow/approval"
	"github.com/byteness/hrflow/ratelimit"
	"github.com/byteness/hrflow/request"
)

// Default table names, matching the tables the submission flow writes to.
const (
	DefaultLeaveTable    = "leave_management"
	DefaultGatePassTable = "gate_pass"
	DefaultJoiningTable  = "joining_form"
	DefaultLogsTable     = "logs"
	DefaultUsersTable    = "users"
)

// Config is the top-level hrflow configuration.
type Config struct {
	// Region is the AWS region. Empty means the SDK default chain.
	Region string `yaml:"region,omitempty" json:"region,omitempty"`

	Tables Tables `yaml:"tables" json:"tables"`

	// Policies maps a request type ("leave", "gate_pass") to an
	// authorization policy name ("roles", "link_holder").
	Policies map[string]string `yaml:"policies,omitempty" json:"policies,omitempty"`

	Directory DirectoryConfig `yaml:"directory,omitempty" json:"directory,omitempty"`
	Logging   LoggingConfig   `yaml:"logging,omitempty" json:"logging,omitempty"`
	RateLimit RateLimitConfig `yaml:"rate_limit,omitempty" json:"rate_limit,omitempty"`
}

// Tables names the DynamoDB tables.
type Tables struct {
	Leave    string `yaml:"leave" json:"leave"`
	GatePass string `yaml:"gate_pass" json:"gate_pass"`
	Joining  string `yaml:"joining,omitempty" json:"joining,omitempty"`
	Logs     string `yaml:"logs" json:"logs"`
	Users    string `yaml:"users" json:"users"`
}

// DirectoryConfig selects the principal directory.
type DirectoryConfig struct {
	// RosterFile, when set, loads principals from a YAML roster instead of
	// the users table.
	RosterFile string `yaml:"roster_file,omitempty" json:"roster_file,omitempty"`
}

// LoggingConfig controls structured event output.
type LoggingConfig struct {
	// CloudWatchGroup enables CloudWatch forwarding when set.
	CloudWatchGroup  string `yaml:"cloudwatch_group,omitempty" json:"cloudwatch_group,omitempty"`
	CloudWatchStream string `yaml:"cloudwatch_stream,omitempty" json:"cloudwatch_stream,omitempty"`
}

// RateLimitConfig throttles actions per approver. Zero disables it.
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute,omitempty" json:"requests_per_minute,omitempty"`
	Burst             int `yaml:"burst,omitempty" json:"burst,omitempty"`
}

// Default returns a Config with the default table names and policies.
func Default() *Config {
	return &Config{
		Tables: Tables{
			Leave:    DefaultLeaveTable,
			GatePass: DefaultGatePassTable,
			Joining:  DefaultJoiningTable,
			Logs:     DefaultLogsTable,
			Users:    DefaultUsersTable,
		},
		Policies: map[string]string{
			"leave":     approval.PolicyRoles,
			"gate_pass": approval.PolicyLinkHolder,
		},
	}
}

// RequestTables returns the request table per approvable request type.
func (c *Config) RequestTables() map[request.RequestType]string {
	return map[request.RequestType]string{
		request.TypeLeave:    c.Tables.Leave,
		request.TypeGatePass: c.Tables.GatePass,
	}
}

// ApprovalPolicies builds the authorizer registry from Policies.
func (c *Config) ApprovalPolicies() (approval.Policies, error) {
	names := make(map[request.RequestType]string, len(c.Policies))
	for key, name := range c.Policies {
		t, err := request.ParseRequestType(key)
		if err != nil {
			return nil, fmt.Errorf("policies: %w", err)
		}
		names[t] = name
	}
	return approval.PoliciesFromNames(names)
}

// RateLimiterConfig returns the limiter configuration and whether limiting
// is enabled.
func (c *Config) RateLimiterConfig() (ratelimit.Config, bool) {
	if c.RateLimit.RequestsPerMinute <= 0 {
		return ratelimit.Config{}, false
	}
	return ratelimit.Config{ActionsPerMinute: c.RateLimit.RequestsPerMinute, Burst: c.RateLimit.Burst}, true
}

// IssueSeverity indicates the severity of a validation issue.
type IssueSeverity string

const (
	// SeverityError indicates a problem that blocks loading/usage.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a suspicious pattern but works.
	SeverityWarning IssueSeverity = "warning"
)

// ValidationIssue represents a single validation problem.
type ValidationIssue struct {
	Severity   IssueSeverity `json:"severity"`
	Location   string        `json:"location"` // e.g., "tables.leave", "policies.gate_pass"
	Message    string        `json:"message"`
	Suggestion string        `json:"suggestion,omitempty"`
}

// ValidationResult contains all validation findings for a single config.
type ValidationResult struct {
	Source string            `json:"source"` // File path or SSM path
	Valid  bool              `json:"valid"`  // True if no errors (warnings OK)
	Issues []ValidationIssue `json:"issues"`
}

// Errors returns the number of error-severity issues.
func (r *ValidationResult) Errors() int {
	n := 0
	for _, issue := range r.Issues {
		if issue.Severity == SeverityError {
			n++
		}
	}
	return n
}

// Warnings returns the number of warning-severity issues.
func (r *ValidationResult) Warnings() int {
	return len(r.Issues) - r.Errors()
}

func (r *ValidationResult) addError(location, message, suggestion string) {
	r.Valid = false
	r.Issues = append(r.Issues, ValidationIssue{Severity: SeverityError, Location: location, Message: message, Suggestion: suggestion})
}

func (r *ValidationResult) addWarning(location, message, suggestion string) {
	r.Issues = append(r.Issues, ValidationIssue{Severity: SeverityWarning, Location: location, Message: message, Suggestion: suggestion})
}
