package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/byteness/hrflow/approval"
	"github.com/byteness/hrflow/request"
	"gopkg.in/yaml.v3"
)

// tableNamePattern matches valid DynamoDB table names.
var tableNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]{3,255}$`)

// Parse decodes YAML content on top of Default. Unknown keys are rejected.
func Parse(content []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(content))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("invalid config YAML: %w", err)
	}
	return cfg, nil
}

// Validate parses and checks config content, returning all issues found.
func Validate(content []byte, source string) ValidationResult {
	result := ValidationResult{Source: source, Valid: true, Issues: []ValidationIssue{}}

	if len(bytes.TrimSpace(content)) == 0 {
		result.addError("", "empty configuration", "provide valid YAML content")
		return result
	}

	cfg, err := Parse(content)
	if err != nil {
		result.addError(extractLine(err.Error()), err.Error(), suggestYAMLFix(err.Error()))
		return result
	}

	check(cfg, &result)
	return result
}

// ValidateFile validates a local YAML file.
func ValidateFile(path string) (ValidationResult, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		result := ValidationResult{Source: path, Issues: []ValidationIssue{}}
		result.addError("", fmt.Sprintf("failed to read file: %v", err), "verify the file path exists and is readable")
		return result, err
	}
	return Validate(content, path), nil
}

// Check validates an already decoded Config.
func Check(cfg *Config, source string) ValidationResult {
	result := ValidationResult{Source: source, Valid: true, Issues: []ValidationIssue{}}
	check(cfg, &result)
	return result
}

func check(cfg *Config, result *ValidationResult) {
	checkTables(cfg, result)
	checkPolicies(cfg, result)
	checkDirectory(cfg, result)
	checkLogging(cfg, result)
	checkRateLimit(cfg, result)
}

func checkTables(cfg *Config, result *ValidationResult) {
	tables := []struct {
		location string
		name     string
		required bool
	}{
		{"tables.leave", cfg.Tables.Leave, true},
		{"tables.gate_pass", cfg.Tables.GatePass, true},
		{"tables.logs", cfg.Tables.Logs, true},
		{"tables.users", cfg.Tables.Users, cfg.Directory.RosterFile == ""},
		{"tables.joining", cfg.Tables.Joining, false},
	}

	seen := make(map[string]string)
	for _, tbl := range tables {
		if tbl.name == "" {
			if tbl.required {
				result.addError(tbl.location, "table name is empty", "set a DynamoDB table name")
			}
			continue
		}
		if !tableNamePattern.MatchString(tbl.name) {
			result.addError(tbl.location, fmt.Sprintf("invalid table name %q", tbl.name),
				"use 3-255 characters from a-z, A-Z, 0-9, '_', '-', '.'")
			continue
		}
		if other, dup := seen[tbl.name]; dup {
			result.addError(tbl.location, fmt.Sprintf("table %q is also used by %s", tbl.name, other),
				"each table must hold one kind of record")
			continue
		}
		seen[tbl.name] = tbl.location
	}
}

func checkPolicies(cfg *Config, result *ValidationResult) {
	keys := make([]string, 0, len(cfg.Policies))
	for k := range cfg.Policies {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		location := "policies." + key
		t, err := request.ParseRequestType(key)
		if err != nil {
			result.addError(location, err.Error(), "use leave or gate_pass")
			continue
		}
		if !t.HasApproval() {
			result.addError(location, fmt.Sprintf("%s requests have no approval workflow", t), "remove this entry")
			continue
		}
		name := cfg.Policies[key]
		if _, err := approval.ParseAuthorizer(name); err != nil {
			result.addError(location, err.Error(),
				fmt.Sprintf("use %s or %s", approval.PolicyRoles, approval.PolicyLinkHolder))
			continue
		}
		if name == approval.PolicyLinkHolder {
			result.addWarning(location, fmt.Sprintf("anyone holding a %s approval link can approve at any stage", t),
				fmt.Sprintf("use %s to require a head of department and then HR", approval.PolicyRoles))
		}
	}
}

func checkDirectory(cfg *Config, result *ValidationResult) {
	if cfg.Directory.RosterFile == "" {
		return
	}
	if _, err := os.Stat(cfg.Directory.RosterFile); err != nil {
		result.addError("directory.roster_file", fmt.Sprintf("roster file not readable: %v", err),
			"verify the roster path, or remove it to use the users table")
	}
}

func checkLogging(cfg *Config, result *ValidationResult) {
	if cfg.Logging.CloudWatchGroup == "" && cfg.Logging.CloudWatchStream != "" {
		result.addWarning("logging.cloudwatch_stream", "stream is set but cloudwatch_group is empty",
			"set cloudwatch_group to enable CloudWatch forwarding")
	}
}

func checkRateLimit(cfg *Config, result *ValidationResult) {
	rl := cfg.RateLimit
	if rl.RequestsPerMinute < 0 {
		result.addError("rate_limit.requests_per_minute", "negative requests_per_minute", "use a positive number, or 0 to disable")
	}
	if rl.Burst < 0 {
		result.addError("rate_limit.burst", "negative burst", "use a positive number, or 0 to match requests_per_minute")
	}
	if rl.Burst > 0 && rl.RequestsPerMinute == 0 {
		result.addWarning("rate_limit.burst", "burst has no effect while requests_per_minute is 0",
			"set requests_per_minute to enable rate limiting")
	}
}

// extractLine pulls "line N" out of a YAML error message.
func extractLine(errMsg string) string {
	idx := strings.Index(errMsg, "line ")
	if idx < 0 {
		return ""
	}
	rest := errMsg[idx:]
	if end := strings.IndexAny(rest, ":,"); end > 0 {
		rest = rest[:end]
	}
	return rest
}

// suggestYAMLFix returns a suggestion for fixing a YAML decode error.
func suggestYAMLFix(errMsg string) string {
	switch {
	case strings.Contains(errMsg, "not found in type"):
		return "remove the unknown key; valid top-level keys are region, tables, policies, directory, logging, rate_limit"
	case strings.Contains(errMsg, "cannot unmarshal"):
		return "check the value type (e.g., numbers for rate_limit, strings for table names)"
	default:
		return "check YAML syntax (indentation, colons, quoting)"
	}
}
