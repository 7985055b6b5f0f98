package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/byteness/hrflow/approval"
	hrerrors "github.com/byteness/hrflow/errors"
	"github.com/byteness/hrflow/request"
	"github.com/google/go-cmp/cmp"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte("region: ap-south-1\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	want := Default()
	want.Region = "ap-south-1"
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_Overrides(t *testing.T) {
	cfg, err := Parse([]byte(`
tables:
  leave: leave-prod
  gate_pass: gatepass-prod
  logs: logs-prod
  users: users-prod
policies:
  gate_pass: roles
rate_limit:
  requests_per_minute: 20
`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if cfg.Tables.Leave != "leave-prod" || cfg.Tables.Joining != DefaultJoiningTable {
		t.Errorf("tables = %+v", cfg.Tables)
	}

	policies, err := cfg.ApprovalPolicies()
	if err != nil {
		t.Fatalf("ApprovalPolicies failed: %v", err)
	}
	if got := policies.For(request.TypeGatePass).Name(); got != approval.PolicyRoles {
		t.Errorf("gate pass policy = %q, want roles", got)
	}
	if got := policies.For(request.TypeLeave).Name(); got != approval.PolicyRoles {
		t.Errorf("leave policy = %q, want roles", got)
	}

	rl, ok := cfg.RateLimiterConfig()
	if !ok || rl.ActionsPerMinute != 20 {
		t.Errorf("RateLimiterConfig = %+v, %v", rl, ok)
	}

	tables := cfg.RequestTables()
	if tables[request.TypeGatePass] != "gatepass-prod" {
		t.Errorf("RequestTables = %v", tables)
	}
}

func TestParse_UnknownKey(t *testing.T) {
	if _, err := Parse([]byte("tabels:\n  leave: x\n")); err == nil {
		t.Error("expected error for unknown key")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name         string
		content      string
		wantValid    bool
		wantErrors   int
		wantWarnings int
		wantLocation string
	}{
		{
			name:         "defaults warn about link holder",
			content:      "region: ap-south-1\n",
			wantValid:    true,
			wantWarnings: 1,
			wantLocation: "policies.gate_pass",
		},
		{
			name:      "strict",
			content:   "policies:\n  gate_pass: roles\n",
			wantValid: true,
		},
		{
			name:       "empty",
			content:    "  \n",
			wantErrors: 1,
		},
		{
			name:       "bad yaml",
			content:    "tables: [\n",
			wantErrors: 1,
		},
		{
			name:         "unknown key",
			content:      "region: x\nlogging:\n  level: debug\n",
			wantErrors:   1,
			wantLocation: "line 3",
		},
		{
			name:         "unknown policy",
			content:      "policies:\n  leave: anyone\n  gate_pass: roles\n",
			wantErrors:   1,
			wantLocation: "policies.leave",
		},
		{
			name:         "unknown request type",
			content:      "policies:\n  travel: roles\n  gate_pass: roles\n",
			wantErrors:   1,
			wantLocation: "policies.travel",
		},
		{
			name:         "joining has no approval",
			content:      "policies:\n  joining: roles\n  gate_pass: roles\n",
			wantErrors:   1,
			wantLocation: "policies.joining",
		},
		{
			name:         "invalid table name",
			content:      "tables:\n  leave: 'a b'\npolicies:\n  gate_pass: roles\n",
			wantErrors:   1,
			wantLocation: "tables.leave",
		},
		{
			name:         "empty required table",
			content:      "tables:\n  logs: ''\npolicies:\n  gate_pass: roles\n",
			wantErrors:   1,
			wantLocation: "tables.logs",
		},
		{
			name:         "duplicate table",
			content:      "tables:\n  gate_pass: leave_management\npolicies:\n  gate_pass: roles\n",
			wantErrors:   1,
			wantLocation: "tables.gate_pass",
		},
		{
			name:         "negative rate limit",
			content:      "rate_limit:\n  requests_per_minute: -1\npolicies:\n  gate_pass: roles\n",
			wantErrors:   1,
			wantLocation: "rate_limit.requests_per_minute",
		},
		{
			name:         "burst without rate",
			content:      "rate_limit:\n  burst: 5\npolicies:\n  gate_pass: roles\n",
			wantValid:    true,
			wantWarnings: 1,
			wantLocation: "rate_limit.burst",
		},
		{
			name:         "stream without group",
			content:      "logging:\n  cloudwatch_stream: s\npolicies:\n  gate_pass: roles\n",
			wantValid:    true,
			wantWarnings: 1,
			wantLocation: "logging.cloudwatch_stream",
		},
		{
			name:         "missing roster",
			content:      "directory:\n  roster_file: /nonexistent/roster.yaml\npolicies:\n  gate_pass: roles\n",
			wantErrors:   1,
			wantLocation: "directory.roster_file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Validate([]byte(tt.content), "test.yaml")
			if result.Valid != tt.wantValid {
				t.Errorf("Valid = %v, want %v (issues: %+v)", result.Valid, tt.wantValid, result.Issues)
			}
			if got := result.Errors(); got != tt.wantErrors {
				t.Errorf("Errors() = %d, want %d (issues: %+v)", got, tt.wantErrors, result.Issues)
			}
			if got := result.Warnings(); got != tt.wantWarnings {
				t.Errorf("Warnings() = %d, want %d (issues: %+v)", got, tt.wantWarnings, result.Issues)
			}
			if tt.wantLocation != "" {
				if len(result.Issues) == 0 || result.Issues[0].Location != tt.wantLocation {
					t.Errorf("first issue location = %+v, want %q", result.Issues, tt.wantLocation)
				}
			}
			for _, issue := range result.Issues {
				if issue.Suggestion == "" {
					t.Errorf("issue %q has no suggestion", issue.Message)
				}
			}
		})
	}
}

func TestValidate_RosterInsteadOfUsersTable(t *testing.T) {
	dir := t.TempDir()
	roster := filepath.Join(dir, "roster.yaml")
	if err := os.WriteFile(roster, []byte("users: []\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	content := "tables:\n  users: ''\ndirectory:\n  roster_file: " + roster + "\npolicies:\n  gate_pass: roles\n"
	result := Validate([]byte(content), "test.yaml")
	if !result.Valid || len(result.Issues) != 0 {
		t.Errorf("expected clean result, got %+v", result)
	}
}

func TestValidateFile(t *testing.T) {
	if _, err := ValidateFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "hrflow.yaml")
	if err := os.WriteFile(path, []byte("policies:\n  gate_pass: roles\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	result, err := ValidateFile(path)
	if err != nil || !result.Valid || result.Source != path {
		t.Errorf("ValidateFile = %+v, %v", result, err)
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvAWSRegion:         "eu-west-1",
		EnvLeaveTable:        "leave-env",
		EnvGatePassPolicy:    "roles",
		EnvCloudWatchGroup:   "/hrflow/approvals",
		EnvLambdaFunction:    "hrflow-approvals",
		EnvRateLimitRequests: "15",
	}
	cfg := Default()
	if err := ApplyEnv(cfg, func(k string) string { return env[k] }); err != nil {
		t.Fatalf("ApplyEnv failed: %v", err)
	}

	if cfg.Region != "eu-west-1" {
		t.Errorf("Region = %q", cfg.Region)
	}
	if cfg.Tables.Leave != "leave-env" || cfg.Tables.GatePass != DefaultGatePassTable {
		t.Errorf("Tables = %+v", cfg.Tables)
	}
	if cfg.Policies["gate_pass"] != "roles" {
		t.Errorf("Policies = %v", cfg.Policies)
	}
	if cfg.Logging.CloudWatchStream != "hrflow-approvals" {
		t.Errorf("stream should default to the function name, got %q", cfg.Logging.CloudWatchStream)
	}
	if cfg.RateLimit.RequestsPerMinute != 15 {
		t.Errorf("RateLimit = %+v", cfg.RateLimit)
	}

	// HRFLOW_REGION wins over AWS_REGION.
	env[EnvRegion] = "ap-south-1"
	_ = ApplyEnv(cfg, func(k string) string { return env[k] })
	if cfg.Region != "ap-south-1" {
		t.Errorf("Region = %q, want HRFLOW_REGION", cfg.Region)
	}
}

func TestApplyEnv_Invalid(t *testing.T) {
	tests := map[string]string{
		EnvLeavePolicy:       "everyone",
		EnvRateLimitRequests: "ten",
		EnvRateLimitBurst:    "1.5",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			err := ApplyEnv(Default(), func(k string) string {
				if k == key {
					return value
				}
				return ""
			})
			if err == nil || !strings.Contains(err.Error(), key) {
				t.Errorf("ApplyEnv error = %v, want mention of %s", err, key)
			}
		})
	}
}

type mockSSM struct {
	values map[string]string
	err    error
}

func (m *mockSSM) GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	if m.err != nil {
		return nil, m.err
	}
	if !aws.ToBool(params.WithDecryption) {
		return nil, errors.New("expected WithDecryption")
	}
	v, ok := m.values[aws.ToString(params.Name)]
	if !ok {
		return nil, &types.ParameterNotFound{Message: aws.String("not found")}
	}
	return &ssm.GetParameterOutput{Parameter: &types.Parameter{Value: aws.String(v)}}, nil
}

func TestLoader(t *testing.T) {
	ctx := context.Background()
	loader := NewLoaderWithClient(&mockSSM{values: map[string]string{"/hrflow/config": "region: ap-south-1\n"}})

	cfg, err := loader.Load(ctx, "/hrflow/config")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Region != "ap-south-1" {
		t.Errorf("Region = %q", cfg.Region)
	}

	_, err = loader.Load(ctx, "/hrflow/missing")
	if !errors.Is(err, ErrConfigNotFound) {
		t.Errorf("error = %v, want ErrConfigNotFound", err)
	}
}

func TestLoader_AccessDenied(t *testing.T) {
	loader := NewLoaderWithClient(&mockSSM{err: errors.New("AccessDeniedException: not authorized to perform ssm:GetParameter")})

	_, err := loader.Load(context.Background(), "/hrflow/config")
	if code := hrerrors.GetCode(err); code != hrerrors.ErrCodeSSMAccessDenied {
		t.Errorf("code = %q, want %s", code, hrerrors.ErrCodeSSMAccessDenied)
	}
}

func TestResolve(t *testing.T) {
	ctx := context.Background()
	noEnv := func(string) string { return "" }

	path := filepath.Join(t.TempDir(), "hrflow.yaml")
	if err := os.WriteFile(path, []byte("region: file-region\npolicies:\n  gate_pass: roles\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	ssmClient := &mockSSM{values: map[string]string{"/hrflow/config": "region: ssm-region\n"}}

	cfg, warnings, err := Resolve(ctx, Source{File: path, Parameter: "/hrflow/config", SSM: ssmClient, Getenv: noEnv})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if cfg.Region != "file-region" || len(warnings) != 0 {
		t.Errorf("file should win: region %q, warnings %+v", cfg.Region, warnings)
	}

	cfg, warnings, err = Resolve(ctx, Source{Parameter: "/hrflow/config", SSM: ssmClient, Getenv: noEnv})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if cfg.Region != "ssm-region" || len(warnings) != 1 {
		t.Errorf("region %q, warnings %+v", cfg.Region, warnings)
	}

	if _, _, err := Resolve(ctx, Source{Parameter: "/hrflow/config", Getenv: noEnv}); err == nil {
		t.Error("expected error without SSM client")
	}

	_, _, err = Resolve(ctx, Source{Getenv: func(k string) string {
		if k == EnvLogsTable {
			return "leave_management"
		}
		return ""
	}})
	if err == nil || !strings.Contains(err.Error(), "tables.logs") {
		t.Errorf("expected validation error for duplicate table, got %v", err)
	}
}

func TestTemplates(t *testing.T) {
	for _, id := range AllTemplateIDs() {
		t.Run(id.String(), func(t *testing.T) {
			content, err := GenerateTemplate(id)
			if err != nil {
				t.Fatalf("GenerateTemplate failed: %v", err)
			}
			if !strings.HasPrefix(string(content), "# hrflow configuration") {
				t.Errorf("missing header:\n%s", content)
			}

			cfg, err := Parse(content)
			if err != nil {
				t.Fatalf("template does not parse: %v\n%s", err, content)
			}
			want, _ := TemplateConfig(id)
			if diff := cmp.Diff(want, cfg); diff != "" {
				t.Errorf("template round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}

	if _, err := GenerateTemplate("enterprise"); err == nil {
		t.Error("expected error for unknown template")
	}
	if TemplateID("enterprise").IsValid() {
		t.Error("unknown template should not be valid")
	}
}
