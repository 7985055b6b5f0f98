package config

import (
	"bytes"
	"fmt"

	"github.com/byteness/hrflow/approval"
	"gopkg.in/yaml.v3"
)

// TemplateID identifies a pre-built configuration template.
type TemplateID string

const (
	// TemplateDefault reproduces the built-in defaults.
	TemplateDefault TemplateID = "default"
	// TemplateStrict enforces roles for every request type and throttles approvers.
	TemplateStrict TemplateID = "strict"
	// TemplateRoster reads principals from a local roster file.
	TemplateRoster TemplateID = "roster"
)

// IsValid returns true if the TemplateID is a known value.
func (t TemplateID) IsValid() bool {
	switch t {
	case TemplateDefault, TemplateStrict, TemplateRoster:
		return true
	}
	return false
}

// String returns the string representation of the TemplateID.
func (t TemplateID) String() string {
	return string(t)
}

// AllTemplateIDs returns all valid template ID values.
func AllTemplateIDs() []TemplateID {
	return []TemplateID{TemplateDefault, TemplateStrict, TemplateRoster}
}

// templateHeaders are written above each generated template.
var templateHeaders = map[TemplateID]string{
	TemplateDefault: "# hrflow configuration: built-in defaults.\n" +
		"# Gate pass links are honoured for any holder (link_holder).\n",
	TemplateStrict: "# hrflow configuration: role checks on every request type,\n" +
		"# approver throttling and CloudWatch forwarding.\n",
	TemplateRoster: "# hrflow configuration: principals from a local roster file.\n",
}

// TemplateConfig returns the Config behind a template.
func TemplateConfig(id TemplateID) (*Config, error) {
	cfg := Default()
	switch id {
	case TemplateDefault:
	case TemplateStrict:
		cfg.Policies["gate_pass"] = approval.PolicyRoles
		cfg.Logging = LoggingConfig{CloudWatchGroup: "/hrflow/approvals", CloudWatchStream: "hrflow"}
		cfg.RateLimit = RateLimitConfig{RequestsPerMinute: 30, Burst: 10}
	case TemplateRoster:
		cfg.Tables.Users = ""
		cfg.Directory.RosterFile = "roster.yaml"
	default:
		return nil, fmt.Errorf("unknown template %q", id)
	}
	return cfg, nil
}

// GenerateTemplate renders a template as YAML.
func GenerateTemplate(id TemplateID) ([]byte, error) {
	cfg, err := TemplateConfig(id)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteString(templateHeaders[id])
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return nil, fmt.Errorf("encode template: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
