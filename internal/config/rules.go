package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Auto-approval rule names. The workflow engine maps each name to a predicate;
// the rules file controls ordering, enablement, and parameters.
const (
	RuleRoleBelowThreshold  = "role_below_threshold"
	RuleSiblingProjectGrant = "sibling_project_grant"
)

// ApprovalRule is one entry in the ordered auto-approval rule list.
type ApprovalRule struct {
	Name    string `yaml:"name"`
	Enabled bool   `yaml:"enabled"`

	// MaxRole applies to role_below_threshold: requests for this role or
	// weaker are approved without human review.
	MaxRole string `yaml:"max_role,omitempty"`
}

// ApprovalRules holds the ordered auto-approval rule configuration. The first
// matching enabled rule wins and its name is recorded on the request.
type ApprovalRules struct {
	Rules []ApprovalRule `yaml:"rules"`
}

var knownRuleNames = map[string]bool{
	RuleRoleBelowThreshold:  true,
	RuleSiblingProjectGrant: true,
}

// LoadApprovalRules reads the rules file at path. A missing file is not an
// error: it yields an empty rule set, meaning every request goes to human
// review.
func LoadApprovalRules(path string) (*ApprovalRules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &ApprovalRules{}, nil
		}
		return nil, fmt.Errorf("failed to read approval rules file %s: %w", path, err)
	}
	return ParseApprovalRules(data)
}

// ParseApprovalRules parses and validates yaml rule configuration.
func ParseApprovalRules(data []byte) (*ApprovalRules, error) {
	var rules ApprovalRules
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("failed to parse approval rules: %w", err)
	}
	for i, rule := range rules.Rules {
		if !knownRuleNames[rule.Name] {
			return nil, fmt.Errorf("approval rule %d: unknown rule name %q", i, rule.Name)
		}
		if rule.Name == RuleRoleBelowThreshold && rule.Enabled && rule.MaxRole == "" {
			return nil, fmt.Errorf("approval rule %q requires max_role", rule.Name)
		}
	}
	return &rules, nil
}

// Enabled returns the enabled rules in configured order.
func (r *ApprovalRules) Enabled() []ApprovalRule {
	out := make([]ApprovalRule, 0, len(r.Rules))
	for _, rule := range r.Rules {
		if rule.Enabled {
			out = append(out, rule)
		}
	}
	return out
}
