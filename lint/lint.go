/*
Copyright 2026 Benny Powers. All rights reserved.
Use of this source code is governed by the GPLv3
license that can be found in the LICENSE file.
*/

// Package lint runs rule plugins against a flat token table.
package lint

import (
	"context"
	"fmt"
	"regexp"
	"sync"

	"bennypowers.dev/permute/schema"
	"bennypowers.dev/permute/token"
)

// RuleErrorID is the rule id of issues synthesized from failing rules.
const RuleErrorID = "lint/rule-error"

// Meta describes a rule.
type Meta struct {
	Name        string
	Description string
	// Messages maps message ids to templates with {{key}} placeholders.
	Messages map[string]string
	// AppliesTo restricts the rule to tokens of these $types. Empty means all.
	AppliesTo []string
}

// Rule is a lint rule. Create is called once per run and reports issues
// through the context.
type Rule struct {
	Meta           Meta
	DefaultOptions map[string]any
	Create         func(*RuleContext) error
}

// Plugin is a named bundle of rules, addressed as "plugin/rule".
type Plugin struct {
	Name  string
	Rules map[string]*Rule
	// Configs are named rule presets, e.g. "recommended".
	Configs map[string]map[string]RuleConfig
}

// RuleConfig sets a rule's severity and options.
type RuleConfig struct {
	Severity schema.Severity
	Options  map[string]any
}

// Descriptor is what a rule reports.
type Descriptor struct {
	MessageID string
	// Message is used when MessageID is empty.
	Message string
	Data    map[string]any
	Token   *token.Token
}

// Issue is one reported problem.
type Issue struct {
	RuleID    string          `json:"ruleId"`
	Severity  schema.Severity `json:"severity"`
	Message   string          `json:"message"`
	TokenName string          `json:"tokenName,omitempty"`
	TokenPath []string        `json:"tokenPath,omitempty"`
}

// Result is the outcome of a lint run.
type Result struct {
	Issues       []Issue `json:"issues"`
	ErrorCount   int     `json:"errorCount"`
	WarningCount int     `json:"warningCount"`
}

// HasErrors reports whether any issue has error severity.
func (r *Result) HasErrors() bool {
	return r.ErrorCount > 0
}

// Err returns a Lint error summarizing the result, or nil when there are no errors.
func (r *Result) Err() error {
	if !r.HasErrors() {
		return nil
	}
	return schema.NewError(schema.ErrLint, "%d lint error(s), %d warning(s)", r.ErrorCount, r.WarningCount)
}

// RuleContext is passed to Rule.Create.
type RuleContext struct {
	// RuleID is the full "plugin/rule" id.
	RuleID string
	// Tokens holds the tokens the rule applies to, sorted by name.
	Tokens []*token.Token
	// Options are the rule's default options overlaid with configured ones.
	Options map[string]any

	ctx    context.Context
	meta   Meta
	sev    schema.Severity
	mu     sync.Mutex
	issues []Issue
}

// Context returns the run's context.
func (c *RuleContext) Context() context.Context {
	return c.ctx
}

// Report records an issue. It is safe to call from multiple goroutines.
func (c *RuleContext) Report(d Descriptor) {
	message := d.Message
	if d.MessageID != "" {
		if tmpl, ok := c.meta.Messages[d.MessageID]; ok {
			message = tmpl
		} else if message == "" {
			message = d.MessageID
		}
	}
	issue := Issue{
		RuleID:   c.RuleID,
		Severity: c.sev,
		Message:  Interpolate(message, d.Data),
	}
	if d.Token != nil {
		issue.TokenName = d.Token.Name
		issue.TokenPath = d.Token.Path
	}
	c.mu.Lock()
	c.issues = append(c.issues, issue)
	c.mu.Unlock()
}

var placeholder = regexp.MustCompile(`\{\{\s*([\w.-]+)\s*\}\}`)

// Interpolate replaces {{key}} placeholders with values from data.
// Placeholders without a value are left as written.
func Interpolate(template string, data map[string]any) string {
	if len(data) == 0 {
		return template
	}
	return placeholder.ReplaceAllStringFunc(template, func(match string) string {
		key := placeholder.FindStringSubmatch(match)[1]
		v, ok := data[key]
		if !ok {
			return match
		}
		return fmt.Sprint(v)
	})
}

// ParseSeverity parses "error", "warn", "warning" or "off".
func ParseSeverity(s string) (schema.Severity, error) {
	switch s {
	case "error":
		return schema.SeverityError, nil
	case "warn", "warning":
		return schema.SeverityWarning, nil
	case "off":
		return schema.SeverityOff, nil
	}
	return "", schema.NewError(schema.ErrConfiguration,
		"invalid lint severity %q, expected error, warn or off", s)
}
