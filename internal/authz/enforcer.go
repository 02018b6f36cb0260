// Auditwire - Audit Event Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditwire

package authz

import (
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"

	"github.com/tomtom215/auditwire/internal/logging"
)

//go:embed model.conf
var embeddedModel string

//go:embed policy.csv
var embeddedPolicy string

// adminPlaceholder in policy.csv is replaced with the configured admin name.
const adminPlaceholder = "{admin}"

// Objects and actions understood by the policy.
const (
	ObjectAuditLogs = "audit_logs"
	ObjectUsers     = "users"

	ActionRead   = "read"
	ActionDelete = "delete"
)

// Enforcer wraps the Casbin enforcer. Exactly one identity, the configured
// admin, holds any permission; the match is exact and case-sensitive.
type Enforcer struct {
	admin    string
	enforcer *casbin.SyncedEnforcer
}

// NewEnforcer creates an enforcer whose policy grants the embedded admin
// permissions to adminUsername. An empty name yields an enforcer that
// allows nothing.
func NewEnforcer(adminUsername string) (*Enforcer, error) {
	m, err := model.NewModelFromString(embeddedModel)
	if err != nil {
		return nil, fmt.Errorf("failed to load casbin model: %w", err)
	}

	enforcer, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin enforcer: %w", err)
	}

	if adminUsername != "" {
		if err := loadEmbeddedPolicy(enforcer, embeddedPolicy, adminUsername); err != nil {
			return nil, err
		}
	}

	return &Enforcer{admin: adminUsername, enforcer: enforcer}, nil
}

// loadEmbeddedPolicy parses the policy template and adds each rule with the
// admin name substituted after splitting, so the name itself is never parsed
// as CSV.
func loadEmbeddedPolicy(enforcer *casbin.SyncedEnforcer, policy, admin string) error {
	for _, line := range strings.Split(policy, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.Split(line, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		if len(parts) != 4 || parts[0] != "p" {
			return fmt.Errorf("malformed policy line %q", line)
		}

		subject := parts[1]
		if subject == adminPlaceholder {
			subject = admin
		}
		if _, err := enforcer.AddPolicy(subject, parts[2], parts[3]); err != nil {
			return fmt.Errorf("failed to add policy %v: %w", parts[1:], err)
		}
	}
	return nil
}

// Can reports whether subject may perform action on object. Enforcement
// errors are logged and treated as a denial.
func (e *Enforcer) Can(subject, object, action string) bool {
	if subject == "" {
		RecordAuthzDecision(object, action, false, 0)
		return false
	}

	start := time.Now()
	allowed, err := e.enforcer.Enforce(subject, object, action)
	if err != nil {
		RecordAuthzError("enforce")
		logging.Error().Err(err).
			Str("subject", subject).
			Str("object", object).
			Str("action", action).
			Msg("Authorization error")
		return false
	}

	RecordAuthzDecision(object, action, allowed, time.Since(start))
	return allowed
}

// IsPrivileged reports whether principal is the admin identity. It is the
// access gate for the audit log query service.
func (e *Enforcer) IsPrivileged(principal string) bool {
	return e.Can(principal, ObjectAuditLogs, ActionRead)
}

// Admin returns the configured admin name.
func (e *Enforcer) Admin() string {
	return e.admin
}

// GetPolicy returns all policy rules.
func (e *Enforcer) GetPolicy() [][]string {
	//nolint:errcheck // GetPolicy only fails if enforcer is nil, which is a programming error
	policies, _ := e.enforcer.GetPolicy()
	return policies
}
