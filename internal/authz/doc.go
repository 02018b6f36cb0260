// Auditwire - Audit Event Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditwire

// Package authz provides the access gate using Casbin.
//
// The portal has a single privileged identity: the configured admin name.
// The model is a plain ACL with exact subject matching, so "Admin" and
// "admin " are not privileged when the admin is "admin", and an empty name
// never matches anything.
//
//	[request_definition]
//	r = sub, obj, act
//
//	[policy_definition]
//	p = sub, obj, act
//
//	[policy_effect]
//	e = some(where (p.eft == allow))
//
//	[matchers]
//	m = r.sub == p.sub && r.obj == p.obj && r.act == p.act
//
// The policy is generated at startup from policy.csv with {admin} replaced:
//
//	p, admin, audit_logs, read
//	p, admin, users, read
//	p, admin, users, delete
//
// # Usage Example
//
//	enforcer, err := authz.NewEnforcer(cfg.Security.AdminUsername)
//	if err != nil {
//	    return err
//	}
//	gate := authz.NewMiddleware(enforcer, respondAuthError)
//	r.With(gate.Authorize(authz.ObjectAuditLogs, authz.ActionRead)).Get("/show_logs", h.ShowLogs)
//
// Enforcer.IsPrivileged satisfies audit.Gate and users.Gate, so the query
// service and the deletion guard share one decision.
package authz
