// Auditwire - Audit Event Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditwire

// Package users manages portal accounts and produces their audit events.
//
// Service is the only producer of account events:
//
//	Register      -> user_created
//	Authenticate  -> user_logged_in | failed_login_attempt
//	Logout        -> user_logged_out
//	Delete        -> user_deleted | user_deletion_failed_unauthorized |
//	                 user_deletion_failed_self_deletion
//
// Events go to an Emitter (the audit publisher) and are fire-and-forget: a
// full queue or a broker outage never fails a login.
//
// Delete is the deletion guard. It asks the Gate for the users/delete
// permission; the Gate is the same Casbin enforcer that protects the audit
// log. Register refuses the admin name, so the admin account only comes
// from EnsureAdmin.
//
// Accounts are stored in DuckDB (DuckDBStore, table users) or in memory
// (MemoryStore). Usernames are exact and case-sensitive; passwords are
// bcrypt hashes.
package users
