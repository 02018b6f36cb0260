// Auditwire - Audit Event Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditwire

package logging

import (
	"strings"

	"github.com/rs/zerolog"
)

// SecurityEvent is an account or session event written to the diagnostic
// log. It is not an audit record.
type SecurityEvent struct {
	// Event names what happened (login_success, logout, access_denied, ...).
	Event string
	// Username is the principal, if known.
	Username string
	// TokenID is the session token's jti; it is masked before logging.
	TokenID string
	// SourceAddr is the client address as seen by the portal.
	SourceAddr string
	// UserAgent is truncated before logging.
	UserAgent string
	Success   bool
	// Reason explains a failure. Ignored when Success is true.
	Reason string
	// Details holds extra fields; values under sensitive keys are masked.
	Details map[string]string
}

// SecurityLogger writes SecurityEvents with sanitized fields.
type SecurityLogger struct {
	logger zerolog.Logger
}

// NewSecurityLogger creates a security logger on top of the global logger.
func NewSecurityLogger() *SecurityLogger {
	return newSecurityLogger(Logger())
}

//nolint:gocritic // zerolog.Logger is designed to be passed by value
func newSecurityLogger(logger zerolog.Logger) *SecurityLogger {
	return &SecurityLogger{
		logger: logger.With().Str("component", "security").Logger(),
	}
}

// LogEvent writes event. Failures are logged at warn level.
func (l *SecurityLogger) LogEvent(event *SecurityEvent) {
	e := l.logger.Info()
	status := "success"
	if !event.Success {
		e = l.logger.Warn()
		status = "failed"
	}
	e = e.Str("security_event", event.Event).Str("status", status)

	if event.Username != "" {
		e = e.Str("username", SanitizeUsername(event.Username))
	}
	if event.TokenID != "" {
		e = e.Str("token_id", SanitizeToken(event.TokenID))
	}
	if event.SourceAddr != "" {
		e = e.Str("source_addr", event.SourceAddr)
	}
	if event.UserAgent != "" {
		e = e.Str("user_agent", truncateString(event.UserAgent, 100))
	}
	if event.Reason != "" && !event.Success {
		e = e.Str("reason", SanitizeError(event.Reason))
	}
	for k, v := range event.Details {
		e = e.Str(k, SanitizeValue(k, v))
	}

	e.Msg("Security event")
}

// LogLoginSuccess logs a successful login.
func (l *SecurityLogger) LogLoginSuccess(username, sourceAddr, userAgent string) {
	l.LogEvent(&SecurityEvent{
		Event:      "login_success",
		Username:   username,
		SourceAddr: sourceAddr,
		UserAgent:  userAgent,
		Success:    true,
	})
}

// LogLoginFailure logs a rejected login.
func (l *SecurityLogger) LogLoginFailure(username, sourceAddr, userAgent, reason string) {
	l.LogEvent(&SecurityEvent{
		Event:      "login_failed",
		Username:   username,
		SourceAddr: sourceAddr,
		UserAgent:  userAgent,
		Reason:     reason,
	})
}

// LogLogout logs a logout and the revoked token.
func (l *SecurityLogger) LogLogout(username, tokenID, sourceAddr string) {
	l.LogEvent(&SecurityEvent{
		Event:      "logout",
		Username:   username,
		TokenID:    tokenID,
		SourceAddr: sourceAddr,
		Success:    true,
	})
}

// LogRegistration logs an account registration attempt.
func (l *SecurityLogger) LogRegistration(username, sourceAddr string, success bool, reason string) {
	l.LogEvent(&SecurityEvent{
		Event:      "registration",
		Username:   username,
		SourceAddr: sourceAddr,
		Success:    success,
		Reason:     reason,
	})
}

// LogAccessDenied logs a privileged request refused by the access gate.
func (l *SecurityLogger) LogAccessDenied(username, object, action, sourceAddr string) {
	l.LogEvent(&SecurityEvent{
		Event:      "access_denied",
		Username:   username,
		SourceAddr: sourceAddr,
		Reason:     "insufficient permissions",
		Details: map[string]string{
			"object": object,
			"action": action,
		},
	})
}

// SanitizeToken masks a token, showing only the first and last 4 characters.
// Example: "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..." -> "eyJh...VCJ9"
func SanitizeToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 12 {
		return "***"
	}
	return token[:4] + "..." + token[len(token)-4:]
}

// SanitizeUsername truncates an untrusted username and strips control
// characters so it cannot forge log lines in console output.
func SanitizeUsername(username string) string {
	cleaned := strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, username)
	return truncateString(cleaned, 64)
}

// SanitizeError replaces messages that mention credentials with a generic
// one and truncates the rest.
func SanitizeError(err string) string {
	sensitivePatterns := []string{
		"password",
		"secret",
		"token",
		"bearer",
		"authorization",
		"cookie",
	}

	lowerErr := strings.ToLower(err)
	for _, pattern := range sensitivePatterns {
		if strings.Contains(lowerErr, pattern) {
			return "authentication error"
		}
	}

	return truncateString(err, 200)
}

// SanitizeValue masks value when key names a credential.
func SanitizeValue(key, value string) string {
	switch strings.ToLower(key) {
	case "token", "access_token", "jti", "token_id",
		"password", "secret", "jwt_secret",
		"authorization", "bearer", "cookie":
		return SanitizeToken(value)
	default:
		return value
	}
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
