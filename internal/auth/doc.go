// Auditwire - Audit Event Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditwire

/*
Package auth provides session authentication for the account portal.

Key Components:

  - JWTManager: HS256 session tokens with a random token id (jti)
  - RevocationList: token ids revoked at logout, kept until they expire
  - Middleware: Bearer header or token cookie authentication
  - HashPassword / CheckPassword: bcrypt password storage

Sessions are stateless: a token stays valid until it expires unless its id
is on the revocation list. The revocation list lives in memory and runs its
cleanup loop under the supervisor.

Usage Example:

	jwtManager, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
	    return err
	}
	revocations := auth.NewRevocationList(0)
	mw := auth.NewMiddleware(jwtManager, revocations)

	r.With(mw.Authenticate).Post("/logout", h.Logout)

Handlers read the principal with ClaimsFromContext. Authorization decisions
(who may read audit logs or delete accounts) live in package authz.
*/
package auth
