// Auditwire - Audit Event Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditwire

// Package calculation forwards /submit problems to the computation service.
//
// Each problem is posted as {problem, id} to CALCULATION_URL/calculate. The
// reply {success, answer, error} is rendered into a single message:
//
//	success            -> answer, or "No answer returned."
//	!success           -> "Error from processing server: <error>"
//	transport failure  -> "Error forwarding request: <err>"
//
// Calls pass through a gobreaker circuit breaker; while it is open the
// request is rejected without touching the network and reported as a
// forwarding error.
package calculation
