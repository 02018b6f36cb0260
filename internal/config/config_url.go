// Auditwire - Audit Event Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditwire

package config

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
)

var (
	calculationSchemes = []string{"http", "https"}
	natsSchemes        = []string{"nats", "tls", "ws", "wss"}
)

func parseEndpoint(raw string, schemes []string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, err
	}
	if !slices.Contains(schemes, u.Scheme) {
		return nil, fmt.Errorf("scheme %q is not one of %s", u.Scheme, strings.Join(schemes, ", "))
	}
	if u.Hostname() == "" {
		return nil, errors.New("host is missing")
	}
	return u, nil
}

// validateCalculationURL accepts an http(s) base URL. The client appends
// /calculate itself, so anything past the host except a trailing slash is
// refused.
func validateCalculationURL(raw string) error {
	u, err := parseEndpoint(raw, calculationSchemes)
	if err != nil {
		return err
	}
	if strings.Trim(u.Path, "/") != "" {
		return fmt.Errorf("path %q must be removed", u.Path)
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return errors.New("query and fragment must be removed")
	}
	return nil
}

// validateNATSURL accepts one server URL or a comma-separated cluster list.
func validateNATSURL(raw string) error {
	for _, server := range strings.Split(raw, ",") {
		if _, err := parseEndpoint(server, natsSchemes); err != nil {
			return fmt.Errorf("%q: %w", strings.TrimSpace(server), err)
		}
	}
	return nil
}
