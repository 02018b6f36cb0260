// Auditwire - Audit Event Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditwire

package config

import "testing"

func TestValidateCalculationURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		url     string
		wantErr bool
	}{
		{"http://localhost:9999", false},
		{"https://calc.internal/", false},
		{"http://calc.internal/calculate", true},
		{"http://calc.internal?debug=1", true},
		{"ftp://calc.internal", true},
		{"http://", true},
		{"calc.internal:9999", true},
	}
	for _, tt := range tests {
		err := validateCalculationURL(tt.url)
		if (err != nil) != tt.wantErr {
			t.Errorf("validateCalculationURL(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
		}
	}
}

func TestValidateNATSURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		url     string
		wantErr bool
	}{
		{"nats://127.0.0.1:4222", false},
		{"tls://broker.internal:4222", false},
		{"wss://broker.internal/ws", false},
		{"nats://a:4222, nats://b:4222", false},
		{"nats://a:4222,http://b:4222", true},
		{"http://broker:4222", true},
		{"nats://", true},
		{"", true},
	}
	for _, tt := range tests {
		err := validateNATSURL(tt.url)
		if (err != nil) != tt.wantErr {
			t.Errorf("validateNATSURL(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
		}
	}
}
