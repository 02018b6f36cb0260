// Auditwire - Audit Event Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditwire

package audit

import (
	"net/http/httptest"
	"testing"
)

func TestSourceFromRequest(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{"remote addr with port", "192.168.1.5:51234", nil, "192.168.1.5"},
		{"remote addr without port", "192.168.1.5", nil, "192.168.1.5"},
		{"forwarded chain", "10.0.0.1:80", map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.2"}, "203.0.113.7"},
		{"real ip", "10.0.0.1:80", map[string]string{"X-Real-IP": " 198.51.100.3 "}, "198.51.100.3"},
		{"unroutable kept as-is", "not-an-address", nil, "not-an-address"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("POST", "/login", nil)
			r.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := SourceFromRequest(r); got != tt.want {
				t.Errorf("SourceFromRequest() = %q, want %q", got, tt.want)
			}
		})
	}
}
