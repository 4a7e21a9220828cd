package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSemanticRequested(t *testing.T) {
	tests := []struct {
		name   string
		target string
		cookie string
		want   bool
	}{
		{"no signal", "/search?q=crash", "", false},
		{"query param on", "/search?q=crash&semantic=1", "", true},
		{"query param true", "/search?q=crash&semantic=true", "", true},
		{"query param off", "/search?q=crash&semantic=0", "", false},
		{"cookie on", "/search?q=crash", "1", true},
		{"cookie true", "/search?q=crash", "true", true},
		{"cookie off", "/search?q=crash", "0", false},
		{"query param overrides cookie", "/search?q=crash&semantic=0", "1", false},
		{"present but empty param overrides cookie", "/search?q=crash&semantic=", "1", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.cookie != "" {
				r.AddCookie(&http.Cookie{Name: "semantic_search", Value: tt.cookie})
			}
			if got := semanticRequested(r); got != tt.want {
				t.Errorf("semanticRequested() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestQueryBool(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"1", true},
		{"true", true},
		{"YES", true},
		{"on", true},
		{"0", false},
		{"false", false},
		{"", false},
	}

	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/search?flag="+tt.value, nil)
		if got := queryBool(r, "flag"); got != tt.want {
			t.Errorf("queryBool(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}
}
