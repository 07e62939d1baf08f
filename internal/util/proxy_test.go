package util

import (
	"net/http"
	"testing"
)

func TestNewProxyFunc_Explicit(t *testing.T) {
	proxy := NewProxyFunc("http://proxy.local:3128", "http://secure.local:3129", "internal.example,localhost")

	tests := []struct {
		target string
		want   string
	}{
		{"http://api.example.com/v1", "http://proxy.local:3128"},
		{"https://api.example.com/v1", "http://secure.local:3129"},
		{"https://internal.example/v1", ""},
		{"http://localhost:11434/api/generate", ""},
	}

	for _, tt := range tests {
		req, err := http.NewRequest(http.MethodGet, tt.target, nil)
		if err != nil {
			t.Fatalf("Failed to build request: %v", err)
		}
		got, err := proxy(req)
		if err != nil {
			t.Fatalf("%s: proxy returned error %v", tt.target, err)
		}
		if tt.want == "" {
			if got != nil {
				t.Errorf("%s: expected direct connection, got %s", tt.target, got)
			}
			continue
		}
		if got == nil || got.String() != tt.want {
			t.Errorf("%s: expected proxy %s, got %v", tt.target, tt.want, got)
		}
	}
}

func TestNewProxyFunc_EnvironmentFallback(t *testing.T) {
	if NewProxyFunc("", "", "anything") == nil {
		t.Fatal("Expected environment proxy function")
	}
}
