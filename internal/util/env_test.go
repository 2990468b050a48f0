package util

import "testing"

func TestGetEnvString(t *testing.T) {
	t.Setenv("FLATMAP_TEST_STRING", "value")
	if got := GetEnvString("FLATMAP_TEST_STRING", "fallback"); got != "value" {
		t.Fatalf("expected value, got %q", got)
	}
	if got := GetEnvString("FLATMAP_TEST_UNSET", "fallback"); got != "fallback" {
		t.Fatalf("expected fallback, got %q", got)
	}
}

func TestGetEnvNumeric(t *testing.T) {
	tests := []struct {
		name         string
		value        string
		set          bool
		defaultValue float64
		want         float64
	}{
		{name: "parses float", value: "2.5", set: true, defaultValue: 1, want: 2.5},
		{name: "invalid falls back", value: "not-a-number", set: true, defaultValue: 1, want: 1},
		{name: "unset falls back", defaultValue: 3, want: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.set {
				t.Setenv("FLATMAP_TEST_NUMERIC", tt.value)
			}
			if got := GetEnvNumeric("FLATMAP_TEST_NUMERIC", tt.defaultValue); got != tt.want {
				t.Fatalf("expected %g, got %g", tt.want, got)
			}
		})
	}
}

func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		name         string
		value        string
		set          bool
		defaultValue bool
		want         bool
	}{
		{name: "true", value: "true", set: true, want: true},
		{name: "false", value: "false", set: true, defaultValue: true, want: false},
		{name: "invalid falls back", value: "yes", set: true, defaultValue: false, want: false},
		{name: "unset falls back", defaultValue: true, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.set {
				t.Setenv("FLATMAP_TEST_BOOL", tt.value)
			}
			if got := GetEnvBool("FLATMAP_TEST_BOOL", tt.defaultValue); got != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}
