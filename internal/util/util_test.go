package util

import (
	"strings"
	"testing"
	"time"
)

func TestParseBoolEnv(t *testing.T) {
	cases := []struct {
		value string
		def   bool
		want  bool
	}{
		{"true", false, true},
		{"1", false, true},
		{"YES", false, true},
		{"on", false, true},
		{"false", true, false},
		{"0", true, false},
		{"off", true, false},
		{"", true, true},
		{"", false, false},
		{"banana", true, true},
	}
	for _, tc := range cases {
		t.Setenv("FLOWDESK_TEST_BOOL", tc.value)
		if got := ParseBoolEnv("FLOWDESK_TEST_BOOL", tc.def); got != tc.want {
			t.Errorf("ParseBoolEnv(%q, %v) = %v, want %v", tc.value, tc.def, got, tc.want)
		}
	}
}

func TestParseDurationEnv(t *testing.T) {
	t.Setenv("FLOWDESK_TEST_DURATION", "90s")
	if got := ParseDurationEnv("FLOWDESK_TEST_DURATION", time.Minute); got != 90*time.Second {
		t.Errorf("ParseDurationEnv = %v, want 90s", got)
	}

	t.Setenv("FLOWDESK_TEST_DURATION", "not-a-duration")
	if got := ParseDurationEnv("FLOWDESK_TEST_DURATION", time.Minute); got != time.Minute {
		t.Errorf("ParseDurationEnv with invalid value = %v, want default", got)
	}

	t.Setenv("FLOWDESK_TEST_DURATION", "")
	if got := ParseDurationEnv("FLOWDESK_TEST_DURATION", time.Minute); got != time.Minute {
		t.Errorf("ParseDurationEnv with empty value = %v, want default", got)
	}
}

func TestGenerateRandomHex(t *testing.T) {
	hex := GenerateRandomHex(32)
	if len(hex) != 32 {
		t.Errorf("expected length 32, got %d", len(hex))
	}
	for _, c := range hex {
		if !strings.ContainsRune("0123456789abcdef", c) {
			t.Errorf("unexpected character %q in hex string", c)
		}
	}
	if GenerateRandomHex(0) != "" {
		t.Error("expected empty string for zero length")
	}
}

func TestGenerateRequestID(t *testing.T) {
	id := GenerateRequestID()
	if !strings.HasPrefix(id, "req_") {
		t.Errorf("expected req_ prefix, got %q", id)
	}
	if id == GenerateRequestID() {
		t.Error("expected distinct request ids")
	}
}
