package response

import (
	"errors"
	"strings"
	"testing"
)

func TestSanitize_SizeLimit(t *testing.T) {
	limit := DefaultMaxResponseSize

	tests := []struct {
		name    string
		rawSize int
		wantErr bool
	}{
		{"Under Limit", limit - 1, false},
		{"Exact Limit", limit, false},
		{"Over Limit", limit + 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := strings.Repeat("a", tt.rawSize)
			_, err := Sanitize(raw)
			if tt.wantErr {
				if !errors.Is(err, ErrResponseTooLarge) {
					t.Errorf("Sanitize() expected ErrResponseTooLarge for size %d, got %v", tt.rawSize, err)
				}
			} else {
				if err != nil {
					t.Errorf("Sanitize() unexpected error: %v", err)
				}
			}
		})
	}
}

func TestSanitize_ControlChars(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected string
	}{
		{"Normal Text", "The door opened slowly.", "The door opened slowly."},
		{"Safe Controls", "Line1\nLine2\tTabbed\r\n", "Line1\nLine2\tTabbed\r\n"},
		{"ANSI Code", "\x1b[31mRed\x1b[0m", "[31mRed[0m"}, // ESC removed
		{"Null Byte", "Null\x00Byte", "NullByte"},         // NULL removed
		{"Bell", "Ding\x07", "Ding"},                      // BEL removed
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Sanitize(tt.raw)
			if err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestSanitize_InvalidUTF8(t *testing.T) {
	_, err := Sanitize("broken \xff\xfe sequence")
	if !errors.Is(err, ErrInvalidUTF8) {
		t.Errorf("expected ErrInvalidUTF8, got %v", err)
	}
}

func TestSanitize_EnvOverride(t *testing.T) {
	t.Setenv("STORYCHAIN_MAX_RESPONSE_SIZE", "10")

	if _, err := Sanitize("12345678901"); err == nil {
		t.Error("expected error with lowered size limit, got nil")
	}
	if _, err := Sanitize("1234567890"); err != nil {
		t.Errorf("unexpected error at the limit: %v", err)
	}
}
