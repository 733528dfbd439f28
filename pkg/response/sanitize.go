package response

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	// DefaultMaxResponseSize is 1MB. Model responses are prose, not
	// payloads; anything larger is a runaway generation.
	DefaultMaxResponseSize = 1 << 20
	// EnvMaxResponseSize is the environment variable to override the default.
	EnvMaxResponseSize = "STORYCHAIN_MAX_RESPONSE_SIZE"
)

var (
	ErrResponseTooLarge = errors.New("response exceeds maximum allowed size")
	ErrInvalidUTF8      = errors.New("response contains invalid UTF-8 sequences")
)

// Sanitize cleans a raw model response by enforcing size limits,
// validating UTF-8, and stripping dangerous control characters.
func Sanitize(raw string) (string, error) {
	// 1. Enforce Size Limit
	limit := maxResponseSize()
	if len(raw) > limit {
		// Reject rather than truncate so a silently shortened scene
		// never enters the chain.
		return "", fmt.Errorf("%w: size=%d limit=%d", ErrResponseTooLarge, len(raw), limit)
	}

	// 2. Validate UTF-8
	if !utf8.ValidString(raw) {
		return "", ErrInvalidUTF8
	}

	// 3. Strip Control Characters
	// We preserve:
	// - Newline (\n)
	// - Tab (\t)
	// - Carriage Return (\r) - treated as whitespace
	// We remove:
	// - ANSI codes (ESC), NULL, BEL, etc.
	// This prevents log poisoning and terminal corruption when scenes
	// are echoed or archived.

	// Fast path: if no control chars, return as is.
	clean := true
	for _, r := range raw {
		if unicode.IsControl(r) && !isSafeControl(r) {
			clean = false
			break
		}
	}
	if clean {
		return raw, nil
	}

	// Slow path: build clean string
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if !unicode.IsControl(r) || isSafeControl(r) {
			b.WriteRune(r)
		}
	}
	return b.String(), nil
}

func isSafeControl(r rune) bool {
	return r == '\n' || r == '\t' || r == '\r'
}

func maxResponseSize() int {
	if val := os.Getenv(EnvMaxResponseSize); val != "" {
		if size, err := strconv.Atoi(val); err == nil && size > 0 {
			return size
		}
	}
	return DefaultMaxResponseSize
}
