// Package response turns raw model output into scene content and
// reasoning. Responses are sanitized before parsing so that oversized or
// corrupt generations never reach the chain or the logs.
package response

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/aretw0/storychain/pkg/domain"
)

// Form tags how a response was recovered.
type Form int

const (
	// FormStructured means the reasoning block was found and stripped.
	FormStructured Form = iota
	// FormDegraded means no delimiter was found; the whole response is
	// treated as content. Recoverable, not an error.
	FormDegraded
)

func (f Form) String() string {
	if f == FormDegraded {
		return "degraded"
	}
	return "structured"
}

// Result is one parsed model response.
type Result struct {
	Form      Form
	Content   string
	Reasoning string
}

// thinkBlock captures the reasoning block and everything after it.
// (?s) lets the captures span newlines.
var thinkBlock = regexp.MustCompile(`(?s)<think>(.*?)</think>\s*(.*)`)

// Parse splits a raw model response into scene content and reasoning.
//
// The convention is a <think>...</think> block followed by the scene. A
// response without the block degrades gracefully: everything becomes
// content and reasoning stays empty. A response with no usable content at
// all fails with domain.ErrMalformedResponse, which the generation driver
// treats as retryable.
func Parse(raw string) (Result, error) {
	clean, err := Sanitize(raw)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
	}

	if m := thinkBlock.FindStringSubmatch(clean); m != nil {
		res := Result{
			Form:      FormStructured,
			Reasoning: strings.TrimSpace(m[1]),
			Content:   strings.TrimSpace(m[2]),
		}
		if res.Content == "" {
			return Result{}, fmt.Errorf("%w: no content after reasoning block", domain.ErrMalformedResponse)
		}
		return res, nil
	}

	content := strings.TrimSpace(clean)
	if content == "" {
		return Result{}, fmt.Errorf("%w: empty response", domain.ErrMalformedResponse)
	}
	return Result{Form: FormDegraded, Content: content}, nil
}
