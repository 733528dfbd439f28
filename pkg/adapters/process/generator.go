// Package process runs a local command as the text generator: the prompt
// goes to stdin, the response comes back on stdout. It lets storychain
// drive llama.cpp wrappers or plain scripts without an HTTP server in
// between.
package process

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/aretw0/storychain/pkg/domain"
)

// Generator implements ports.Generator over a local process. One process
// is spawned per Generate call; the command must read the prompt from
// stdin, write the response to stdout, and exit zero.
type Generator struct {
	command string
	args    []string
	dir     string
	env     map[string]string
	timeout time.Duration
	logger  *slog.Logger
}

// Option configures the generator.
type Option func(*Generator)

// WithArgs sets fixed arguments passed on every invocation.
func WithArgs(args ...string) Option {
	return func(g *Generator) {
		g.args = args
	}
}

// WithDir sets the working directory for the spawned process.
func WithDir(dir string) Option {
	return func(g *Generator) {
		g.dir = dir
	}
}

// WithEnv adds environment variables, exported as STORYCHAIN_<KEY>.
// Values reach the process through the environment, never as command
// line flags, so prompt content cannot inject options.
func WithEnv(env map[string]string) Option {
	return func(g *Generator) {
		g.env = env
	}
}

// WithTimeout bounds one invocation; the process is killed on expiry.
func WithTimeout(timeout time.Duration) Option {
	return func(g *Generator) {
		g.timeout = timeout
	}
}

// WithLogger sets a structured logger for invocation diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) {
		g.logger = logger
	}
}

// New creates a generator that invokes command for every prompt.
func New(command string, opts ...Option) *Generator {
	g := &Generator{
		command: command,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate runs the command once with the prompt on stdin and returns
// the trimmed stdout. A non-zero exit surfaces as
// domain.ErrInferenceUnavailable with stderr attached; empty output is
// domain.ErrMalformedResponse. Cancelling ctx kills the process.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, g.command, g.args...)
	cmd.Dir = g.dir

	env := cmd.Environ()
	for k, v := range g.env {
		env = append(env, fmt.Sprintf("STORYCHAIN_%s=%s", strings.ToUpper(k), v))
	}
	cmd.Env = env

	cmd.Stdin = strings.NewReader(prompt)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	g.logger.Debug("process generator finished",
		"command", g.command, "duration", time.Since(start), "err", err)

	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%w: %s: %v: %s",
			domain.ErrInferenceUnavailable, g.command, err, snippet(stderr.String()))
	}

	out := strings.TrimSpace(stdout.String())
	if out == "" {
		return "", fmt.Errorf("%w: %s produced no output", domain.ErrMalformedResponse, g.command)
	}
	return out, nil
}

// snippet keeps stderr readable inside wrapped errors.
func snippet(s string) string {
	const max = 256
	s = strings.TrimSpace(s)
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
