package process

import (
	"context"
	"errors"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/storychain/pkg/domain"
)

func requireShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("tests drive /bin/sh")
	}
}

func TestGenerator_Generate(t *testing.T) {
	requireShell(t)

	t.Run("Echoes Stdin", func(t *testing.T) {
		// cat returns the prompt verbatim, the simplest possible model.
		gen := New("cat")

		out, err := gen.Generate(context.Background(), "Scene one, please.")
		require.NoError(t, err)
		assert.Equal(t, "Scene one, please.", out)
	})

	t.Run("Trims Output", func(t *testing.T) {
		gen := New("sh", WithArgs("-c", "echo; echo 'The door opened.'; echo"))

		out, err := gen.Generate(context.Background(), "ignored")
		require.NoError(t, err)
		assert.Equal(t, "The door opened.", out)
	})

	t.Run("Exports Environment", func(t *testing.T) {
		gen := New("sh",
			WithArgs("-c", `printf '%s' "$STORYCHAIN_MODEL"`),
			WithEnv(map[string]string{"model": "test-model"}),
		)

		out, err := gen.Generate(context.Background(), "")
		require.NoError(t, err)
		assert.Equal(t, "test-model", out)
	})

	t.Run("Nonzero Exit Is Unavailable", func(t *testing.T) {
		gen := New("sh", WithArgs("-c", "echo 'model crashed' >&2; exit 3"))

		_, err := gen.Generate(context.Background(), "prompt")
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrInferenceUnavailable)
		assert.True(t, strings.Contains(err.Error(), "model crashed"), "stderr missing from error: %v", err)
	})

	t.Run("Empty Output Is Malformed", func(t *testing.T) {
		gen := New("sh", WithArgs("-c", "exit 0"))

		_, err := gen.Generate(context.Background(), "prompt")
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrMalformedResponse)
	})
}

func TestGenerator_Cancellation(t *testing.T) {
	requireShell(t)

	t.Run("Context Cancel Kills Process", func(t *testing.T) {
		gen := New("sh", WithArgs("-c", "sleep 5"))

		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(50 * time.Millisecond)
			cancel()
		}()

		start := time.Now()
		_, err := gen.Generate(ctx, "prompt")
		require.Error(t, err)
		assert.True(t, errors.Is(err, context.Canceled), "err = %v", err)
		assert.Less(t, time.Since(start), 2*time.Second, "process was not killed promptly")
	})

	t.Run("Timeout Kills Process", func(t *testing.T) {
		gen := New("sh",
			WithArgs("-c", "sleep 5"),
			WithTimeout(100*time.Millisecond),
		)

		start := time.Now()
		_, err := gen.Generate(context.Background(), "prompt")
		require.Error(t, err)
		assert.True(t, errors.Is(err, context.DeadlineExceeded), "err = %v", err)
		assert.Less(t, time.Since(start), 2*time.Second, "process outlived its deadline")
	})
}
