package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/styleguard/styleguard/internal/ollama"
)

func TestCorrector_ReturnsModelOutput(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{out: "  Je suis allé au magasin.\n"}
	c := &Corrector{Model: gen}

	res, err := c.CorrectDetailed(context.Background(), "Je suis alle au magasin")
	require.NoError(t, err)
	assert.Equal(t, "Je suis allé au magasin.", res.Text)
	assert.Equal(t, "fr", res.Language)
	assert.False(t, res.Fallback)

	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "Ce texte est en français.")
	assert.Contains(t, gen.prompts[0], "## TEXTE À CORRIGER:\nJe suis alle au magasin\n")
}

func TestCorrector_LengthBoundaries(t *testing.T) {
	t.Parallel()

	original := strings.Repeat("a", 100)
	tests := []struct {
		name     string
		out      string
		fallback bool
	}{
		{name: "49 percent", out: strings.Repeat("b", 49), fallback: true},
		{name: "50 percent", out: strings.Repeat("b", 50), fallback: false},
		{name: "51 percent", out: strings.Repeat("b", 51), fallback: false},
		{name: "200 percent", out: strings.Repeat("b", 200), fallback: false},
		{name: "201 percent", out: strings.Repeat("b", 201), fallback: true},
		{name: "empty", out: "", fallback: true},
		{name: "whitespace only", out: "   \n\t", fallback: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := &Corrector{Model: &fakeGenerator{out: tt.out}}
			res, err := c.CorrectDetailed(context.Background(), original)
			require.NoError(t, err)
			assert.Equal(t, tt.fallback, res.Fallback)
			if tt.fallback {
				assert.Equal(t, original, res.Text)
			} else {
				assert.Equal(t, strings.TrimSpace(tt.out), res.Text)
			}
		})
	}
}

func TestCorrector_LengthCountsRunes(t *testing.T) {
	t.Parallel()

	// 10 Cyrillic runes are 20 bytes; 5 runes is exactly half.
	original := strings.Repeat("я", 10)
	c := &Corrector{Model: &fakeGenerator{out: strings.Repeat("я", 5)}}

	res, err := c.CorrectDetailed(context.Background(), original)
	require.NoError(t, err)
	assert.False(t, res.Fallback)
}

func TestCorrector_ErrorMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "not running", err: ollama.ErrNotRunning, want: ErrModelUnavailable},
		{name: "connection", err: &ollama.ClientError{Type: ollama.ErrTypeConnection, Message: "reset"}, want: ErrModelUnavailable},
		{name: "timeout", err: ollama.ErrTimeout, want: ErrModelTimeout},
		{name: "bad status", err: &ollama.ClientError{Type: ollama.ErrTypeInvalidResponse, Message: "500"}, want: ErrModelError},
		{name: "model missing", err: ollama.ErrModelNotFound, want: ErrModelError},
		{name: "canceled", err: context.Canceled, want: ErrModelError},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := &Corrector{Model: &fakeGenerator{err: tt.err}}
			_, err := c.Correct(context.Background(), "some text here")
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, IsRetryable(err))
		})
	}
}

func TestCorrector_TimeoutBoundsCall(t *testing.T) {
	t.Parallel()

	c := &Corrector{Model: &fakeGenerator{out: "late", delay: time.Second}, Timeout: 30 * time.Millisecond}

	start := time.Now()
	_, err := c.Correct(context.Background(), "late text")
	assert.ErrorIs(t, err, ErrModelTimeout)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestCorrector_UnknownLanguageUsesGenericInstruction(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{out: "xyzzy plugh"}
	res, err := (&Corrector{Model: gen}).CorrectDetailed(context.Background(), "xyzzy plugh")
	require.NoError(t, err)
	assert.Equal(t, "unknown", res.Language)
	assert.Contains(t, gen.prompts[0], "regardless of language")
}

func TestCorrector_ErrorBodyFromModelIsModelError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":"model failed to load"}`))
	}))
	t.Cleanup(srv.Close)

	c := &Corrector{Model: ollama.NewClient(ollama.ClientConfig{URL: srv.URL, Model: "mistral"})}
	res, err := c.CorrectDetailed(context.Background(), "Je suis alle au magasin")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrModelError)
	assert.Empty(t, res.Text)
	assert.False(t, res.Fallback)
}
