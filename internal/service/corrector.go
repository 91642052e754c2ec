package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/styleguard/styleguard/internal/langdetect"
	"github.com/styleguard/styleguard/internal/logging"
	"github.com/styleguard/styleguard/internal/ollama"
)

var (
	ErrModelUnavailable = errors.New("model backend unavailable")
	ErrModelTimeout     = errors.New("model backend timed out")
	ErrModelError       = errors.New("model backend error")
)

const DefaultModelTimeout = 15 * time.Second

type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type Corrector struct {
	Model   Generator
	Timeout time.Duration
}

type CorrectionResult struct {
	Text     string
	Language string
	// Fallback is set when the model output failed the length check and
	// the original text was returned instead.
	Fallback bool
}

func (c *Corrector) Correct(ctx context.Context, text string) (string, error) {
	res, err := c.CorrectDetailed(ctx, text)
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

func (c *Corrector) CorrectDetailed(ctx context.Context, text string) (CorrectionResult, error) {
	lang := langdetect.Detect(text)
	l := logging.FromContext(ctx).With("svc", "corrector", "language", lang)

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultModelTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	out, err := c.Model.Generate(callCtx, BuildPrompt(lang, text))
	if err != nil {
		mapped := mapModelError(err)
		l.Warn("model_call_failed", "duration_ms", time.Since(start).Milliseconds(), "error", err)
		return CorrectionResult{}, mapped
	}

	out = strings.TrimSpace(out)
	if !plausibleLength(text, out) {
		l.Warn("model_output_rejected",
			"original_len", utf8.RuneCountInString(text),
			"output_len", utf8.RuneCountInString(out))
		return CorrectionResult{Text: text, Language: lang, Fallback: true}, nil
	}

	l.Debug("model_call_completed", "duration_ms", time.Since(start).Milliseconds())
	return CorrectionResult{Text: out, Language: lang}, nil
}

// plausibleLength rejects empty output and output outside 50%..200% of the
// original, counted in runes.
func plausibleLength(original, out string) bool {
	if out == "" {
		return false
	}
	o, n := utf8.RuneCountInString(original), utf8.RuneCountInString(out)
	return 2*n >= o && n <= 2*o
}

func mapModelError(err error) error {
	switch {
	case errors.Is(err, ollama.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", ErrModelTimeout, err)
	case errors.Is(err, ollama.ErrNotRunning), errors.Is(err, ollama.ErrConnection):
		return fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("%w: %w", ErrModelError, err)
	}
	return fmt.Errorf("%w: %v", ErrModelError, err)
}

// IsRetryable reports whether the caller may resubmit the same text.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrModelUnavailable) || errors.Is(err, ErrModelTimeout) || errors.Is(err, ErrModelError)
}
