package internal

import (
	"context"
	"time"
)

type ctxKey string

const ContextLanguageKey ctxKey = "language"

// LanguageFromContext returns the Accept-Language value captured for the request.
func LanguageFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if lang, ok := ctx.Value(ContextLanguageKey).(string); ok {
		return lang
	}
	return ""
}

func ContextWithLanguage(ctx context.Context, lang string) context.Context {
	return context.WithValue(ctx, ContextLanguageKey, lang)
}

// WithTimeout returns a context with timeout, defaulting to 5 seconds if duration is zero or negative.
func WithTimeout(ctx context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	if duration <= 0 {
		duration = 5 * time.Second
	}
	return context.WithTimeout(ctx, duration)
}
