package services

import "context"

type contextKey string

const (
	requestIDKey   contextKey = "request_id"
	phraseIDKey    contextKey = "phrase_id"
	contributorKey contextKey = "contributor_id"
)

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithPhraseID annotates context with the phrase a request targets.
func WithPhraseID(ctx context.Context, id int64) context.Context {
	if id <= 0 {
		return ctx
	}
	return context.WithValue(ctx, phraseIDKey, id)
}

// PhraseIDFromContext extracts the phrase identifier if present.
func PhraseIDFromContext(ctx context.Context) (int64, bool) {
	switch val := ctx.Value(phraseIDKey).(type) {
	case int64:
		return val, true
	case int:
		return int64(val), true
	default:
		return 0, false
	}
}

// WithContributor annotates context with the free-text contributor identifier.
func WithContributor(ctx context.Context, contributor string) context.Context {
	if contributor == "" {
		return ctx
	}
	return context.WithValue(ctx, contributorKey, contributor)
}

// ContributorFromContext returns the contributor identifier if present.
func ContributorFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(contributorKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
