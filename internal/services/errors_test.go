package services_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"voicecollect/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrStorageFailed, "blobstore", "put", "upload failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrStorageFailed) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"blobstore", "put", "upload failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsToUnavailable(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrUnavailable) {
		t.Fatalf("expected unavailable marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected fallback detail, got %q", err.Error())
	}
}

func TestKindOfMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want services.Kind
	}{
		{"nil", nil, ""},
		{"invalid", services.Wrap(services.ErrInvalidMedia, "recorder", "validate", "bad type", nil), services.KindInvalidMedia},
		{"normalization", services.Wrap(services.ErrNormalizationFailed, "audio", "decode", "", nil), services.KindNormalizationFailed},
		{"storage", services.Wrap(services.ErrStorageFailed, "blobstore", "put", "", nil), services.KindStorageFailed},
		{"not found", fmt.Errorf("outer: %w", services.Wrap(services.ErrNotFound, "phrases", "commit", "", nil)), services.KindNotFound},
		{"unavailable", services.Wrap(services.ErrUnavailable, "phrases", "ping", "", context.DeadlineExceeded), services.KindUnavailable},
		{"untagged", errors.New("plain"), services.KindInternal},
	}
	for _, tc := range cases {
		if got := services.KindOf(tc.err); got != tc.want {
			t.Fatalf("%s: expected %q, got %q", tc.name, tc.want, got)
		}
	}
}

func TestRetryable(t *testing.T) {
	if !services.Retryable(services.Wrap(services.ErrStorageFailed, "", "", "", nil)) {
		t.Fatal("expected storage failures to be retryable")
	}
	if !services.Retryable(services.Wrap(services.ErrUnavailable, "", "", "", nil)) {
		t.Fatal("expected unavailable failures to be retryable")
	}
	if services.Retryable(services.Wrap(services.ErrInvalidMedia, "", "", "", nil)) {
		t.Fatal("expected invalid media to be terminal")
	}
	if services.Retryable(nil) {
		t.Fatal("expected nil to be non-retryable")
	}
}
