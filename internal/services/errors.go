package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidMedia        = errors.New("invalid media")
	ErrNormalizationFailed = errors.New("normalization failed")
	ErrStorageFailed       = errors.New("storage failed")
	ErrNotFound            = errors.New("not found")
	ErrUnavailable         = errors.New("unavailable")
)

// Kind is the machine-distinguishable classification surfaced to callers.
type Kind string

const (
	KindInvalidMedia        Kind = "InvalidMedia"
	KindNormalizationFailed Kind = "NormalizationFailed"
	KindStorageFailed       Kind = "StorageFailed"
	KindNotFound            Kind = "NotFound"
	KindUnavailable         Kind = "Unavailable"
	KindInternal            Kind = "Internal"
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrUnavailable
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// KindOf maps an error to its Kind. Untagged errors report KindInternal.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidMedia):
		return KindInvalidMedia
	case errors.Is(err, ErrNormalizationFailed):
		return KindNormalizationFailed
	case errors.Is(err, ErrStorageFailed):
		return KindStorageFailed
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrUnavailable):
		return KindUnavailable
	default:
		return KindInternal
	}
}

// Retryable reports whether the caller may retry the same request unchanged.
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindStorageFailed, KindUnavailable:
		return true
	default:
		return false
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
