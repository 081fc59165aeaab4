package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConfiguration marks fatal configuration problems: the run must not
	// start (or, for a gallery descriptor, that gallery must not run).
	ErrConfiguration = errors.New("configuration error")
	// ErrImage marks per-image failures that are recovered locally: logged,
	// counted, and excluded from the run's successful set.
	ErrImage = errors.New("image processing error")
	// ErrEncryption marks encryption failures; processing of the affected
	// image aborts without leaving plaintext artifacts behind.
	ErrEncryption = errors.New("encryption error")
	// ErrNotFound marks missing inputs (galleries, descriptors, records).
	ErrNotFound = errors.New("not found")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrImage
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Fatal reports whether err should abort the whole run rather than be
// recovered per image.
func Fatal(err error) bool {
	return errors.Is(err, ErrConfiguration)
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
