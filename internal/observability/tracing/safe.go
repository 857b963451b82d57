package tracing

import (
	"errors"
	"strings"

	"go.opentelemetry.io/otel/attribute"
)

var blockedKeys = []string{"password", "token", "cookie", "authorization", "secret"}

// SafeAttributes drops attributes whose key looks like a credential.
func SafeAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if blocked(string(attr.Key)) {
			continue
		}
		out = append(out, attr)
	}
	return out
}

// SafeError returns an error safe to record on a span. Messages mentioning
// credentials are replaced with a generic one.
func SafeError(err error) error {
	if err == nil {
		return nil
	}
	if blocked(err.Error()) {
		return errors.New("redacted error")
	}
	return err
}

func blocked(s string) bool {
	s = strings.ToLower(s)
	for _, key := range blockedKeys {
		if strings.Contains(s, key) {
			return true
		}
	}
	return false
}
