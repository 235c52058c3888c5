package logger

import (
	"strings"

	"go.uber.org/zap"
)

const (
	// FieldPolicy is the structured log field key for the policy name.
	FieldPolicy = "policy_name"
	// FieldTier is the structured log field key for the source tier.
	FieldTier = "source_tier"
	// FieldReason is the structured log field key for an exclusion reason.
	FieldReason = "reason"
)

// StringField describes a string-valued structured logging field.
type StringField struct {
	Key   string
	Value string
}

// StringFields converts the provided key/value pairs into zap fields, trimming
// whitespace and omitting entries with empty keys or values.
func StringFields(fields ...StringField) []zap.Field {
	result := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		key := strings.TrimSpace(field.Key)
		if key == "" {
			continue
		}

		value := strings.TrimSpace(field.Value)
		if value == "" {
			continue
		}

		result = append(result, zap.String(key, value))
	}

	return result
}

// WithFields safely attaches the provided fields to the logger.
// If the logger is nil or no fields are supplied, the input logger is returned
// unchanged, defaulting to a no-op logger when nil.
func WithFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}

	if len(fields) == 0 {
		return logger
	}

	return logger.With(fields...)
}

// PolicyFields returns standard zap fields that describe a policy record.
// Empty values are ignored to keep log entries compact when information is missing.
func PolicyFields(name, tier string) []zap.Field {
	return StringFields(
		StringField{Key: FieldPolicy, Value: name},
		StringField{Key: FieldTier, Value: tier},
	)
}

// WithPolicyFields attaches the common policy fields to the provided logger.
// If the logger is nil, a no-op logger is created to avoid panics.
func WithPolicyFields(logger *zap.Logger, name, tier string) *zap.Logger {
	fields := PolicyFields(name, tier)
	return WithFields(logger, fields...)
}
