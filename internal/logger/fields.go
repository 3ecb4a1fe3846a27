package logger

import (
	"strings"

	"go.uber.org/zap"
)

const (
	// FieldDocumentID is the structured log field key for the document identifier.
	FieldDocumentID = "document_id"
	// FieldDocumentKind is the structured log field key for the declared document kind.
	FieldDocumentKind = "document_kind"
	// FieldProvider is the structured log field key for the OCR provider name.
	FieldProvider = "ocr_provider"
	// FieldModel is the structured log field key for the OCR model identifier.
	FieldModel = "ocr_model"
	// FieldRunID is the structured log field key for a screening run.
	FieldRunID = "run_id"
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

// DocumentFields returns the fields identifying a document in a batch.
func DocumentFields(id, kind string) []zap.Field {
	return StringFields(
		StringField{Key: FieldDocumentID, Value: id},
		StringField{Key: FieldDocumentKind, Value: kind},
	)
}

// OCRFields describes the OCR backend. Empty values are ignored to keep log
// entries compact when information is missing.
func OCRFields(provider, model string) []zap.Field {
	return StringFields(
		StringField{Key: FieldProvider, Value: provider},
		StringField{Key: FieldModel, Value: model},
	)
}

// WithOCRFields attaches the OCR backend fields to the provided logger.
func WithOCRFields(logger *zap.Logger, provider, model string) *zap.Logger {
	return WithFields(logger, OCRFields(provider, model)...)
}
