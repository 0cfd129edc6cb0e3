package errors

import (
	"context"
	stderrors "errors"

	"github.com/fulmenhq/gofulmen/errors"
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/google/uuid"

	"github.com/layerprompt/layerprompt/internal/core"
)

type correlationKey struct{}

// WithCorrelationID stores a correlation ID for the current invocation.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

// Error creation helpers for common error types

func NewInvalidInputError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope("INVALID_INPUT", message)
}

func NewNotFoundError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope("NOT_FOUND", message)
}

func NewValidationError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope("VALIDATION_FAILED", message)
}

func NewConfigInvalidError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope("CONFIG_INVALID", message)
}

func NewTimeoutError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope("TIMEOUT", message)
}

func NewInternalError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope("INTERNAL_ERROR", message)
}

// CodeForKind maps a pipeline error kind to an envelope code.
func CodeForKind(kind core.Kind) string {
	switch kind {
	case core.KindInvalidDirective, core.KindInvalidLayer, core.KindInvalidAdaptation, core.KindInvalidCustomVariable:
		return "INVALID_INPUT"
	case core.KindUnsupportedCombination, core.KindMissingVariable:
		return "VALIDATION_FAILED"
	case core.KindProfileNotFound, core.KindBaseDirectoryNotFound:
		return "CONFIG_INVALID"
	case core.KindTemplateFileNotFound, core.KindSchemaFileNotFound, core.KindFileNotFound:
		return "NOT_FOUND"
	case core.KindStdinTimeout:
		return "TIMEOUT"
	default:
		return "INTERNAL_ERROR"
	}
}

func newEnvelope(code, message string) *errors.ErrorEnvelope {
	switch code {
	case "INVALID_INPUT":
		return NewInvalidInputError(message)
	case "NOT_FOUND":
		return NewNotFoundError(message)
	case "VALIDATION_FAILED":
		return NewValidationError(message)
	case "CONFIG_INVALID":
		return NewConfigInvalidError(message)
	case "TIMEOUT":
		return NewTimeoutError(message)
	default:
		return NewInternalError(message)
	}
}

// ExitCodeFor picks the foundry exit code for err: configuration and argument
// problems, missing content files, and everything else.
func ExitCodeFor(err error) foundry.ExitCode {
	switch CodeForKind(core.KindOf(err)) {
	case "INVALID_INPUT", "VALIDATION_FAILED", "CONFIG_INVALID":
		return foundry.ExitConfigInvalid
	case "NOT_FOUND":
		return foundry.ExitFileNotFound
	default:
		return foundry.ExitFailure
	}
}

// Wrap converts err into a gofulmen ErrorEnvelope. Typed pipeline errors keep
// their value, pattern and attempted paths as envelope context.
func Wrap(ctx context.Context, err error) *errors.ErrorEnvelope {
	if err == nil {
		env := NewInternalError("unexpected nil error")
		env, _ = env.WithSeverity(errors.SeverityCritical)
		return env
	}
	if envelope, ok := err.(*errors.ErrorEnvelope); ok && envelope != nil {
		return envelope
	}

	kind := core.KindOf(err)
	envelope := newEnvelope(CodeForKind(kind), err.Error())
	envelope = envelope.WithCorrelationID(extractCorrelationID(ctx))

	fields := map[string]interface{}{
		"wrapped_error": err.Error(),
	}
	if kind != "" {
		fields["kind"] = string(kind)
	}
	var typed *core.Error
	if stderrors.As(err, &typed) {
		if typed.Value != "" {
			fields["value"] = typed.Value
		}
		if typed.Pattern != "" {
			fields["pattern"] = typed.Pattern
		}
		if len(typed.Paths) > 0 {
			fields["paths"] = typed.Paths
		}
	}
	if updated, updateErr := envelope.WithContext(fields); updateErr == nil {
		envelope = updated
	}

	severity := errors.SeverityHigh
	if core.IsUserContent(err) {
		severity = errors.SeverityMedium
	}
	if updated, sevErr := envelope.WithSeverity(severity); sevErr == nil {
		envelope = updated
	}
	return envelope
}

// extractCorrelationID gets the correlation ID from context, falling back to a new UUID.
func extractCorrelationID(ctx context.Context) string {
	if ctx != nil {
		if id, ok := ctx.Value(correlationKey{}).(string); ok && id != "" {
			return id
		}
	}
	return uuid.New().String()
}
