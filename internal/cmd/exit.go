package cmd

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"

	"github.com/fulmenhq/gofulmen/errors"
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"

	"github.com/layerprompt/layerprompt/internal/core"
	errwrap "github.com/layerprompt/layerprompt/internal/errors"
	"github.com/layerprompt/layerprompt/internal/observability"
)

// exit is replaced in tests.
var exit = os.Exit

// ExitWithError reports a failed command run as an error envelope and exits
// with the foundry code for its kind.
func ExitWithError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	msg := "Command failed"
	if kind := core.KindOf(err); kind != "" {
		msg = "Prompt failed: " + string(kind)
	}
	ExitWithCode(observability.CLILogger, errwrap.ExitCodeFor(err), msg, errwrap.Wrap(runCtx, err))
}

// ExitWithCode reports err with foundry exit code metadata and exits.
// logger may be nil for failures before the logger exists; err may be nil.
// Paths the pipeline attempted are reported with the failure so the user
// knows which file to prepare.
func ExitWithCode(logger *logging.Logger, exitCode foundry.ExitCode, msg string, err error) {
	info, ok := foundry.GetExitCodeInfo(exitCode)
	if !ok {
		writeFailure(os.Stderr, msg, err)
		fmt.Fprintf(os.Stderr, "Exit Code: %d\n", exitCode)
		exit(int(exitCode))
		return
	}

	if logger != nil {
		fields := []zap.Field{
			zap.Int("exit_code", info.Code),
			zap.String("exit_name", info.Name),
			zap.String("exit_category", info.Category),
		}
		logger.Error(msg, append(fields, errorFields(err)...)...)
	} else {
		writeFailure(os.Stderr, msg, err)
		fmt.Fprintf(os.Stderr, "Exit Code: %d (%s) - %s\n", info.Code, info.Name, info.Description)
	}

	exit(info.Code)
}

// ExitWithCodeStderr exits without a logger.
func ExitWithCodeStderr(exitCode foundry.ExitCode, msg string, err error) {
	ExitWithCode(nil, exitCode, msg, err)
}

func errorFields(err error) []zap.Field {
	if err == nil {
		return nil
	}
	var fields []zap.Field
	if envelope, ok := err.(*errors.ErrorEnvelope); ok {
		fields = append(fields,
			zap.String("error_code", envelope.Code),
			zap.String("error_message", envelope.Message),
			zap.String("correlation_id", envelope.CorrelationID),
		)
		if envelope.Context != nil {
			fields = append(fields, zap.Any("error_context", envelope.Context))
		}
	}
	if paths := attemptedPaths(err); len(paths) > 0 {
		fields = append(fields, zap.Strings("attempted_paths", paths))
	}
	return append(fields, zap.Error(err))
}

func writeFailure(w io.Writer, msg string, err error) {
	switch envelope, ok := err.(*errors.ErrorEnvelope); {
	case err == nil:
		fmt.Fprintf(w, "FATAL: %s\n", msg)
		return
	case ok:
		fmt.Fprintf(w, "FATAL: %s [%s]: %s (correlation: %s)\n", msg, envelope.Code, envelope.Message, envelope.CorrelationID)
	default:
		fmt.Fprintf(w, "FATAL: %s: %v\n", msg, err)
	}
	for _, path := range attemptedPaths(err) {
		fmt.Fprintf(w, "  attempted: %s\n", path)
	}
}

// attemptedPaths returns the paths recorded on a pipeline error, either
// directly or through the context of its envelope.
func attemptedPaths(err error) []string {
	if envelope, ok := err.(*errors.ErrorEnvelope); ok {
		paths, _ := envelope.Context["paths"].([]string)
		return paths
	}
	var typed *core.Error
	if stderrors.As(err, &typed) {
		return typed.Paths
	}
	return nil
}
