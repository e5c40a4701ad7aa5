package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/baltrad/baltrad-db-sub003/internal/errs"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Negative result (no match, nothing removed)
	ExitCommandError = 2 // Command error (bad expression, database unavailable, etc.)
)

// Error codes reported in CLI responses, one per catalog error kind.
const (
	ErrCodeGeneric         = "E001" // Generic/unknown error
	ErrCodeConfig          = "E002" // Configuration could not be loaded
	ErrCodeReadFailed      = "E003" // Metadata file could not be read
	ErrCodeWriteFailed     = "E004" // Output file could not be written
	ErrCodeStructural      = "E101"
	ErrCodeLookup          = "E102"
	ErrCodeDuplicate       = "E103"
	ErrCodeValue           = "E104"
	ErrCodeTypeMismatch    = "E105"
	ErrCodeUnknownOperator = "E106"
	ErrCodeDatabase        = "E201"
)

var codeForKind = map[errs.Code]string{
	errs.CodeStructural:      ErrCodeStructural,
	errs.CodeLookup:          ErrCodeLookup,
	errs.CodeDuplicateEntry:  ErrCodeDuplicate,
	errs.CodeValue:           ErrCodeValue,
	errs.CodeTypeMismatch:    ErrCodeTypeMismatch,
	errs.CodeUnknownOperator: ErrCodeUnknownOperator,
	errs.CodeDatabase:        ErrCodeDatabase,
}

// ErrorCode maps a catalog error to its CLI error code.
func ErrorCode(err error) string {
	if code, ok := codeForKind[errs.CodeOf(err)]; ok {
		return code
	}
	return ErrCodeGeneric
}

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string      `json:"status"`          // "ok" or "error"
	Data   interface{} `json:"data,omitempty"`  // success payload
	Error  *CLIError   `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string      `json:"code"`              // "E001", "E101", etc.
	Message string      `json:"message"`           // human-readable message
	Details interface{} `json:"details,omitempty"` // additional context
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data interface{}) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	// Human-readable text output
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details interface{}) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	// Human-readable error
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting JSON output.
func (f *OutputFormatter) VerboseLog(format string, args ...interface{}) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}

// GetErrWriter returns the appropriate writer for diagnostic output.
// Returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}

// Fail reports err in the configured format and returns an ExitError with
// the given exit code.
func (f *OutputFormatter) Fail(exitCode int, message string, err error) error {
	code := ErrorCode(err)
	var details interface{}
	if err != nil {
		details = err.Error()
	}
	_ = f.Error(code, message, details)
	return WrapExitError(exitCode, fmt.Sprintf("%s: %s", code, message), err)
}
