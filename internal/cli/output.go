package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/roach88/kassa/internal/catalog"
	"github.com/roach88/kassa/internal/checkout"
	"github.com/roach88/kassa/internal/daybook"
	"github.com/roach88/kassa/internal/receipt"
	"github.com/roach88/kassa/internal/shop"
	"github.com/roach88/kassa/internal/store"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Rejected operation (invalid input, day already closed, bad receipt)
	ExitCommandError = 2 // Command error (unreadable config, database unavailable, not onboarded)
)

// Error code constants shown in CLI error output.
const (
	ErrCodeGeneric        = "E001" // Generic/unknown error
	ErrCodeNotOnboarded   = "E002" // No shop on this device
	ErrCodeInvalidInput   = "E003" // Validation failure
	ErrCodeStore          = "E004" // Local store failure
	ErrCodeDayClosed      = "E005" // Business day already closed
	ErrCodeInvalidReceipt = "E006" // Receipt payload rejected
	ErrCodeWriteFailed    = "E007" // File write error
	ErrCodeConfig         = "E008" // Configuration error
)

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
	if err == nil {
		return ExitSuccess
	}
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
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // success payload
	Error  *CLIError `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // "E001", "E002", etc.
	Message string `json:"message"`           // human-readable message
	Details any    `json:"details,omitempty"` // additional context
}

// Success outputs a successful result in the configured format.
// In text mode data is printed with fmt, so result types implement Stringer.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
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

	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// Fail reports err in the configured format and returns it as an ExitError
// carrying the exit code for its class. An ExitError keeps its own code.
func (f *OutputFormatter) Fail(message string, err error) error {
	code, exit := classify(err)
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		_ = f.Error(code, exitErr.Error(), nil)
		return err
	}
	_ = f.Error(code, fmt.Sprintf("%s: %v", message, err), nil)
	return WrapExitError(exit, message, err)
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting JSON output.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}

// classify maps domain errors to an output code and an exit code.
func classify(err error) (string, int) {
	var exitErr *ExitError
	switch {
	case errors.As(err, &exitErr):
		code := ErrCodeGeneric
		if exitErr.Err != nil {
			code, _ = classify(exitErr.Err)
		}
		return code, exitErr.Code
	case errors.Is(err, errWrite):
		return ErrCodeWriteFailed, ExitCommandError
	case errors.Is(err, errConfig):
		return ErrCodeConfig, ExitCommandError
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, fs.ErrPermission):
		return ErrCodeGeneric, ExitCommandError
	case errors.Is(err, shop.ErrNotOnboarded),
		errors.Is(err, checkout.ErrNoActiveShop),
		errors.Is(err, catalog.ErrNoActiveShop),
		errors.Is(err, daybook.ErrNoActiveShop):
		return ErrCodeNotOnboarded, ExitCommandError
	case errors.Is(err, daybook.ErrDayClosed):
		return ErrCodeDayClosed, ExitFailure
	case errors.Is(err, receipt.ErrInvalid):
		return ErrCodeInvalidReceipt, ExitFailure
	case errors.Is(err, shop.ErrInvalidShop),
		errors.Is(err, shop.ErrAlreadyOnboarded),
		errors.Is(err, catalog.ErrInvalidProduct),
		errors.Is(err, catalog.ErrUnknownBarcode),
		errors.Is(err, checkout.ErrEmptyCart),
		errors.Is(err, checkout.ErrInvalidPayment),
		errors.Is(err, daybook.ErrInvalidDate),
		errors.Is(err, daybook.ErrInvalidCount),
		errors.Is(err, errUsage),
		store.IsDuplicateKey(err),
		store.IsNotFound(err):
		return ErrCodeInvalidInput, ExitFailure
	case store.IsUnavailable(err), store.IsAtomicBatch(err), store.IsConstraint(err):
		return ErrCodeStore, ExitCommandError
	}
	return ErrCodeGeneric, ExitFailure
}
